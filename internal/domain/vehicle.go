package domain

import "time"

// Vehicle represents a freight vehicle a trip is executed with.
type Vehicle struct {
	ID         string
	DriverID   string
	Plate      string
	Model      string
	CapacityKg float64
	CreatedAt  time.Time
}
