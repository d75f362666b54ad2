package domain

import "time"

// DriverStatus represents the availability status of a driver.
type DriverStatus string

const (
	DriverStatusPending   DriverStatus = "PENDING"
	DriverStatusActive    DriverStatus = "ACTIVE"
	DriverStatusSuspended DriverStatus = "SUSPENDED"
	DriverStatusInactive  DriverStatus = "INACTIVE"
)

// Driver represents a driver in the system.
type Driver struct {
	ID              string
	UserID          string
	Name            string
	Phone           string
	LicenseNumber   string
	LicenseExpiry   time.Time
	Status          DriverStatus
	StatusReason    string
	StatusChangedAt time.Time
	CreatedAt       time.Time
}

// driverTransitions is the full legal-transition table for driver
// availability. A missing source status allows nothing; PENDING allows
// everything.
var driverTransitions = map[DriverStatus]map[DriverStatus]struct{}{
	DriverStatusPending: {
		DriverStatusActive:    {},
		DriverStatusSuspended: {},
		DriverStatusInactive:  {},
	},
	DriverStatusActive: {
		DriverStatusSuspended: {},
		DriverStatusInactive:  {},
	},
	DriverStatusSuspended: {
		DriverStatusActive:   {},
		DriverStatusInactive: {},
	},
	DriverStatusInactive: {
		DriverStatusActive: {},
	},
}

// DriverCanTransition reports whether a driver may move from one status
// to another. Same-status updates are always allowed as no-ops.
func DriverCanTransition(from, to DriverStatus) bool {
	if from == to {
		return true
	}
	allowed, ok := driverTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// ValidDriverStatus reports whether the given value is a known status.
func ValidDriverStatus(s DriverStatus) bool {
	switch s {
	case DriverStatusPending, DriverStatusActive, DriverStatusSuspended, DriverStatusInactive:
		return true
	}
	return false
}
