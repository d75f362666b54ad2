package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrStatusConflict is returned when a conditional write matched no
	// row because the entity's persisted status differs from the
	// expected one. A lost race and a logical state violation are
	// deliberately indistinguishable at this level.
	ErrStatusConflict = errors.New("entity status changed concurrently")

	// ErrActiveExists is returned when a conditional insert is blocked
	// by an existing non-terminal row (active trip for a driver, active
	// payment for a trip).
	ErrActiveExists = errors.New("active entity already exists")

	// ErrDriverNotActive is returned when a conditional trip insert is
	// blocked because the driver's persisted status is not Active.
	ErrDriverNotActive = errors.New("driver is not active")
)
