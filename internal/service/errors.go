package service

import (
	"errors"
	"fmt"
)

// Error taxonomy. Handlers map these to HTTP status codes with
// errors.Is; specific conditions below wrap them so callers can match
// either the class or the exact condition.
var (
	// ErrForbidden is returned when the actor lacks ownership or role.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState is returned when the operation is not allowed from
	// the entity's current status. A lost concurrent race reports the
	// same error.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidTransition is returned when the driver transition table
	// disallows the move.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPreconditionFailed is returned when a cross-entity requirement
	// is unmet.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrConflictingPayment is returned when a trip already has a
	// payment in a non-terminal status.
	ErrConflictingPayment = errors.New("conflicting payment")

	// ErrGatewayUnavailable is returned when the external provider timed
	// out or answered with a server error.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrGatewayRejected is returned when the provider explicitly
	// declined.
	ErrGatewayRejected = errors.New("payment gateway rejected")

	// ErrValidation is returned on malformed input.
	ErrValidation = errors.New("validation error")
)

// Specific conditions.
var (
	ErrCargoNotPending      = fmt.Errorf("%w: cargo request is not pending", ErrInvalidState)
	ErrCargoNotCancellable  = fmt.Errorf("%w: cargo request can no longer be cancelled", ErrInvalidState)
	ErrCargoNotDeletable    = fmt.Errorf("%w: only pending cargo requests can be deleted", ErrInvalidState)
	ErrCargoNotAccepted     = fmt.Errorf("%w: cargo request is not accepted", ErrPreconditionFailed)
	ErrDriverNotActive      = fmt.Errorf("%w: driver is not active", ErrPreconditionFailed)
	ErrDriverHasActiveTrip  = fmt.Errorf("%w: driver already has an active trip", ErrPreconditionFailed)
	ErrTripNotScheduled     = fmt.Errorf("%w: trip is not scheduled", ErrInvalidState)
	ErrTripNotInProgress    = fmt.Errorf("%w: trip is not in progress", ErrInvalidState)
	ErrTripNotCancellable   = fmt.Errorf("%w: trip can no longer be cancelled", ErrInvalidState)
	ErrPaymentNotCompleted  = fmt.Errorf("%w: payment is not completed", ErrInvalidState)
	ErrPaymentBusy          = fmt.Errorf("%w: another operation on this payment is in flight", ErrInvalidState)
	ErrRefundExceedsAmount  = fmt.Errorf("%w: refund exceeds the paid amount", ErrValidation)
	ErrAmountMismatch       = fmt.Errorf("%w: amount does not match the payment", ErrValidation)
	ErrInvalidAmount        = fmt.Errorf("%w: amount must be positive", ErrValidation)
	ErrInvalidGateway       = fmt.Errorf("%w: unknown payment gateway", ErrValidation)
	ErrInvalidDriverStatus  = fmt.Errorf("%w: unknown driver status", ErrValidation)
	ErrPayerMismatch        = fmt.Errorf("%w: payer does not match the requesting actor", ErrForbidden)
	ErrNotOwner             = fmt.Errorf("%w: only the owner may perform this operation", ErrForbidden)
	ErrNotDriverOrAdmin     = fmt.Errorf("%w: only the driver or an admin may perform this operation", ErrForbidden)
)
