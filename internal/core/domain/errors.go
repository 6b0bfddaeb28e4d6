package domain

import "errors"

var (
	ErrValidation = errors.New("validation failed")

	ErrNotFound            = errors.New("not found")
	ErrUserNotFound        = notFound("user not found")
	ErrPatientNotFound     = notFound("patient not found")
	ErrProviderNotFound    = notFound("provider not found")
	ErrAppointmentNotFound = notFound("appointment not found")

	ErrSlotUnavailable   = errors.New("time slot is not available")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUserExists        = errors.New("user already exists")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("authentication required")
	ErrForbidden          = errors.New("access forbidden")
)

// notFoundError keeps a specific message while still matching ErrNotFound.
type notFoundError struct{ msg string }

func notFound(msg string) error { return &notFoundError{msg: msg} }

func (e *notFoundError) Error() string        { return e.msg }
func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError carries a client-facing reason for rejecting input.
type ValidationError struct {
	Message string
}

// Invalid builds a ValidationError with the given message.
func Invalid(msg string) error { return &ValidationError{Message: msg} }

func (e *ValidationError) Error() string        { return e.Message }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// SlotConflictError reports which claim occupies the requested slot.
// Claim is nil when the store rejected the write without telling us who won.
type SlotConflictError struct {
	Claim *SlotClaim
}

func (e *SlotConflictError) Error() string {
	if e.Claim == nil {
		return ErrSlotUnavailable.Error()
	}
	switch e.Claim.Kind {
	case ClaimHold:
		return "time slot is blocked by the provider"
	default:
		return "time slot is already booked"
	}
}

func (e *SlotConflictError) Is(target error) bool { return target == ErrSlotUnavailable }

// ErrSlotBusy is returned when another request holds the slot lock.
var ErrSlotBusy error = &slotBusyError{}

type slotBusyError struct{}

func (*slotBusyError) Error() string        { return "time slot is currently being booked, please retry" }
func (*slotBusyError) Is(target error) bool { return target == ErrSlotUnavailable }
