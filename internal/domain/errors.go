package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports bad input. Reason is safe to show to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StateError reports an operation that is not allowed in the current state.
type StateError struct {
	Reason string
	kind   error
}

func (e *StateError) Error() string { return e.Reason }

// Unwrap lets errors.Is match the sentinel a StateError was built from.
func (e *StateError) Unwrap() error { return e.kind }

func NewStateError(reason string) *StateError {
	return &StateError{Reason: reason}
}

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// PersistenceError wraps a storage failure. The caller may retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Retryable() bool { return true }

// NotificationError wraps a mail delivery failure. The caller may retry.
type NotificationError struct {
	Kind string
	Err  error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("failed to send %s email: %v", e.Kind, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

func (e *NotificationError) Retryable() bool { return true }

var (
	ErrAccountDeactivated   = errors.New("This account has been deactivated")
	ErrRecoverySessionEmpty = errors.New("Password reset session expired, please request a new OTP")
	ErrOTPNotVerified       = errors.New("Please verify your OTP before resetting your password")
	ErrInvalidOTP           = errors.New("Invalid or expired OTP")
	ErrRoomUnavailable      = errors.New("Room is not available for the selected dates")
	ErrRoomUnderMaintenance = errors.New("Room is under maintenance")
	ErrRoomHasBookings      = errors.New("Room has active bookings")
	ErrConcurrentUpdate     = errors.New("Booking was modified concurrently, please reload")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailTaken           = errors.New("Email is already registered")
	ErrUsernameTaken        = errors.New("Username is already taken")
	ErrForbidden            = errors.New("You do not have access to this resource")
)

// NewStateErrorFrom wraps one of the sentinel errors above so errors.Is still matches.
func NewStateErrorFrom(kind error) *StateError {
	return &StateError{Reason: kind.Error(), kind: kind}
}

// IsRetryable reports whether err carries a transient failure.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}
