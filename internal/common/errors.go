// Package common defines sentinel errors and error kinds shared by every layer
// of the payments portal. Callers should use errors.Is / errors.As to match
// these values.
package common

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	// Service-level errors.
	ErrorInternal              = errors.New("internal error")
	ErrorUnauthorized          = errors.New("unauthorized")
	ErrValidation              = errors.New("validation error")
	ErrTooManyAttempts         = errors.New("too many attempts")
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	// Transaction lifecycle.
	ErrAlreadyResolved = errors.New("already resolved")

	// Token errors. All of them unwrap to ErrorUnauthorized.
	ErrInvalidToken   = fmt.Errorf("%w: invalid token", ErrorUnauthorized)
	ErrTokenExpired   = fmt.Errorf("%w: token expired", ErrorUnauthorized)
	ErrMalformedToken = fmt.Errorf("%w: malformed token", ErrorUnauthorized)
)

// ValidationError reports the first field that failed a format check.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError is a shorthand for &ValidationError{...}.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// TooManyAttemptsError is returned while a login key is locked out.
type TooManyAttemptsError struct {
	RetryAfter time.Duration
}

func (e *TooManyAttemptsError) Error() string {
	return "too many attempts, retry after " + strconv.Itoa(e.RetryAfterSeconds()) + "s"
}

func (e *TooManyAttemptsError) Unwrap() error { return ErrTooManyAttempts }

// RetryAfterSeconds rounds the remaining lockout up to whole seconds, never below 1.
func (e *TooManyAttemptsError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Kind is the stable, machine-checkable name of an error class.
type Kind string

const (
	KindValidation              Kind = "ValidationError"
	KindAuthentication          Kind = "AuthenticationError"
	KindTooManyAttempts         Kind = "TooManyAttempts"
	KindInsufficientPermissions Kind = "InsufficientPermissions"
	KindNotFound                Kind = "NotFound"
	KindAlreadyResolved         Kind = "AlreadyResolved"
	KindConflict                Kind = "ConflictError"
	KindInternal                Kind = "InternalError"
)

// KindOf classifies err. Anything unrecognised is internal.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrorUnauthorized):
		return KindAuthentication
	case errors.Is(err, ErrTooManyAttempts):
		return KindTooManyAttempts
	case errors.Is(err, ErrInsufficientPermissions):
		return KindInsufficientPermissions
	case errors.Is(err, ErrorNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyResolved):
		return KindAlreadyResolved
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}
