package common

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", NewValidationError("username", "username_format"), KindValidation},
		{"wrapped validation", fmt.Errorf("signup: %w", NewValidationError("email", "email_format")), KindValidation},
		{"unauthorized", ErrorUnauthorized, KindAuthentication},
		{"expired token", ErrTokenExpired, KindAuthentication},
		{"malformed token", ErrMalformedToken, KindAuthentication},
		{"invalid token", ErrInvalidToken, KindAuthentication},
		{"lockout", &TooManyAttemptsError{RetryAfter: time.Minute}, KindTooManyAttempts},
		{"forbidden", ErrInsufficientPermissions, KindInsufficientPermissions},
		{"not found", fmt.Errorf("account: %w", ErrorNotFound), KindNotFound},
		{"already resolved", ErrAlreadyResolved, KindAlreadyResolved},
		{"conflict", ErrConflict, KindConflict},
		{"internal", fmt.Errorf("%w: db down", ErrorInternal), KindInternal},
		{"unknown", errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestTooManyAttemptsError_RetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, (&TooManyAttemptsError{}).RetryAfterSeconds())
	assert.Equal(t, 1, (&TooManyAttemptsError{RetryAfter: 200 * time.Millisecond}).RetryAfterSeconds())
	assert.Equal(t, 2, (&TooManyAttemptsError{RetryAfter: 1500 * time.Millisecond}).RetryAfterSeconds())
	assert.Equal(t, 900, (&TooManyAttemptsError{RetryAfter: 15 * time.Minute}).RetryAfterSeconds())
}

func TestValidationError_Message(t *testing.T) {
	err := NewValidationError("password", "password_too_short")

	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "password", ve.Field)
	assert.Equal(t, "validation error: password: password_too_short", err.Error())
}
