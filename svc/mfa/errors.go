package mfa

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors. Every error returned by the second-factor services wraps one of these.
var (
	ErrInvalidSecret            = errors.New("invalid totp secret")
	ErrInvalidCode              = errors.New("invalid verification code")
	ErrTooManyAttempts          = errors.New("too many verification attempts")
	ErrChallengeExpired         = errors.New("verification challenge expired")
	ErrChallengeAlreadyConsumed = errors.New("verification challenge already consumed")
	ErrAlreadyEnabled           = errors.New("two-factor authentication already enabled")
	ErrPolicyDenied             = errors.New("denied by signature policy")
	ErrNotFound                 = errors.New("not found")
)

// ErrNotEnrolled is returned when a user has no active second factor.
var ErrNotEnrolled = fmt.Errorf("%w: two-factor authentication not enabled", ErrNotFound)

// LockoutError reports a temporary enrollment lockout.
type LockoutError struct {
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrTooManyAttempts, e.RetryAfter.Round(time.Second))
}

func (e *LockoutError) Unwrap() error { return ErrTooManyAttempts }

// AttemptsError reports a wrong code together with the attempts left.
type AttemptsError struct {
	Remaining int
}

func (e *AttemptsError) Error() string {
	return fmt.Sprintf("%s: %d attempts remaining", ErrInvalidCode, e.Remaining)
}

func (e *AttemptsError) Unwrap() error { return ErrInvalidCode }

// RetryAfter extracts the lockout duration from err, if any.
func RetryAfter(err error) (time.Duration, bool) {
	var le *LockoutError
	if errors.As(err, &le) {
		return le.RetryAfter, true
	}
	return 0, false
}

// AttemptsRemaining extracts the remaining attempt count from err, if any.
func AttemptsRemaining(err error) (int, bool) {
	var ae *AttemptsError
	if errors.As(err, &ae) {
		return ae.Remaining, true
	}
	return 0, false
}
