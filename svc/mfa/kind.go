package mfa

import "errors"

// ErrorKind classifies an error into the domain taxonomy.
type ErrorKind string

const (
	KindNone                     ErrorKind = ""
	KindInvalidSecret            ErrorKind = "invalid_secret"
	KindInvalidCode              ErrorKind = "invalid_code"
	KindTooManyAttempts          ErrorKind = "too_many_attempts"
	KindChallengeExpired         ErrorKind = "challenge_expired"
	KindChallengeAlreadyConsumed ErrorKind = "challenge_already_consumed"
	KindAlreadyEnabled           ErrorKind = "already_enabled"
	KindPolicyDenied             ErrorKind = "policy_denied"
	KindNotFound                 ErrorKind = "not_found"
	KindInternal                 ErrorKind = "internal"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInvalidSecret, KindInvalidSecret},
	{ErrInvalidCode, KindInvalidCode},
	{ErrTooManyAttempts, KindTooManyAttempts},
	{ErrChallengeExpired, KindChallengeExpired},
	{ErrChallengeAlreadyConsumed, KindChallengeAlreadyConsumed},
	{ErrAlreadyEnabled, KindAlreadyEnabled},
	{ErrPolicyDenied, KindPolicyDenied},
	{ErrNotFound, KindNotFound},
}

// Kind maps err to its taxonomy kind. Unknown errors are KindInternal.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// IsDomain reports whether err belongs to the domain taxonomy.
func IsDomain(err error) bool {
	k := Kind(err)
	return k != KindNone && k != KindInternal
}
