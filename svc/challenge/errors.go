package challenge

import (
	"errors"
	"fmt"

	"github.com/cepalab/signguard/svc/mfa"
)

var (
	// ErrChallengeNotFound covers both unknown ids and ids owned by another user.
	ErrChallengeNotFound = fmt.Errorf("%w: challenge", mfa.ErrNotFound)

	// ErrNotPending is returned by stores when a conditional update found the
	// challenge already out of the pending state.
	ErrNotPending = errors.New("challenge: not pending")

	// ErrNoAttemptsLeft is returned by Reserve when every remaining attempt
	// is already spent or held by answers still being checked.
	ErrNoAttemptsLeft = errors.New("challenge: no attempts left")

	ErrUnknownMethod = errors.New("challenge: unknown verification method")
	ErrInvalidParams = errors.New("challenge: invalid parameters")
)
