package enrollment

import (
	"errors"
	"fmt"

	"github.com/cepalab/signguard/svc/mfa"
)

var (
	// ErrProfileNotFound is returned by stores when the user has no profile row.
	ErrProfileNotFound = fmt.Errorf("%w: security profile", mfa.ErrNotFound)

	// ErrNothingToConfirm is returned by Confirm when no enrollment was started.
	ErrNothingToConfirm = fmt.Errorf("%w: no pending enrollment", mfa.ErrNotFound)

	// ErrCodeReplayed is returned for a code whose time step was already accepted.
	ErrCodeReplayed = fmt.Errorf("%w: code already used", mfa.ErrInvalidCode)

	// ErrVersionConflict reports a lost optimistic-concurrency race. It is transient.
	ErrVersionConflict = errors.New("enrollment: profile was modified concurrently")

	// ErrBackupCodesNotIssued means Confirm enabled two-factor but could not
	// issue backup codes. RegenerateBackupCodes issues them.
	ErrBackupCodesNotIssued = errors.New("enrollment: enabled but backup codes were not issued")

	ErrUnknownState      = errors.New("enrollment: unknown state")
	ErrFailedToProvision = errors.New("enrollment: failed to provision secret")
	ErrFailedToSeal      = errors.New("enrollment: failed to protect secret")
)
