package backupcode

import (
	"errors"
	"fmt"

	"github.com/cepalab/signguard/svc/mfa"
)

var (
	// ErrNotFoundOrUsed is returned when no live, unused code matches.
	ErrNotFoundOrUsed = fmt.Errorf("%w: backup code not found or already used", mfa.ErrInvalidCode)

	ErrFailedToGenerate = errors.New("backupcode: failed to generate codes")
	ErrFailedToStore    = errors.New("backupcode: failed to store codes")
)
