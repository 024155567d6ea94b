package signature

import (
	"errors"
	"fmt"

	"github.com/cepalab/signguard/svc/mfa"
)

var (
	ErrUnknownLevel  = errors.New("signature: unknown security level")
	ErrInvalidParams = errors.New("signature: invalid parameters")
	ErrInvalidPolicy = errors.New("signature: invalid policy")
)

func deny(reason string) error {
	return fmt.Errorf("%w: %s", mfa.ErrPolicyDenied, reason)
}
