package challenge

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Method is a way of answering a challenge.
type Method string

const (
	MethodTOTP       Method = "totp"
	MethodQRScan     Method = "qr_scan"
	MethodBackupCode Method = "backup_code"
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodTOTP, MethodQRScan, MethodBackupCode:
		return m, nil
	}
	return "", ErrUnknownMethod
}

// Outcome is the lifecycle state of a challenge. Only pending is non-terminal.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeExpired   Outcome = "expired"
)

// Challenge is a one-shot verification gate bound to a user and a subject,
// usually a document awaiting signature.
type Challenge struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	SubjectID      string
	Level          string
	AllowedMethods []Method
	Attempts       int // failed answers
	InFlight       int // answers reserved but not yet settled
	MaxAttempts    int
	MethodUsed     Method // set once succeeded
	Outcome        Outcome
	CreatedAt      time.Time
	ExpiresAt      time.Time
	ConsumedAt     time.Time // zero until succeeded
}

// Allows reports whether m may answer the challenge.
func (c *Challenge) Allows(m Method) bool {
	return slices.Contains(c.AllowedMethods, m)
}

// Expired reports whether the challenge can no longer be answered at now.
func (c *Challenge) Expired(now time.Time) bool {
	return c.Outcome == OutcomeExpired || !now.Before(c.ExpiresAt)
}

// AttemptsRemaining is the number of failures still allowed.
func (c *Challenge) AttemptsRemaining() int {
	return max(c.MaxAttempts-c.Attempts, 0)
}

// canReserve reports whether another answer may be evaluated: settled
// failures plus answers in flight stay below MaxAttempts.
func (c *Challenge) canReserve() bool {
	return c.Attempts+c.InFlight < c.MaxAttempts
}

func (c *Challenge) clone() *Challenge {
	cp := *c
	cp.AllowedMethods = slices.Clone(c.AllowedMethods)
	return &cp
}

func sameMethods(a, b []Method) bool {
	if len(a) != len(b) {
		return false
	}
	for _, m := range a {
		if !slices.Contains(b, m) {
			return false
		}
	}
	return true
}
