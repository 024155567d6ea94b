package enrollment

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the persisted second-factor state of one user.
// Zero time values mean "not set".
type Profile struct {
	UserID           uuid.UUID
	State            State
	SecretEnc        string // active secret, sealed
	PendingSecretEnc string // secret awaiting its first code, sealed
	FailedAttempts   int
	FirstFailedAt    time.Time
	Lockouts         int
	LockedUntil      time.Time
	LastTOTPStep     int64
	LastUsedAt       time.Time
	EnabledAt        time.Time
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func newProfile(userID uuid.UUID) *Profile {
	return &Profile{UserID: userID, State: StateDisabled}
}

// Locked reports whether confirmations are currently refused.
func (p *Profile) Locked(now time.Time) bool {
	return !p.LockedUntil.IsZero() && now.Before(p.LockedUntil)
}

// HasActiveSecret reports whether the user can answer challenges.
// It stays true during a forced re-enrollment until the new secret is confirmed.
func (p *Profile) HasActiveSecret() bool {
	return p.SecretEnc != ""
}

func (p *Profile) resetFailures() {
	p.FailedAttempts = 0
	p.FirstFailedAt = time.Time{}
}

// lockoutDuration doubles from base per lockout, capped at ceiling.
func lockoutDuration(lockouts int, base, ceiling time.Duration) time.Duration {
	d := base
	for i := 1; i < lockouts; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	return min(d, ceiling)
}
