package enrollment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists security profiles.
type Store interface {
	// Get returns ErrProfileNotFound when the user has none.
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)

	// Save inserts the profile when Version is 0 and otherwise updates it only
	// if the stored version still matches, returning ErrVersionConflict when
	// it does not. LastTOTPStep never moves backwards. On success p.Version
	// holds the new version.
	Save(ctx context.Context, p *Profile) error

	// AdvanceStep records step as the last accepted TOTP step if it is newer
	// than the stored one and the user has an active secret. It reports
	// whether the step was recorded.
	AdvanceStep(ctx context.Context, userID uuid.UUID, step int64, usedAt time.Time) (bool, error)
}
