package challenge

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists challenges. State-changing methods are conditional single
// writes so concurrent attempts cannot both succeed.
type Store interface {
	// Create inserts c unless a pending challenge exists for the same user
	// and subject, in which case it reports false.
	Create(ctx context.Context, c *Challenge) (bool, error)

	// Get returns ErrChallengeNotFound for unknown ids.
	Get(ctx context.Context, id uuid.UUID) (*Challenge, error)

	// FindPending returns the pending challenge of a user for a subject,
	// or ErrChallengeNotFound.
	FindPending(ctx context.Context, userID uuid.UUID, subjectID string) (*Challenge, error)

	// Expire moves a pending challenge to expired. Reports whether it did.
	Expire(ctx context.Context, id uuid.UUID) (bool, error)

	// Reserve holds one attempt slot on a live pending challenge before its
	// answer is checked. Returns ErrNotPending when the challenge is no
	// longer answerable, or ErrNoAttemptsLeft when Attempts plus InFlight
	// already reach MaxAttempts.
	Reserve(ctx context.Context, id uuid.UUID, now time.Time) (*Challenge, error)

	// Release gives back a reserved slot whose answer was never evaluated.
	Release(ctx context.Context, id uuid.UUID) error

	// RecordFailure settles a reserved slot as a failed attempt and marks
	// the challenge failed once MaxAttempts is reached. Returns the updated
	// challenge, or ErrNotPending.
	RecordFailure(ctx context.Context, id uuid.UUID, now time.Time) (*Challenge, error)

	// RecordSuccess settles a reserved slot and marks the challenge
	// succeeded. Returns the updated challenge, or ErrNotPending.
	RecordSuccess(ctx context.Context, id uuid.UUID, method Method, now time.Time) (*Challenge, error)

	// ExpireBefore expires every pending challenge with expires_at <= now.
	ExpireBefore(ctx context.Context, now time.Time) (int, error)
}
