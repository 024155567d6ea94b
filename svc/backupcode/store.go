package backupcode

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists code hashes.
type Store interface {
	// Replace supersedes every live code of the user and inserts hashes,
	// atomically.
	Replace(ctx context.Context, userID uuid.UUID, hashes [][]byte, now time.Time) error

	// Consume marks the matching live, unused code as used in a single
	// conditional write. Returns ErrNotFoundOrUsed when nothing matched.
	Consume(ctx context.Context, userID uuid.UUID, hash []byte, now time.Time) error

	// Remaining counts live, unused codes.
	Remaining(ctx context.Context, userID uuid.UUID) (int, error)

	// Revoke supersedes every live code of the user.
	Revoke(ctx context.Context, userID uuid.UUID, now time.Time) error
}
