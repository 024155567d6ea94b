package challenge

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cepalab/signguard/pkg/pg"
)

// PgStorage stores challenges in verification_challenges.
type PgStorage struct {
	db pg.DBTX
}

func NewPgStorage(db pg.DBTX) *PgStorage {
	if db == nil {
		panic("challenge: database cannot be nil")
	}
	return &PgStorage{db: db}
}

const challengeColumns = `id, user_id, subject_id, security_level, allowed_methods, attempts, in_flight, max_attempts,
       method_used, outcome, created_at, expires_at, consumed_at`

const (
	createSQL = `
INSERT INTO verification_challenges (
    id, user_id, subject_id, security_level, allowed_methods, attempts, max_attempts,
    outcome, created_at, expires_at
) VALUES ($1, $2, $3, $4, $5, 0, $6, 'pending', $7, $8)
ON CONFLICT (user_id, subject_id) WHERE outcome = 'pending' DO NOTHING`

	getSQL = `SELECT ` + challengeColumns + ` FROM verification_challenges WHERE id = $1`

	findPendingSQL = `SELECT ` + challengeColumns + ` FROM verification_challenges
WHERE user_id = $1 AND subject_id = $2 AND outcome = 'pending'`

	expireSQL = `
UPDATE verification_challenges SET outcome = 'expired'
WHERE id = $1 AND outcome = 'pending'`

	reserveSQL = `
UPDATE verification_challenges SET in_flight = in_flight + 1
WHERE id = $1 AND outcome = 'pending' AND expires_at > $2
  AND attempts + in_flight < max_attempts
RETURNING ` + challengeColumns

	releaseSQL = `
UPDATE verification_challenges SET in_flight = GREATEST(in_flight - 1, 0)
WHERE id = $1`

	recordFailureSQL = `
UPDATE verification_challenges SET
    in_flight = GREATEST(in_flight - 1, 0),
    attempts = attempts + 1,
    outcome = CASE WHEN attempts + 1 >= max_attempts THEN 'failed' ELSE 'pending' END
WHERE id = $1 AND outcome = 'pending' AND expires_at > $2
RETURNING ` + challengeColumns

	recordSuccessSQL = `
UPDATE verification_challenges SET
    in_flight = GREATEST(in_flight - 1, 0),
    outcome = 'succeeded',
    method_used = $2,
    consumed_at = $3
WHERE id = $1 AND outcome = 'pending' AND expires_at > $3
RETURNING ` + challengeColumns

	expireBeforeSQL = `
UPDATE verification_challenges SET outcome = 'expired'
WHERE outcome = 'pending' AND expires_at <= $1`
)

func (s *PgStorage) Create(ctx context.Context, c *Challenge) (bool, error) {
	tag, err := s.db.Exec(ctx, createSQL,
		c.ID, c.UserID, c.SubjectID, c.Level, methodStrings(c.AllowedMethods),
		c.MaxAttempts, c.CreatedAt, c.ExpiresAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStorage) Get(ctx context.Context, id uuid.UUID) (*Challenge, error) {
	c, err := scanChallenge(s.db.QueryRow(ctx, getSQL, id))
	if pg.IsNotFoundError(err) {
		return nil, ErrChallengeNotFound
	}
	return c, err
}

func (s *PgStorage) FindPending(ctx context.Context, userID uuid.UUID, subjectID string) (*Challenge, error) {
	c, err := scanChallenge(s.db.QueryRow(ctx, findPendingSQL, userID, subjectID))
	if pg.IsNotFoundError(err) {
		return nil, ErrChallengeNotFound
	}
	return c, err
}

func (s *PgStorage) Expire(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.db.Exec(ctx, expireSQL, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStorage) Reserve(ctx context.Context, id uuid.UUID, now time.Time) (*Challenge, error) {
	c, err := scanChallenge(s.db.QueryRow(ctx, reserveSQL, id, now))
	if pg.IsNotFoundError(err) {
		return nil, s.reserveMiss(ctx, id, now)
	}
	return c, err
}

// reserveMiss tells a spent attempt budget apart from a closed challenge.
func (s *PgStorage) reserveMiss(ctx context.Context, id uuid.UUID, now time.Time) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrChallengeNotFound) {
			return ErrNotPending
		}
		return err
	}
	if c.Outcome != OutcomePending || !now.Before(c.ExpiresAt) {
		return ErrNotPending
	}
	return ErrNoAttemptsLeft
}

func (s *PgStorage) Release(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, releaseSQL, id)
	return err
}

func (s *PgStorage) RecordFailure(ctx context.Context, id uuid.UUID, now time.Time) (*Challenge, error) {
	c, err := scanChallenge(s.db.QueryRow(ctx, recordFailureSQL, id, now))
	if pg.IsNotFoundError(err) {
		return nil, ErrNotPending
	}
	return c, err
}

func (s *PgStorage) RecordSuccess(ctx context.Context, id uuid.UUID, method Method, now time.Time) (*Challenge, error) {
	c, err := scanChallenge(s.db.QueryRow(ctx, recordSuccessSQL, id, string(method), now))
	if pg.IsNotFoundError(err) {
		return nil, ErrNotPending
	}
	return c, err
}

func (s *PgStorage) ExpireBefore(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.db.Exec(ctx, expireBeforeSQL, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanChallenge(row pgx.Row) (*Challenge, error) {
	var (
		c          Challenge
		methods    []string
		methodUsed *string
		outcome    string
		consumedAt *time.Time
	)
	if err := row.Scan(
		&c.ID, &c.UserID, &c.SubjectID, &c.Level, &methods, &c.Attempts, &c.InFlight, &c.MaxAttempts,
		&methodUsed, &outcome, &c.CreatedAt, &c.ExpiresAt, &consumedAt,
	); err != nil {
		return nil, err
	}

	c.AllowedMethods = make([]Method, 0, len(methods))
	for _, m := range methods {
		c.AllowedMethods = append(c.AllowedMethods, Method(m))
	}
	if methodUsed != nil {
		c.MethodUsed = Method(*methodUsed)
	}
	if consumedAt != nil {
		c.ConsumedAt = *consumedAt
	}
	c.Outcome = Outcome(outcome)
	return &c, nil
}

func methodStrings(ms []Method) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = string(m)
	}
	return out
}
