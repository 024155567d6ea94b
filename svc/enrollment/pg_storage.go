package enrollment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cepalab/signguard/pkg/pg"
)

// PgStorage stores profiles in user_security_profiles.
type PgStorage struct {
	db pg.DBTX
}

func NewPgStorage(db pg.DBTX) *PgStorage {
	if db == nil {
		panic("enrollment: database cannot be nil")
	}
	return &PgStorage{db: db}
}

const (
	selectProfileSQL = `
SELECT user_id, state, secret_enc, pending_secret_enc, failed_attempts, first_failed_at,
       lockouts, locked_until, last_totp_step, last_used_at, enabled_at, version,
       created_at, updated_at
FROM user_security_profiles
WHERE user_id = $1`

	insertProfileSQL = `
INSERT INTO user_security_profiles (
    user_id, state, secret_enc, pending_secret_enc, failed_attempts, first_failed_at,
    lockouts, locked_until, last_totp_step, last_used_at, enabled_at, version
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
ON CONFLICT (user_id) DO NOTHING
RETURNING version, created_at, updated_at`

	updateProfileSQL = `
UPDATE user_security_profiles SET
    state = $2,
    secret_enc = $3,
    pending_secret_enc = $4,
    failed_attempts = $5,
    first_failed_at = $6,
    lockouts = $7,
    locked_until = $8,
    last_totp_step = GREATEST(last_totp_step, $9),
    last_used_at = $10,
    enabled_at = $11,
    version = version + 1,
    updated_at = now()
WHERE user_id = $1 AND version = $12
RETURNING version, last_totp_step, created_at, updated_at`

	advanceStepSQL = `
UPDATE user_security_profiles SET
    last_totp_step = $2,
    last_used_at = $3,
    updated_at = now()
WHERE user_id = $1 AND secret_enc IS NOT NULL AND last_totp_step < $2`
)

func (s *PgStorage) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var (
		p                                  Profile
		state                              string
		secret, pending                    *string
		firstFailed, lockedUntil, lastUsed *time.Time
		enabledAt                          *time.Time
	)
	err := s.db.QueryRow(ctx, selectProfileSQL, userID).Scan(
		&p.UserID, &state, &secret, &pending, &p.FailedAttempts, &firstFailed,
		&p.Lockouts, &lockedUntil, &p.LastTOTPStep, &lastUsed, &enabledAt, &p.Version,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if pg.IsNotFoundError(err) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	if p.State, err = ParseState(state); err != nil {
		return nil, err
	}
	p.SecretEnc = deref(secret)
	p.PendingSecretEnc = deref(pending)
	p.FirstFailedAt = deref(firstFailed)
	p.LockedUntil = deref(lockedUntil)
	p.LastUsedAt = deref(lastUsed)
	p.EnabledAt = deref(enabledAt)
	return &p, nil
}

func (s *PgStorage) Save(ctx context.Context, p *Profile) error {
	args := []any{
		p.UserID, string(p.State), nullString(p.SecretEnc), nullString(p.PendingSecretEnc),
		p.FailedAttempts, nullTime(p.FirstFailedAt), p.Lockouts, nullTime(p.LockedUntil),
		p.LastTOTPStep, nullTime(p.LastUsedAt), nullTime(p.EnabledAt),
	}

	var err error
	if p.Version == 0 {
		err = s.db.QueryRow(ctx, insertProfileSQL, args...).Scan(&p.Version, &p.CreatedAt, &p.UpdatedAt)
	} else {
		err = s.db.QueryRow(ctx, updateProfileSQL, append(args, p.Version)...).
			Scan(&p.Version, &p.LastTOTPStep, &p.CreatedAt, &p.UpdatedAt)
	}
	if pg.IsNotFoundError(err) {
		return ErrVersionConflict
	}
	return err
}

func (s *PgStorage) AdvanceStep(ctx context.Context, userID uuid.UUID, step int64, usedAt time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, advanceStepSQL, userID, step, usedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
