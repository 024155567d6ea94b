package backupcode

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cepalab/signguard/pkg/pg"
)

type pgDB interface {
	pg.DBTX
	pg.TxBeginner
}

// PgStorage stores code hashes in the backup_codes table.
type PgStorage struct {
	db pgDB
}

func NewPgStorage(db pgDB) *PgStorage {
	if db == nil {
		panic("backupcode: database cannot be nil")
	}
	return &PgStorage{db: db}
}

const (
	supersedeSQL = `
UPDATE backup_codes SET superseded_at = $2
WHERE user_id = $1 AND superseded_at IS NULL`

	insertCodeSQL = `
INSERT INTO backup_codes (id, user_id, code_hash, created_at)
VALUES ($1, $2, $3, $4)`

	consumeSQL = `
UPDATE backup_codes SET used_at = $3
WHERE user_id = $1 AND code_hash = $2 AND used_at IS NULL AND superseded_at IS NULL`

	remainingSQL = `
SELECT count(*) FROM backup_codes
WHERE user_id = $1 AND used_at IS NULL AND superseded_at IS NULL`
)

func (s *PgStorage) Replace(ctx context.Context, userID uuid.UUID, hashes [][]byte, now time.Time) error {
	return pg.WithTx(ctx, s.db, func(ctx context.Context, tx pg.DBTX) error {
		if _, err := tx.Exec(ctx, supersedeSQL, userID, now); err != nil {
			return err
		}
		for _, h := range hashes {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, insertCodeSQL, id, userID, h, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PgStorage) Consume(ctx context.Context, userID uuid.UUID, hash []byte, now time.Time) error {
	tag, err := s.db.Exec(ctx, consumeSQL, userID, hash, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFoundOrUsed
	}
	return nil
}

func (s *PgStorage) Remaining(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, remainingSQL, userID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *PgStorage) Revoke(ctx context.Context, userID uuid.UUID, now time.Time) error {
	_, err := s.db.Exec(ctx, supersedeSQL, userID, now)
	return err
}
