package backupcode

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cepalab/signguard/pkg/logger"
	"github.com/cepalab/signguard/pkg/secrets"
)

// MinPepperSize is the shortest accepted hashing key.
const MinPepperSize = 32

// Service issues and redeems single-use backup codes.
type Service interface {
	// Generate issues the first batch for a user. It replaces any live batch.
	Generate(ctx context.Context, userID uuid.UUID) (*secrets.OneTime[[]string], error)
	// Regenerate supersedes the live batch and issues a new one.
	Regenerate(ctx context.Context, userID uuid.UUID) (*secrets.OneTime[[]string], error)
	// Consume redeems one code. Returns ErrNotFoundOrUsed on any mismatch.
	Consume(ctx context.Context, userID uuid.UUID, code string) error
	// Remaining counts the unused codes of the live batch.
	Remaining(ctx context.Context, userID uuid.UUID) (int, error)
	// Revoke invalidates every live code.
	Revoke(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	store  Store
	pepper []byte
	count  int
	now    func() time.Time
	log    *slog.Logger
}

// ServiceOption configures the service.
type ServiceOption func(*service)

// WithCount overrides the batch size.
func WithCount(n int) ServiceOption {
	return func(s *service) {
		if n > 0 {
			s.count = n
		}
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates a backup code service.
// Panics when store is nil or pepper is shorter than MinPepperSize.
func NewService(store Store, pepper []byte, opts ...ServiceOption) Service {
	if store == nil {
		panic("backupcode: store is required")
	}
	if len(pepper) < MinPepperSize {
		panic("backupcode: pepper must be at least 32 bytes")
	}

	s := &service{
		store:  store,
		pepper: pepper,
		count:  DefaultCount,
		now:    time.Now,
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Generate(ctx context.Context, userID uuid.UUID) (*secrets.OneTime[[]string], error) {
	return s.issue(ctx, userID)
}

func (s *service) Regenerate(ctx context.Context, userID uuid.UUID) (*secrets.OneTime[[]string], error) {
	return s.issue(ctx, userID)
}

func (s *service) issue(ctx context.Context, userID uuid.UUID) (*secrets.OneTime[[]string], error) {
	codes := make([]string, 0, s.count)
	hashes := make([][]byte, 0, s.count)
	seen := make(map[string]struct{}, s.count)

	for len(codes) < s.count {
		code, err := newCode()
		if err != nil {
			return nil, errors.Join(ErrFailedToGenerate, err)
		}
		normalized, _ := Normalize(code)
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		codes = append(codes, code)
		hashes = append(hashes, hash(s.pepper, userID, normalized))
	}

	if err := s.store.Replace(ctx, userID, hashes, s.now()); err != nil {
		return nil, errors.Join(ErrFailedToStore, err)
	}

	s.log.InfoContext(ctx, "backup codes issued", logger.UserID(userID), slog.Int("count", len(codes)))
	return secrets.NewOneTime(codes), nil
}

func (s *service) Consume(ctx context.Context, userID uuid.UUID, code string) error {
	normalized, ok := Normalize(code)
	if !ok {
		return ErrNotFoundOrUsed
	}
	if err := s.store.Consume(ctx, userID, hash(s.pepper, userID, normalized), s.now()); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "backup code consumed", logger.UserID(userID))
	return nil
}

func (s *service) Remaining(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.Remaining(ctx, userID)
}

func (s *service) Revoke(ctx context.Context, userID uuid.UUID) error {
	return s.store.Revoke(ctx, userID, s.now())
}
