package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cepalab/signguard/pkg/audit"
	"github.com/cepalab/signguard/pkg/logger"
	"github.com/cepalab/signguard/pkg/metrics"
	"github.com/cepalab/signguard/svc/mfa"
)

const (
	maxSubjectLen = 255
	auditResource = "verification_challenge"
)

// TOTPVerifier checks a code against the user's active secret.
type TOTPVerifier interface {
	VerifyTOTP(ctx context.Context, userID uuid.UUID, code string) error
}

// BackupCodeConsumer redeems a backup code.
type BackupCodeConsumer interface {
	Consume(ctx context.Context, userID uuid.UUID, code string) error
}

// OpenParams describes a challenge to open.
type OpenParams struct {
	UserID         uuid.UUID
	SubjectID      string
	Level          string
	AllowedMethods []Method
}

func (p OpenParams) validate() error {
	switch {
	case p.UserID == uuid.Nil:
		return fmt.Errorf("%w: user id is required", ErrInvalidParams)
	case strings.TrimSpace(p.SubjectID) == "":
		return fmt.Errorf("%w: subject id is required", ErrInvalidParams)
	case len(p.SubjectID) > maxSubjectLen:
		return fmt.Errorf("%w: subject id is too long", ErrInvalidParams)
	case p.Level == "":
		return fmt.Errorf("%w: security level is required", ErrInvalidParams)
	case len(p.AllowedMethods) == 0:
		return fmt.Errorf("%w: at least one method is required", ErrInvalidParams)
	}
	for _, m := range p.AllowedMethods {
		if _, err := ParseMethod(string(m)); err != nil {
			return err
		}
	}
	return nil
}

// AttemptParams is one answer to a challenge.
type AttemptParams struct {
	ChallengeID uuid.UUID
	UserID      uuid.UUID
	Method      Method
	Value       string
}

// AttemptResult is returned for a successful attempt.
type AttemptResult struct {
	Outcome           Outcome
	AttemptsRemaining int
	Challenge         *Challenge
}

// Service opens and answers verification challenges.
type Service interface {
	// Open returns the live pending challenge for the same user, subject and
	// level, or opens a new one.
	Open(ctx context.Context, params OpenParams) (*Challenge, error)
	// Attempt answers a challenge. Failures are returned as errors from the
	// mfa taxonomy.
	Attempt(ctx context.Context, params AttemptParams) (*AttemptResult, error)
	// Get returns a snapshot with lazy expiry applied.
	Get(ctx context.Context, id uuid.UUID) (*Challenge, error)
	// Sweep expires every overdue pending challenge.
	Sweep(ctx context.Context) (int, error)
	// RunSweeper calls Sweep every interval until ctx is done.
	// It returns immediately when interval is not positive.
	RunSweeper(ctx context.Context, interval time.Duration) error
}

type service struct {
	store  Store
	totp   TOTPVerifier
	backup BackupCodeConsumer

	ttl         time.Duration
	maxAttempts int

	audit   *audit.Logger
	metrics metrics.Recorder
	log     *slog.Logger
	now     func() time.Time
}

// ServiceOption configures the service.
type ServiceOption func(*service)

func WithTTL(d time.Duration) ServiceOption {
	return func(s *service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithMaxAttempts(n int) ServiceOption {
	return func(s *service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithConfig applies TTL and MaxAttempts from cfg.
func WithConfig(cfg Config) ServiceOption {
	return func(s *service) {
		WithTTL(cfg.TTL)(s)
		WithMaxAttempts(cfg.MaxAttempts)(s)
	}
}

func WithAudit(l *audit.Logger) ServiceOption {
	return func(s *service) { s.audit = l }
}

func WithMetrics(r metrics.Recorder) ServiceOption {
	return func(s *service) {
		if r != nil {
			s.metrics = r
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

func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the challenge service. Panics on nil dependencies.
func NewService(store Store, totp TOTPVerifier, backup BackupCodeConsumer, opts ...ServiceOption) Service {
	if store == nil {
		panic("challenge: store is required")
	}
	if totp == nil {
		panic("challenge: totp verifier is required")
	}
	if backup == nil {
		panic("challenge: backup code consumer is required")
	}

	s := &service{
		store:       store,
		totp:        totp,
		backup:      backup,
		ttl:         DefaultTTL,
		maxAttempts: DefaultMaxAttempts,
		metrics:     metrics.Noop{},
		log:         slog.New(slog.DiscardHandler),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Open(ctx context.Context, params OpenParams) (*Challenge, error) {
	params.SubjectID = strings.TrimSpace(params.SubjectID)
	if err := params.validate(); err != nil {
		return nil, err
	}

	// A concurrent Open may win the insert; the second pass returns its challenge.
	for range 2 {
		now := s.now()

		existing, err := s.store.FindPending(ctx, params.UserID, params.SubjectID)
		switch {
		case errors.Is(err, ErrChallengeNotFound):
		case err != nil:
			return nil, err
		case !existing.Expired(now) && existing.Level == params.Level && sameMethods(existing.AllowedMethods, params.AllowedMethods):
			return existing, nil
		default:
			if _, err := s.store.Expire(ctx, existing.ID); err != nil {
				return nil, err
			}
		}

		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		c := &Challenge{
			ID:             id,
			UserID:         params.UserID,
			SubjectID:      params.SubjectID,
			Level:          params.Level,
			AllowedMethods: params.AllowedMethods,
			MaxAttempts:    s.maxAttempts,
			Outcome:        OutcomePending,
			CreatedAt:      now,
			ExpiresAt:      now.Add(s.ttl),
		}

		created, err := mfa.RetryOnceValue(ctx, func(ctx context.Context) (bool, error) {
			return s.store.Create(ctx, c)
		})
		if err != nil {
			return nil, err
		}
		if created {
			s.metrics.ChallengeOpened(c.Level)
			s.record(ctx, "challenge.open", c, nil, audit.WithMetadata("level", c.Level))
			s.log.InfoContext(ctx, "challenge opened",
				logger.UserID(c.UserID),
				logger.ChallengeID(c.ID),
				logger.SubjectID(c.SubjectID),
				logger.SecurityLevel(c.Level),
			)
			return c.clone(), nil
		}
	}

	return nil, fmt.Errorf("challenge: could not open for subject %q", params.SubjectID)
}

func (s *service) Attempt(ctx context.Context, params AttemptParams) (*AttemptResult, error) {
	if _, err := ParseMethod(string(params.Method)); err != nil {
		return nil, err
	}

	c, err := s.store.Get(ctx, params.ChallengeID)
	if err != nil {
		return nil, err
	}
	if c.UserID != params.UserID {
		return nil, ErrChallengeNotFound
	}

	if err := s.checkOpen(ctx, c); err != nil {
		s.attempted(ctx, c, params.Method, err)
		return nil, err
	}

	if !c.Allows(params.Method) {
		err := fmt.Errorf("%w: method %s not allowed for level %s", mfa.ErrPolicyDenied, params.Method, c.Level)
		s.attempted(ctx, c, params.Method, err)
		return nil, err
	}

	reserved, err := s.store.Reserve(ctx, c.ID, s.now())
	if err != nil {
		err = s.reserveFailed(ctx, c, err)
		s.attempted(ctx, c, params.Method, err)
		return nil, err
	}
	c = reserved

	verr := s.verify(ctx, c.UserID, params.Method, params.Value)
	switch {
	case verr == nil:
		updated, err := mfa.RetryOnceValue(ctx, func(ctx context.Context) (*Challenge, error) {
			return s.store.RecordSuccess(ctx, c.ID, params.Method, s.now())
		})
		if err != nil {
			return nil, s.resolveRace(ctx, c.ID, err)
		}
		s.attempted(ctx, updated, params.Method, nil)
		return &AttemptResult{
			Outcome:           updated.Outcome,
			AttemptsRemaining: updated.AttemptsRemaining(),
			Challenge:         updated,
		}, nil

	case errors.Is(verr, mfa.ErrInvalidCode):
		updated, err := mfa.RetryOnceValue(ctx, func(ctx context.Context) (*Challenge, error) {
			return s.store.RecordFailure(ctx, c.ID, s.now())
		})
		if err != nil {
			return nil, s.resolveRace(ctx, c.ID, err)
		}
		if updated.Outcome == OutcomeFailed {
			err = fmt.Errorf("%w: challenge closed after %d failed attempts", mfa.ErrTooManyAttempts, updated.Attempts)
		} else {
			err = &mfa.AttemptsError{Remaining: updated.AttemptsRemaining()}
		}
		s.attempted(ctx, updated, params.Method, err)
		return nil, err

	default:
		// Not counted: the answer was never evaluated.
		if err := s.store.Release(context.WithoutCancel(ctx), c.ID); err != nil {
			s.log.ErrorContext(ctx, "challenge slot release failed",
				logger.ChallengeID(c.ID),
				logger.Error(err),
			)
		}
		s.attempted(ctx, c, params.Method, verr)
		return nil, verr
	}
}

// reserveFailed maps a refused reservation to its domain error.
func (s *service) reserveFailed(ctx context.Context, c *Challenge, err error) error {
	if errors.Is(err, ErrNoAttemptsLeft) {
		return fmt.Errorf("%w: all %d attempts spent or in progress", mfa.ErrTooManyAttempts, c.MaxAttempts)
	}
	return s.resolveRace(ctx, c.ID, err)
}

// checkOpen maps a non-answerable challenge to its domain error, expiring
// overdue pending challenges on the way.
func (s *service) checkOpen(ctx context.Context, c *Challenge) error {
	switch c.Outcome {
	case OutcomeSucceeded:
		return mfa.ErrChallengeAlreadyConsumed
	case OutcomeExpired:
		return mfa.ErrChallengeExpired
	case OutcomeFailed:
		return mfa.ErrTooManyAttempts
	}
	if c.Expired(s.now()) {
		if _, err := s.store.Expire(ctx, c.ID); err != nil {
			return err
		}
		c.Outcome = OutcomeExpired
		s.metrics.ChallengesExpired(1)
		return mfa.ErrChallengeExpired
	}
	return nil
}

// resolveRace explains a conditional write that found the challenge no
// longer pending.
func (s *service) resolveRace(ctx context.Context, id uuid.UUID, err error) error {
	if !errors.Is(err, ErrNotPending) {
		return err
	}
	c, gerr := s.store.Get(ctx, id)
	if gerr != nil {
		return gerr
	}
	if cerr := s.checkOpen(ctx, c); cerr != nil {
		return cerr
	}
	return err
}

func (s *service) verify(ctx context.Context, userID uuid.UUID, method Method, value string) error {
	value = strings.TrimSpace(value)
	switch method {
	case MethodTOTP, MethodQRScan:
		return s.totp.VerifyTOTP(ctx, userID, value)
	case MethodBackupCode:
		return s.backup.Consume(ctx, userID, value)
	}
	return ErrUnknownMethod
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Challenge, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Outcome == OutcomePending && c.Expired(s.now()) {
		if _, err := s.store.Expire(ctx, c.ID); err != nil {
			return nil, err
		}
		c.Outcome = OutcomeExpired
	}
	return c, nil
}

func (s *service) Sweep(ctx context.Context) (int, error) {
	n, err := s.store.ExpireBefore(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.metrics.ChallengesExpired(n)
		s.log.DebugContext(ctx, "expired challenges swept", slog.Int("count", n))
	}
	return n, nil
}

func (s *service) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.log.ErrorContext(ctx, "challenge sweep failed", logger.Error(err))
			}
		}
	}
}

func (s *service) attempted(ctx context.Context, c *Challenge, method Method, err error) {
	outcome := string(c.Outcome)
	if err != nil && c.Outcome == OutcomePending {
		outcome = string(mfa.Kind(err))
	}
	s.metrics.ChallengeAttempt(string(method), outcome)
	s.record(ctx, "challenge.attempt", c, err,
		audit.WithMetadata("method", string(method)),
		audit.WithMetadata("level", c.Level),
		audit.WithMetadata("subject_id", c.SubjectID),
		audit.WithMetadata("attempts", c.Attempts),
	)

	if err != nil {
		s.log.InfoContext(ctx, "challenge attempt refused",
			logger.ChallengeID(c.ID),
			logger.Method(method),
			logger.Outcome(mfa.Kind(err)),
		)
	}
}

func (s *service) record(ctx context.Context, action string, c *Challenge, cause error, opts ...audit.EventOption) {
	if s.audit == nil {
		return
	}
	opts = append(opts, audit.WithUserID(c.UserID.String()), audit.WithResource(auditResource, c.ID.String()))

	var err error
	switch {
	case cause == nil:
		err = s.audit.Log(ctx, action, opts...)
	case mfa.IsDomain(cause):
		err = s.audit.LogError(ctx, action, cause, append(opts, audit.WithResult(audit.ResultFailure))...)
	default:
		err = s.audit.LogError(ctx, action, cause, opts...)
	}
	if err != nil {
		s.log.ErrorContext(ctx, "audit log failed", logger.Error(err))
	}
}
