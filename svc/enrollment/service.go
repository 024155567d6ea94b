package enrollment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cepalab/signguard/pkg/audit"
	"github.com/cepalab/signguard/pkg/logger"
	"github.com/cepalab/signguard/pkg/metrics"
	"github.com/cepalab/signguard/pkg/secrets"
	"github.com/cepalab/signguard/pkg/statemachine"
	"github.com/cepalab/signguard/pkg/totp"
	"github.com/cepalab/signguard/svc/backupcode"
	"github.com/cepalab/signguard/svc/mfa"
)

const (
	// MaxFailedAttempts invalid first codes within FailureWindow trigger a lockout.
	MaxFailedAttempts = 3
	FailureWindow     = 15 * time.Minute
	BaseLockout       = 30 * time.Second
	MaxLockout        = time.Hour
)

const auditResource = "security_profile"

// StartResult carries the one-time views of a new secret.
type StartResult struct {
	SecretDisplay   *secrets.OneTime[string]
	ProvisioningURI *secrets.OneTime[string]
	QRCode          *secrets.OneTime[string]
}

// ConfirmResult carries the first batch of backup codes.
type ConfirmResult struct {
	BackupCodes *secrets.OneTime[[]string]
}

// StatusView is the read model of a profile.
type StatusView struct {
	State                State
	Status               Status
	Enabled              bool
	LockedUntil          time.Time
	LastUsedAt           time.Time
	BackupCodesRemaining int
}

// Service drives the second-factor enrollment lifecycle.
type Service interface {
	// Start issues a new secret. An enabled user needs force.
	Start(ctx context.Context, userID uuid.UUID, force bool) (*StartResult, error)
	// Confirm activates the pending secret with its first code.
	Confirm(ctx context.Context, userID uuid.UUID, code string) (*ConfirmResult, error)
	// VerifyTOTP checks a code against the active secret. A code is accepted once.
	VerifyTOTP(ctx context.Context, userID uuid.UUID, code string) error
	// RegenerateBackupCodes replaces the backup codes after a valid TOTP code.
	RegenerateBackupCodes(ctx context.Context, userID uuid.UUID, code string) (*secrets.OneTime[[]string], error)
	// Disable turns the second factor off. code is a TOTP or backup code;
	// it is ignored when only a pending enrollment exists.
	Disable(ctx context.Context, userID uuid.UUID, code string) error
	// Status returns the current profile view.
	Status(ctx context.Context, userID uuid.UUID) (*StatusView, error)
}

type service struct {
	store       Store
	keyring     *secrets.Keyring
	backup      backupcode.Service
	provisioner *Provisioner

	notifier Notifier
	audit    *audit.Logger
	metrics  metrics.Recorder
	log      *slog.Logger
	now      func() time.Time
}

// ServiceOption configures the service.
type ServiceOption func(*service)

func WithNotifier(n Notifier) ServiceOption {
	return func(s *service) {
		if n != nil {
			s.notifier = n
		}
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

// NewService creates the enrollment service. Panics on nil dependencies.
func NewService(store Store, keyring *secrets.Keyring, backup backupcode.Service, provisioner *Provisioner, opts ...ServiceOption) Service {
	if store == nil {
		panic("enrollment: store is required")
	}
	if keyring == nil {
		panic("enrollment: keyring is required")
	}
	if backup == nil {
		panic("enrollment: backup code service is required")
	}
	if provisioner == nil {
		panic("enrollment: provisioner is required")
	}

	s := &service{
		store:       store,
		keyring:     keyring,
		backup:      backup,
		provisioner: provisioner,
		notifier:    NoopNotifier{},
		metrics:     metrics.Noop{},
		log:         slog.New(slog.DiscardHandler),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func secretScope(userID uuid.UUID) string {
	return "totp:" + userID.String()
}

// load returns the stored profile or a fresh disabled one.
func (s *service) load(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	p, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return newProfile(userID), nil
	}
	return p, err
}

func (s *service) fire(ctx context.Context, p *Profile, event Event, now time.Time, force bool) error {
	next, err := lifecycle.Next(ctx, p.State, event, transition{profile: p, now: now, force: force})
	if err != nil {
		return err
	}
	p.State = next
	return nil
}

func (s *service) Start(ctx context.Context, userID uuid.UUID, force bool) (*StartResult, error) {
	prov, err := s.provisioner.Issue(ctx, userID)
	if err != nil {
		return nil, err
	}
	sealed, err := s.keyring.SealString(secretScope(userID), prov.secret)
	if err != nil {
		return nil, errors.Join(ErrFailedToSeal, err)
	}

	err = mfa.RetryOnce(ctx, func(ctx context.Context) error {
		now := s.now()
		p, err := s.load(ctx, userID)
		if err != nil {
			return err
		}

		event := EventIssue
		if p.State == StateEnabled {
			event = EventReissue
		}
		if err := s.fire(ctx, p, event, now, force); err != nil {
			if statemachine.IsTransitionRejectedError(err) {
				return mfa.ErrAlreadyEnabled
			}
			return err
		}

		p.PendingSecretEnc = sealed
		if !p.FirstFailedAt.IsZero() && now.Sub(p.FirstFailedAt) > FailureWindow {
			p.resetFailures()
		}

		// Stays in secret_issued while a lockout is running; Confirm resumes it.
		if lifecycle.Can(ctx, p.State, EventPresent, transition{profile: p, now: now}) {
			if err := s.fire(ctx, p, EventPresent, now, false); err != nil {
				return err
			}
		}

		return s.store.Save(ctx, p)
	})
	if err != nil {
		s.refused(ctx, "enrollment.start", userID, err)
		return nil, err
	}

	s.metrics.EnrollmentEvent(string(EventIssue))
	s.succeeded(ctx, "enrollment.start", userID, audit.WithMetadata("force", force))
	s.log.InfoContext(ctx, "enrollment started", logger.UserID(userID))

	return &StartResult{
		SecretDisplay:   prov.SecretDisplay,
		ProvisioningURI: prov.ProvisioningURI,
		QRCode:          prov.QRCode,
	}, nil
}

func (s *service) Confirm(ctx context.Context, userID uuid.UUID, code string) (*ConfirmResult, error) {
	var lockedFor time.Duration

	err := mfa.RetryOnce(ctx, func(ctx context.Context) error {
		now := s.now()
		p, err := s.load(ctx, userID)
		if err != nil {
			return err
		}

		switch p.State {
		case StateDisabled:
			return ErrNothingToConfirm
		case StateEnabled:
			return mfa.ErrAlreadyEnabled
		}

		if p.Locked(now) {
			return &mfa.LockoutError{RetryAfter: p.LockedUntil.Sub(now)}
		}
		if p.State == StateSecretIssued {
			if err := s.fire(ctx, p, EventResume, now, false); err != nil {
				return err
			}
		}

		secret, err := s.keyring.OpenString(secretScope(userID), p.PendingSecretEnc)
		if err != nil {
			return err
		}
		step, ok, err := totp.Match(secret, code, now)
		if err != nil {
			return err
		}
		if !ok {
			err := s.confirmFailed(ctx, p, now)
			if retry, locked := mfa.RetryAfter(err); locked {
				lockedFor = retry
			}
			return err
		}

		if err := s.fire(ctx, p, EventConfirm, now, false); err != nil {
			return err
		}

		p.SecretEnc = p.PendingSecretEnc
		p.PendingSecretEnc = ""
		p.resetFailures()
		p.Lockouts = 0
		p.LockedUntil = time.Time{}
		p.LastTOTPStep = max(p.LastTOTPStep, step)
		p.EnabledAt = now
		p.LastUsedAt = now

		return s.store.Save(ctx, p)
	})
	if err != nil {
		if lockedFor > 0 {
			s.notify(ctx, Notice{Kind: NoticeLockedOut, UserID: userID, OccurredAt: s.now(), RetryAfter: lockedFor})
		}
		s.refused(ctx, "enrollment.confirm", userID, err)
		return nil, err
	}

	// Only the confirmation that committed the profile issues codes.
	codes, err := mfa.RetryOnceValue(ctx, func(ctx context.Context) (*secrets.OneTime[[]string], error) {
		return s.backup.Regenerate(ctx, userID)
	})
	if err != nil {
		s.log.ErrorContext(ctx, "backup codes not issued after confirmation",
			logger.UserID(userID),
			logger.Error(err),
		)
		s.refused(ctx, "enrollment.confirm", userID, err)
		return nil, errors.Join(ErrBackupCodesNotIssued, err)
	}

	s.metrics.EnrollmentEvent(string(EventConfirm))
	s.succeeded(ctx, "enrollment.confirm", userID)
	s.log.InfoContext(ctx, "two-factor enabled", logger.UserID(userID))
	s.notify(ctx, Notice{Kind: NoticeEnabled, UserID: userID, OccurredAt: s.now()})

	return &ConfirmResult{BackupCodes: codes}, nil
}

// confirmFailed counts an invalid first code and locks the enrollment on
// the last allowed failure. The returned error is always a domain error.
func (s *service) confirmFailed(ctx context.Context, p *Profile, now time.Time) error {
	if p.FirstFailedAt.IsZero() || now.Sub(p.FirstFailedAt) > FailureWindow {
		p.FailedAttempts = 0
		p.FirstFailedAt = now
	}
	p.FailedAttempts++

	if p.FailedAttempts < MaxFailedAttempts {
		if err := s.store.Save(ctx, p); err != nil {
			return err
		}
		return &mfa.AttemptsError{Remaining: MaxFailedAttempts - p.FailedAttempts}
	}

	if err := s.fire(ctx, p, EventLockout, now, false); err != nil {
		return err
	}
	p.Lockouts++
	lock := lockoutDuration(p.Lockouts, BaseLockout, MaxLockout)
	p.LockedUntil = now.Add(lock)
	p.resetFailures()

	if err := s.store.Save(ctx, p); err != nil {
		return err
	}
	s.metrics.EnrollmentEvent(string(EventLockout))
	s.log.WarnContext(ctx, "enrollment locked",
		logger.UserID(p.UserID),
		slog.Int("lockouts", p.Lockouts),
		logger.Duration(lock),
	)
	return &mfa.LockoutError{RetryAfter: lock}
}

func (s *service) VerifyTOTP(ctx context.Context, userID uuid.UUID, code string) error {
	return mfa.RetryOnce(ctx, func(ctx context.Context) error {
		now := s.now()
		p, err := s.store.Get(ctx, userID)
		if errors.Is(err, ErrProfileNotFound) {
			return mfa.ErrNotEnrolled
		}
		if err != nil {
			return err
		}
		if !p.HasActiveSecret() {
			return mfa.ErrNotEnrolled
		}

		secret, err := s.keyring.OpenString(secretScope(userID), p.SecretEnc)
		if err != nil {
			return err
		}
		step, ok, err := totp.Match(secret, code, now)
		if err != nil {
			return err
		}
		if !ok {
			return mfa.ErrInvalidCode
		}
		if step <= p.LastTOTPStep {
			return ErrCodeReplayed
		}

		advanced, err := s.store.AdvanceStep(ctx, userID, step, now)
		if err != nil {
			return err
		}
		if !advanced {
			return ErrCodeReplayed
		}
		return nil
	})
}

func (s *service) RegenerateBackupCodes(ctx context.Context, userID uuid.UUID, code string) (*secrets.OneTime[[]string], error) {
	if err := s.VerifyTOTP(ctx, userID, code); err != nil {
		s.refused(ctx, "backup_codes.regenerate", userID, err)
		return nil, err
	}

	codes, err := mfa.RetryOnceValue(ctx, func(ctx context.Context) (*secrets.OneTime[[]string], error) {
		return s.backup.Regenerate(ctx, userID)
	})
	if err != nil {
		s.refused(ctx, "backup_codes.regenerate", userID, err)
		return nil, err
	}

	s.metrics.EnrollmentEvent("regenerate_backup_codes")
	s.succeeded(ctx, "backup_codes.regenerate", userID)
	s.notify(ctx, Notice{Kind: NoticeBackupCodesRegenerated, UserID: userID, OccurredAt: s.now()})

	return codes, nil
}

func (s *service) Disable(ctx context.Context, userID uuid.UUID, code string) error {
	p, err := s.store.Get(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) || (err == nil && p.State == StateDisabled) {
		return mfa.ErrNotEnrolled
	}
	if err != nil {
		return err
	}

	if p.HasActiveSecret() {
		if err := s.verifyAny(ctx, userID, code); err != nil {
			s.refused(ctx, "enrollment.disable", userID, err)
			return err
		}
	}

	err = mfa.RetryOnce(ctx, func(ctx context.Context) error {
		p, err := s.store.Get(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.fire(ctx, p, EventDisable, s.now(), false); err != nil {
			return err
		}
		if err := s.backup.Revoke(ctx, userID); err != nil {
			return err
		}

		p.SecretEnc = ""
		p.PendingSecretEnc = ""
		p.resetFailures()
		p.Lockouts = 0
		p.LockedUntil = time.Time{}
		p.EnabledAt = time.Time{}
		return s.store.Save(ctx, p)
	})
	if err != nil {
		s.refused(ctx, "enrollment.disable", userID, err)
		return err
	}

	s.metrics.EnrollmentEvent(string(EventDisable))
	s.succeeded(ctx, "enrollment.disable", userID)
	s.log.InfoContext(ctx, "two-factor disabled", logger.UserID(userID))
	if p.HasActiveSecret() {
		s.notify(ctx, Notice{Kind: NoticeDisabled, UserID: userID, OccurredAt: s.now()})
	}
	return nil
}

// verifyAny accepts either a TOTP code or a backup code.
func (s *service) verifyAny(ctx context.Context, userID uuid.UUID, code string) error {
	if _, ok := backupcode.Normalize(code); ok {
		return s.backup.Consume(ctx, userID, code)
	}
	return s.VerifyTOTP(ctx, userID, code)
}

func (s *service) Status(ctx context.Context, userID uuid.UUID) (*StatusView, error) {
	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &StatusView{
		State:      p.State,
		Status:     p.State.Status(),
		Enabled:    p.HasActiveSecret(),
		LastUsedAt: p.LastUsedAt,
	}
	if p.Locked(s.now()) {
		view.LockedUntil = p.LockedUntil
	}
	if view.Enabled {
		if view.BackupCodesRemaining, err = s.backup.Remaining(ctx, userID); err != nil {
			return nil, err
		}
	}
	return view, nil
}

func (s *service) notify(ctx context.Context, n Notice) {
	if err := s.notifier.Notify(context.WithoutCancel(ctx), n); err != nil {
		s.log.WarnContext(ctx, "security notice not delivered",
			logger.UserID(n.UserID),
			logger.Event(string(n.Kind)),
			logger.Error(err),
		)
	}
}

func (s *service) succeeded(ctx context.Context, action string, userID uuid.UUID, opts ...audit.EventOption) {
	if s.audit == nil {
		return
	}
	opts = append(opts, audit.WithUserID(userID.String()), audit.WithResource(auditResource, userID.String()))
	if err := s.audit.Log(ctx, action, opts...); err != nil {
		s.log.ErrorContext(ctx, "audit log failed", logger.Error(err))
	}
}

func (s *service) refused(ctx context.Context, action string, userID uuid.UUID, cause error) {
	if s.audit == nil {
		return
	}
	opts := []audit.EventOption{
		audit.WithUserID(userID.String()),
		audit.WithResource(auditResource, userID.String()),
		audit.WithMetadata("reason", string(mfa.Kind(cause))),
	}
	if mfa.IsDomain(cause) {
		opts = append(opts, audit.WithResult(audit.ResultFailure))
	}
	if err := s.audit.LogError(ctx, action, cause, opts...); err != nil {
		s.log.ErrorContext(ctx, "audit log failed", logger.Error(err))
	}
}
