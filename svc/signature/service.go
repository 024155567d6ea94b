package signature

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
	"github.com/cepalab/signguard/pkg/token"
	"github.com/cepalab/signguard/svc/challenge"
	"github.com/cepalab/signguard/svc/mfa"
)

const (
	DefaultAuthorizationTTL = 10 * time.Minute

	// MaxChallengeAge is the oldest succeeded challenge that can still be
	// finalized. Finalize claims are kept this long.
	MaxChallengeAge = 24 * time.Hour

	maxDocumentIDLen = 255
	auditResource    = "document"
)

// Config holds signature settings.
type Config struct {
	AuthorizationTTL time.Duration `env:"SIGNGUARD_AUTHORIZATION_TTL" envDefault:"10m"`
	Freshness        time.Duration `env:"SIGNGUARD_FRESHNESS"         envDefault:"5m"`
	PolicyFile       string        `env:"SIGNGUARD_POLICY_FILE"`
}

// Policy builds the effective policy: the file when set, else the defaults,
// with Freshness overriding either.
func (c Config) Policy() (Policy, error) {
	p := DefaultPolicy()
	if c.PolicyFile != "" {
		var err error
		if p, err = LoadPolicy(c.PolicyFile); err != nil {
			return Policy{}, err
		}
	}
	if c.Freshness > 0 {
		p.Freshness = c.Freshness
	}
	return p, p.Validate()
}

// Challenges is the subset of the challenge service used here.
type Challenges interface {
	Open(ctx context.Context, params challenge.OpenParams) (*challenge.Challenge, error)
	Get(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error)
}

// Gate tells the caller what a signature on a document requires.
type Gate struct {
	Level     Level
	Required  bool
	Challenge *challenge.Challenge // nil when not required
}

// Authorization is a short-lived, single-use permission to sign.
type Authorization struct {
	Token       string
	ExpiresAt   time.Time
	ChallengeID uuid.UUID
	Level       Level
	Method      challenge.Method
}

// Record is the signature evidence handed to the signing collaborator.
type Record struct {
	DocumentID    string           `json:"document_id"`
	SignerID      uuid.UUID        `json:"signer_id"`
	SecurityLevel Level            `json:"security_level"`
	ChallengeID   uuid.UUID        `json:"challenge_id"`
	Method        challenge.Method `json:"method"`
	SignedAt      time.Time        `json:"signed_at"`
}

// grant is the signed payload of an authorization token.
type grant struct {
	ID          string           `json:"jti"`
	ChallengeID uuid.UUID        `json:"cid"`
	DocumentID  string           `json:"doc"`
	SignerID    uuid.UUID        `json:"sub"`
	Level       Level            `json:"lvl"`
	Method      challenge.Method `json:"mth"`
	IssuedAt    time.Time        `json:"iat"`
	Exp         time.Time        `json:"exp"`
}

func (g grant) ExpiresAt() time.Time { return g.Exp }

// Service applies the signature policy.
type Service interface {
	// Gate returns what signing documentID at level requires, opening a
	// challenge when one is needed.
	Gate(ctx context.Context, userID uuid.UUID, documentID string, level Level) (*Gate, error)
	// Finalize turns a succeeded challenge into an authorization token.
	// Anything short of a matching, fresh, unused success is ErrPolicyDenied.
	Finalize(ctx context.Context, userID uuid.UUID, documentID string, challengeID uuid.UUID) (*Authorization, error)
	// Redeem verifies an authorization token for documentID, once.
	Redeem(ctx context.Context, authorization, documentID string) (*Record, error)
	// Policy returns the policy in effect.
	Policy() Policy
}

type service struct {
	challenges Challenges
	claims     Claims
	key        []byte
	policy     Policy
	ttl        time.Duration

	audit   *audit.Logger
	metrics metrics.Recorder
	log     *slog.Logger
	now     func() time.Time
}

// ServiceOption configures the service.
type ServiceOption func(*service)

// WithPolicy replaces DefaultPolicy. The policy must be valid.
func WithPolicy(p Policy) ServiceOption {
	return func(s *service) { s.policy = p }
}

func WithAuthorizationTTL(d time.Duration) ServiceOption {
	return func(s *service) {
		if d > 0 {
			s.ttl = d
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

// NewService creates the policy engine. key signs authorization tokens.
// Panics on nil dependencies, a short key or an invalid policy.
func NewService(challenges Challenges, claims Claims, key []byte, opts ...ServiceOption) Service {
	if challenges == nil {
		panic("signature: challenge service is required")
	}
	if claims == nil {
		panic("signature: claims store is required")
	}
	if len(key) < token.MinKeySize {
		panic("signature: signing key must be at least 32 bytes")
	}

	s := &service{
		challenges: challenges,
		claims:     claims,
		key:        key,
		policy:     DefaultPolicy(),
		ttl:        DefaultAuthorizationTTL,
		metrics:    metrics.Noop{},
		log:        slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.policy.Validate(); err != nil {
		panic(err.Error())
	}
	return s
}

func (s *service) Policy() Policy { return s.policy }

func validateDocumentID(id string) (string, error) {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return "", fmt.Errorf("%w: document id is required", ErrInvalidParams)
	case len(id) > maxDocumentIDLen:
		return "", fmt.Errorf("%w: document id is too long", ErrInvalidParams)
	}
	return id, nil
}

func (s *service) Gate(ctx context.Context, userID uuid.UUID, documentID string, level Level) (*Gate, error) {
	documentID, err := validateDocumentID(documentID)
	if err != nil {
		return nil, err
	}
	rule, ok := s.policy.Rule(level)
	if !ok {
		return nil, ErrUnknownLevel
	}
	if !rule.RequiresChallenge {
		return &Gate{Level: level}, nil
	}

	c, err := s.challenges.Open(ctx, challenge.OpenParams{
		UserID:         userID,
		SubjectID:      documentID,
		Level:          string(level),
		AllowedMethods: rule.Methods,
	})
	if err != nil {
		return nil, err
	}
	return &Gate{Level: level, Required: true, Challenge: c}, nil
}

func (s *service) Finalize(ctx context.Context, userID uuid.UUID, documentID string, challengeID uuid.UUID) (*Authorization, error) {
	documentID, err := validateDocumentID(documentID)
	if err != nil {
		return nil, err
	}

	auth, err := s.finalize(ctx, userID, documentID, challengeID)
	if err != nil {
		s.record(ctx, "signature.finalize", userID, documentID, err, audit.WithMetadata("challenge_id", challengeID.String()))
		return nil, err
	}

	s.metrics.AuthorizationIssued(string(auth.Level))
	s.record(ctx, "signature.finalize", userID, documentID, nil,
		audit.WithMetadata("challenge_id", challengeID.String()),
		audit.WithMetadata("level", string(auth.Level)),
		audit.WithMetadata("method", string(auth.Method)),
	)
	s.log.InfoContext(ctx, "signature authorized",
		logger.UserID(userID),
		logger.ChallengeID(challengeID),
		logger.SecurityLevel(auth.Level),
		logger.Method(auth.Method),
	)
	return auth, nil
}

func (s *service) finalize(ctx context.Context, userID uuid.UUID, documentID string, challengeID uuid.UUID) (*Authorization, error) {
	now := s.now()

	c, err := s.challenges.Get(ctx, challengeID)
	switch {
	case errors.Is(err, mfa.ErrNotFound):
		return nil, deny("unknown challenge")
	case err != nil:
		return nil, err
	case c.UserID != userID:
		return nil, deny("challenge belongs to another user")
	case c.SubjectID != documentID:
		return nil, deny("challenge was opened for another document")
	case c.Outcome != challenge.OutcomeSucceeded:
		return nil, deny("challenge has not succeeded")
	}

	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, deny("challenge has an unknown level")
	}
	rule, ok := s.policy.Rule(level)
	if !ok || !rule.RequiresChallenge || !rule.Allows(c.MethodUsed) {
		return nil, deny(fmt.Sprintf("method %s does not satisfy level %s", c.MethodUsed, level))
	}

	age := now.Sub(c.ConsumedAt)
	if age > MaxChallengeAge || (rule.Fresh && age > s.policy.Freshness) {
		return nil, deny("challenge is no longer fresh")
	}

	first, err := mfa.RetryOnceValue(ctx, func(ctx context.Context) (bool, error) {
		return s.claims.Claim(ctx, "finalize:"+challengeID.String(), MaxChallengeAge)
	})
	if err != nil {
		return nil, err
	}
	if !first {
		return nil, deny("authorization already issued for this challenge")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	g := grant{
		ID:          id.String(),
		ChallengeID: c.ID,
		DocumentID:  documentID,
		SignerID:    userID,
		Level:       level,
		Method:      c.MethodUsed,
		IssuedAt:    now,
		Exp:         now.Add(s.ttl),
	}
	tok, err := token.GenerateToken(g, s.key)
	if err != nil {
		return nil, err
	}

	return &Authorization{
		Token:       tok,
		ExpiresAt:   g.Exp,
		ChallengeID: c.ID,
		Level:       level,
		Method:      c.MethodUsed,
	}, nil
}

func (s *service) Redeem(ctx context.Context, authorization, documentID string) (*Record, error) {
	documentID, err := validateDocumentID(documentID)
	if err != nil {
		return nil, err
	}

	rec, err := s.redeem(ctx, authorization, documentID)
	if err != nil {
		s.metrics.AuthorizationRedeemed("denied")
		s.record(ctx, "signature.redeem", uuid.Nil, documentID, err)
		return nil, err
	}

	s.metrics.AuthorizationRedeemed("accepted")
	s.record(ctx, "signature.redeem", rec.SignerID, documentID, nil,
		audit.WithMetadata("challenge_id", rec.ChallengeID.String()),
		audit.WithMetadata("level", string(rec.SecurityLevel)),
	)
	return rec, nil
}

func (s *service) redeem(ctx context.Context, authorization, documentID string) (*Record, error) {
	now := s.now()

	g, err := token.ParseTokenAt[grant](strings.TrimSpace(authorization), s.key, now)
	switch {
	case errors.Is(err, token.ErrExpired):
		return nil, deny("authorization expired")
	case err != nil:
		return nil, deny("invalid authorization")
	case g.DocumentID != documentID:
		return nil, deny("authorization was issued for another document")
	}

	first, err := mfa.RetryOnceValue(ctx, func(ctx context.Context) (bool, error) {
		return s.claims.Claim(ctx, "redeem:"+g.ID, g.Exp.Sub(now))
	})
	if err != nil {
		return nil, err
	}
	if !first {
		return nil, deny("authorization already used")
	}

	return &Record{
		DocumentID:    g.DocumentID,
		SignerID:      g.SignerID,
		SecurityLevel: g.Level,
		ChallengeID:   g.ChallengeID,
		Method:        g.Method,
		SignedAt:      now,
	}, nil
}

func (s *service) record(ctx context.Context, action string, userID uuid.UUID, documentID string, cause error, opts ...audit.EventOption) {
	if s.audit == nil {
		return
	}
	opts = append(opts, audit.WithResource(auditResource, documentID))
	if userID != uuid.Nil {
		opts = append(opts, audit.WithUserID(userID.String()))
	}

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
