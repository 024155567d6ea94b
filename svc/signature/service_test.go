package signature_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cepalab/signguard/pkg/audit"
	"github.com/cepalab/signguard/svc/challenge"
	"github.com/cepalab/signguard/svc/mfa"
	"github.com/cepalab/signguard/svc/signature"
)

const goodCode = "654321"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeTOTP struct{}

func (fakeTOTP) VerifyTOTP(_ context.Context, _ uuid.UUID, code string) error {
	if code != goodCode {
		return mfa.ErrInvalidCode
	}
	return nil
}

type fakeBackup struct{}

func (fakeBackup) Consume(context.Context, uuid.UUID, string) error { return mfa.ErrInvalidCode }

type fixture struct {
	svc        signature.Service
	challenges challenge.Service
	clock      *clock
	audit      *audit.MemoryStorage
	userID     uuid.UUID
}

var signingKey = bytes.Repeat([]byte{9}, 32)

func newFixture(t *testing.T, opts ...signature.ServiceOption) *fixture {
	t.Helper()

	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	challenges := challenge.NewService(challenge.NewMemoryStorage(), fakeTOTP{}, fakeBackup{},
		challenge.WithClock(clk.Now))
	auditStorage := audit.NewMemoryStorage()

	opts = append([]signature.ServiceOption{
		signature.WithClock(clk.Now),
		signature.WithAudit(audit.NewLogger(auditStorage, audit.WithClock(clk.Now))),
	}, opts...)
	svc := signature.NewService(challenges, signature.NewMemoryClaims(clk.Now), signingKey, opts...)

	return &fixture{svc: svc, challenges: challenges, clock: clk, audit: auditStorage, userID: uuid.New()}
}

// pass opens the gate for doc at level and answers it with method.
func (f *fixture) pass(t *testing.T, doc string, level signature.Level, method challenge.Method) *challenge.Challenge {
	t.Helper()
	ctx := context.Background()

	gate, err := f.svc.Gate(ctx, f.userID, doc, level)
	require.NoError(t, err)
	require.True(t, gate.Required)

	res, err := f.challenges.Attempt(ctx, challenge.AttemptParams{
		ChallengeID: gate.Challenge.ID,
		UserID:      f.userID,
		Method:      method,
		Value:       goodCode,
	})
	require.NoError(t, err)
	return res.Challenge
}

func TestGate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	gate, err := f.svc.Gate(ctx, f.userID, "doc-1", signature.LevelBasico)
	require.NoError(t, err)
	assert.False(t, gate.Required)
	assert.Nil(t, gate.Challenge)

	gate, err = f.svc.Gate(ctx, f.userID, "doc-2", signature.LevelCritico)
	require.NoError(t, err)
	require.True(t, gate.Required)
	assert.ElementsMatch(t,
		[]challenge.Method{challenge.MethodQRScan, challenge.MethodBackupCode},
		gate.Challenge.AllowedMethods)
	assert.Equal(t, "critico", gate.Challenge.Level)

	_, err = f.svc.Gate(ctx, f.userID, "doc-3", signature.Level("ultra"))
	assert.ErrorIs(t, err, signature.ErrUnknownLevel)

	_, err = f.svc.Gate(ctx, f.userID, "  ", signature.LevelAlto)
	assert.ErrorIs(t, err, signature.ErrInvalidParams)
}

func TestFinalizeAndRedeem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	c := f.pass(t, "doc-1", signature.LevelIntermediario, challenge.MethodTOTP)

	auth, err := f.svc.Finalize(ctx, f.userID, "doc-1", c.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, auth.Token)
	assert.Equal(t, f.clock.Now().Add(signature.DefaultAuthorizationTTL), auth.ExpiresAt)
	assert.Equal(t, signature.LevelIntermediario, auth.Level)
	assert.Equal(t, challenge.MethodTOTP, auth.Method)

	_, err = f.svc.Finalize(ctx, f.userID, "doc-1", c.ID)
	require.ErrorIs(t, err, mfa.ErrPolicyDenied, "one authorization per challenge")

	_, err = f.svc.Redeem(ctx, auth.Token, "doc-2")
	require.ErrorIs(t, err, mfa.ErrPolicyDenied)

	f.clock.Advance(time.Minute)
	rec, err := f.svc.Redeem(ctx, auth.Token, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, signature.Record{
		DocumentID:    "doc-1",
		SignerID:      f.userID,
		SecurityLevel: signature.LevelIntermediario,
		ChallengeID:   c.ID,
		Method:        challenge.MethodTOTP,
		SignedAt:      f.clock.Now(),
	}, *rec)

	_, err = f.svc.Redeem(ctx, auth.Token, "doc-1")
	assert.ErrorIs(t, err, mfa.ErrPolicyDenied, "tokens are single use")

	events, err := f.audit.Query(ctx, audit.Criteria{Action: "signature.finalize", Result: audit.ResultSuccess})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "doc-1", events[0].ResourceID)
}

func TestFinalizeDenied(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("challenge for another document", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		c := f.pass(t, "doc-B", signature.LevelAlto, challenge.MethodTOTP)
		_, err := f.svc.Finalize(ctx, f.userID, "doc-A", c.ID)
		assert.ErrorIs(t, err, mfa.ErrPolicyDenied)
	})

	t.Run("challenge of another user", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		c := f.pass(t, "doc-1", signature.LevelAlto, challenge.MethodTOTP)
		_, err := f.svc.Finalize(ctx, uuid.New(), "doc-1", c.ID)
		assert.ErrorIs(t, err, mfa.ErrPolicyDenied)
	})

	t.Run("pending challenge", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		gate, err := f.svc.Gate(ctx, f.userID, "doc-1", signature.LevelAlto)
		require.NoError(t, err)
		_, err = f.svc.Finalize(ctx, f.userID, "doc-1", gate.Challenge.ID)
		assert.ErrorIs(t, err, mfa.ErrPolicyDenied)
	})

	t.Run("unknown challenge", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, err := f.svc.Finalize(ctx, f.userID, "doc-1", uuid.New())
		assert.ErrorIs(t, err, mfa.ErrPolicyDenied)
	})

	t.Run("stale answer for a fresh level", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		c := f.pass(t, "doc-1", signature.LevelAlto, challenge.MethodTOTP)
		f.clock.Advance(signature.DefaultFreshness + time.Second)
		_, err := f.svc.Finalize(ctx, f.userID, "doc-1", c.ID)
		assert.ErrorIs(t, err, mfa.ErrPolicyDenied)

		events, err := f.audit.Query(ctx, audit.Criteria{Action: "signature.finalize", Result: audit.ResultFailure})
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})

	t.Run("method no longer allowed", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		c := f.pass(t, "doc-1", signature.LevelAlto, challenge.MethodTOTP)

		strict := signature.DefaultPolicy()
		strict.Levels[signature.LevelAlto] = signature.Rule{
			Methods:           []challenge.Method{challenge.MethodQRScan},
			RequiresChallenge: true,
			Fresh:             true,
		}
		svc := signature.NewService(f.challenges, signature.NewMemoryClaims(f.clock.Now), signingKey,
			signature.WithClock(f.clock.Now), signature.WithPolicy(strict))
		_, err := svc.Finalize(ctx, f.userID, "doc-1", c.ID)
		assert.ErrorIs(t, err, mfa.ErrPolicyDenied)
	})
}

func TestFinalizeNotFreshLevel(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	c := f.pass(t, "doc-1", signature.LevelIntermediario, challenge.MethodTOTP)
	f.clock.Advance(time.Hour)

	_, err := f.svc.Finalize(context.Background(), f.userID, "doc-1", c.ID)
	require.NoError(t, err)

	f2 := newFixture(t)
	c2 := f2.pass(t, "doc-1", signature.LevelIntermediario, challenge.MethodTOTP)
	f2.clock.Advance(signature.MaxChallengeAge + time.Second)
	_, err = f2.svc.Finalize(context.Background(), f2.userID, "doc-1", c2.ID)
	assert.ErrorIs(t, err, mfa.ErrPolicyDenied)
}

func TestCriticoRequiresQRScan(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	gate, err := f.svc.Gate(ctx, f.userID, "contract-9", signature.LevelCritico)
	require.NoError(t, err)

	_, err = f.challenges.Attempt(ctx, challenge.AttemptParams{
		ChallengeID: gate.Challenge.ID, UserID: f.userID, Method: challenge.MethodTOTP, Value: goodCode,
	})
	require.ErrorIs(t, err, mfa.ErrPolicyDenied)

	_, err = f.challenges.Attempt(ctx, challenge.AttemptParams{
		ChallengeID: gate.Challenge.ID, UserID: f.userID, Method: challenge.MethodQRScan, Value: goodCode,
	})
	require.NoError(t, err)

	auth, err := f.svc.Finalize(ctx, f.userID, "contract-9", gate.Challenge.ID)
	require.NoError(t, err)
	assert.Equal(t, challenge.MethodQRScan, auth.Method)
	assert.Equal(t, signature.LevelCritico, auth.Level)
}

func TestRedeemRejectsBadTokens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	c := f.pass(t, "doc-1", signature.LevelAlto, challenge.MethodTOTP)
	auth, err := f.svc.Finalize(ctx, f.userID, "doc-1", c.ID)
	require.NoError(t, err)

	payload, sig, _ := strings.Cut(auth.Token, ".")
	tampered := payload + "." + strings.Repeat("A", len(sig))

	for name, tok := range map[string]string{
		"empty":    "",
		"garbage":  "not-a-token",
		"tampered": tampered,
	} {
		_, err := f.svc.Redeem(ctx, tok, "doc-1")
		assert.ErrorIs(t, err, mfa.ErrPolicyDenied, name)
	}

	other := signature.NewService(f.challenges, signature.NewMemoryClaims(nil), bytes.Repeat([]byte{8}, 32))
	_, err = other.Redeem(ctx, auth.Token, "doc-1")
	assert.ErrorIs(t, err, mfa.ErrPolicyDenied, "foreign key")

	f.clock.Advance(signature.DefaultAuthorizationTTL)
	_, err = f.svc.Redeem(ctx, auth.Token, "doc-1")
	assert.ErrorIs(t, err, mfa.ErrPolicyDenied, "expired")
}

func TestNewServicePanics(t *testing.T) {
	t.Parallel()

	challenges := challenge.NewService(challenge.NewMemoryStorage(), fakeTOTP{}, fakeBackup{})
	claims := signature.NewMemoryClaims(nil)

	assert.Panics(t, func() { signature.NewService(nil, claims, signingKey) })
	assert.Panics(t, func() { signature.NewService(challenges, nil, signingKey) })
	assert.Panics(t, func() { signature.NewService(challenges, claims, []byte("short")) })
	assert.Panics(t, func() {
		signature.NewService(challenges, claims, signingKey, signature.WithPolicy(signature.Policy{}))
	})
}

func TestMemoryClaims(t *testing.T) {
	t.Parallel()

	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	claims := signature.NewMemoryClaims(clk.Now)
	ctx := context.Background()

	ok, err := claims.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = claims.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	clk.Advance(time.Minute)
	ok, err = claims.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "claims lapse after their ttl")
}
