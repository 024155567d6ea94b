package twofactor_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cepalab/signguard/handler"
	"github.com/cepalab/signguard/modules/twofactor"
	"github.com/cepalab/signguard/pkg/audit"
	"github.com/cepalab/signguard/pkg/jwt"
	"github.com/cepalab/signguard/pkg/ratelimiter"
	"github.com/cepalab/signguard/pkg/secrets"
	"github.com/cepalab/signguard/pkg/totp"
	"github.com/cepalab/signguard/svc/backupcode"
	"github.com/cepalab/signguard/svc/challenge"
	"github.com/cepalab/signguard/svc/enrollment"
	"github.com/cepalab/signguard/svc/signature"
)

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

type fixture struct {
	router http.Handler
	clock  *clock
	tokens *jwt.Service
	userID uuid.UUID
	bearer string
}

func newFixture(t *testing.T, limit ratelimiter.Config) *fixture {
	t.Helper()

	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	keyring, err := secrets.NewKeyring(bytes.Repeat([]byte{1}, secrets.KeySize))
	require.NoError(t, err)
	tokens, err := jwt.New(bytes.Repeat([]byte{3}, jwt.MinKeySize))
	require.NoError(t, err)

	auditLogger := audit.NewLogger(audit.NewMemoryStorage(), audit.WithClock(clk.Now))
	backup := backupcode.NewService(backupcode.NewMemoryStorage(), bytes.Repeat([]byte{2}, 32), backupcode.WithClock(clk.Now))
	enr := enrollment.NewService(enrollment.NewMemoryStorage(), keyring, backup,
		enrollment.NewProvisioner("Cepalab Juridico", twofactor.ClaimsAccounts),
		enrollment.WithClock(clk.Now),
		enrollment.WithAudit(auditLogger),
	)
	challenges := challenge.NewService(challenge.NewMemoryStorage(), enr, backup,
		challenge.WithClock(clk.Now),
		challenge.WithAudit(auditLogger),
	)
	signatures := signature.NewService(challenges, signature.NewMemoryClaims(clk.Now), bytes.Repeat([]byte{4}, 32),
		signature.WithClock(clk.Now),
		signature.WithAudit(auditLogger),
	)

	store := ratelimiter.NewMemoryStore()
	t.Cleanup(store.Close)
	bucket, err := ratelimiter.NewBucket(store, limit)
	require.NoError(t, err)

	mod := twofactor.New(tokens, enr, challenges, signatures,
		twofactor.WithActivity(auditLogger),
		twofactor.WithRateLimiter(bucket),
	)
	r := chi.NewRouter()
	r.Mount("/2fa", mod.Handle())

	f := &fixture{router: r, clock: clk, tokens: tokens, userID: uuid.New()}
	f.bearer = f.token(t, f.userID)
	return f
}

func generousLimit() ratelimiter.Config {
	return ratelimiter.Config{Capacity: 100, RefillRate: 1, RefillInterval: time.Minute}
}

func (f *fixture) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	tok, err := f.tokens.Generate(jwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "ana@example.com",
	})
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, handler.JSONResponse) {
	t.Helper()
	return f.doAs(t, f.bearer, method, path, body)
}

func (f *fixture) doAs(t *testing.T, bearer, method, path, body string) (*httptest.ResponseRecorder, handler.JSONResponse) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var resp handler.JSONResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func jsonBody(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func dataMap(t *testing.T, resp handler.JSONResponse) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

func (f *fixture) code(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateAt(secret, f.clock.Now())
	require.NoError(t, err)
	return code
}

// enable enrolls the fixture user and returns the secret and backup codes.
func (f *fixture) enable(t *testing.T) (string, []string) {
	t.Helper()

	rec, resp := f.do(t, http.MethodPost, "/2fa/enrollment/start", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	secret := strings.ReplaceAll(dataMap(t, resp)["secret_display"].(string), " ", "")

	rec, resp = f.do(t, http.MethodPost, "/2fa/enrollment/confirm", jsonBody(t, map[string]string{"code": f.code(t, secret)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var codes []string
	for _, c := range dataMap(t, resp)["backup_codes"].([]any) {
		codes = append(codes, c.(string))
	}
	f.clock.Advance(totp.DefaultPeriod * time.Second)
	return secret, codes
}

func TestAuthentication(t *testing.T) {
	t.Parallel()

	f := newFixture(t, generousLimit())

	rec, resp := f.doAs(t, "", http.MethodGet, "/2fa/status", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "unauthorized", resp.Error.Code)

	rec, _ = f.doAs(t, "not-a-jwt", http.MethodGet, "/2fa/status", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t, generousLimit())

	rec, resp := f.do(t, http.MethodGet, "/2fa/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, resp)
	assert.Equal(t, "disabled", data["state"])
	assert.Equal(t, false, data["enabled"])
	assert.NotContains(t, data, "locked_until")

	f.enable(t)

	_, resp = f.do(t, http.MethodGet, "/2fa/status", "")
	data = dataMap(t, resp)
	assert.Equal(t, "enabled", data["state"])
	assert.Equal(t, true, data["enabled"])
	assert.EqualValues(t, backupcode.DefaultCount, data["backup_codes_remaining"])
}

func TestEnrollment(t *testing.T) {
	t.Parallel()

	f := newFixture(t, generousLimit())

	rec, resp := f.do(t, http.MethodPost, "/2fa/enrollment/start", `{"force":false}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	data := dataMap(t, resp)
	assert.Contains(t, data["provisioning_uri"], "otpauth://totp/")
	assert.Contains(t, data["provisioning_uri"], "ana%40example.com")
	assert.True(t, strings.HasPrefix(data["qr_code"].(string), "data:image/png;base64,"))

	rec, resp = f.do(t, http.MethodPost, "/2fa/enrollment/confirm", `{"code":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []string{"required"}, resp.Error.Details["code"])

	rec, _ = f.do(t, http.MethodPost, "/2fa/enrollment/confirm", `{"code":"12"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/2fa/enrollment/confirm", `{"code":"123456","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestEnrollmentConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t, generousLimit())
	_, codes := f.enable(t)
	assert.Len(t, codes, backupcode.DefaultCount)

	rec, resp := f.do(t, http.MethodPost, "/2fa/enrollment/start", `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_enabled", resp.Error.Code)

	rec, _ = f.do(t, http.MethodPost, "/2fa/enrollment/start", `{"force":true}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestConfirmLockout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, generousLimit())
	rec, _ := f.do(t, http.MethodPost, "/2fa/enrollment/start", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Seven digits can never match a TOTP.
	for want := 2; want >= 1; want-- {
		rec, resp := f.do(t, http.MethodPost, "/2fa/enrollment/confirm", `{"code":"0000000"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_code", resp.Error.Code)
		assert.EqualValues(t, want, resp.Meta["attempts_remaining"])
	}

	rec, resp := f.do(t, http.MethodPost, "/2fa/enrollment/confirm", `{"code":"0000000"}`)
	require.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.EqualValues(t, 30, resp.Meta["retry_after_seconds"])
	assert.Equal(t, "too_many_attempts", resp.Error.Code)
}

func TestConfirmWithoutEnrollment(t *testing.T) {
	t.Parallel()

	f := newFixture(t, generousLimit())
	rec, resp := f.do(t, http.MethodPost, "/2fa/enrollment/confirm", `{"code":"123456"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", resp.Error.Code)
}

func TestBackupCodesAndDisable(t *testing.T) {
	t.Parallel()

	f := newFixture(t, generousLimit())
	secret, _ := f.enable(t)

	rec, resp := f.do(t, http.MethodPost, "/2fa/backup-codes/regenerate", jsonBody(t, map[string]string{"code": f.code(t, secret)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fresh := dataMap(t, resp)["backup_codes"].([]any)
	require.Len(t, fresh, backupcode.DefaultCount)

	rec, _ = f.do(t, http.MethodPost, "/2fa/disable", jsonBody(t, map[string]string{"code": "ZZZZZ-ZZZZZ"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/2fa/disable", jsonBody(t, map[string]string{"code": fresh[0].(string)}))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, resp = f.do(t, http.MethodGet, "/2fa/status", "")
	assert.Equal(t, "disabled", dataMap(t, resp)["state"])
}

func TestSignatureFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, generousLimit())
	secret, _ := f.enable(t)

	rec, resp := f.do(t, http.MethodPost, "/2fa/challenge/open", `{"subject_id":"contract-7","security_level":"critico"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := dataMap(t, resp)
	assert.Equal(t, true, data["required"])
	assert.ElementsMatch(t, []any{"qr_scan", "backup_code"}, data["allowed_methods"])
	challengeID := data["challenge_id"].(string)

	attempt := func(method, value string) (*httptest.ResponseRecorder, handler.JSONResponse) {
		return f.do(t, http.MethodPost, "/2fa/challenge/attempt", jsonBody(t, map[string]string{
			"challenge_id": challengeID, "method": method, "value": value,
		}))
	}

	rec, resp = attempt("totp", f.code(t, secret))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "policy_denied", resp.Error.Code)

	rec, resp = attempt("qr_scan", f.code(t, secret))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "succeeded", dataMap(t, resp)["outcome"])

	rec, _ = attempt("qr_scan", f.code(t, secret))
	assert.Equal(t, http.StatusGone, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/2fa/signature/finalize", jsonBody(t, map[string]string{
		"document_id": "contract-8", "challenge_id": challengeID,
	}))
	assert.Equal(t, http.StatusForbidden, rec.Code, "challenge opened for another document")

	rec, resp = f.do(t, http.MethodPost, "/2fa/signature/finalize", jsonBody(t, map[string]string{
		"document_id": "contract-7", "challenge_id": challengeID,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data = dataMap(t, resp)
	assert.Equal(t, "qr_scan", data["method"])
	authToken := data["authorization_token"].(string)

	redeem := jsonBody(t, map[string]string{"document_id": "contract-7", "authorization_token": authToken})
	rec, resp = f.do(t, http.MethodPost, "/2fa/signature/redeem", redeem)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data = dataMap(t, resp)
	assert.Equal(t, f.userID.String(), data["signer_id"])
	assert.Equal(t, "critico", data["security_level"])
	assert.Equal(t, challengeID, data["challenge_id"])

	rec, _ = f.do(t, http.MethodPost, "/2fa/signature/redeem", redeem)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestChallengeOpenValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, generousLimit())

	rec, resp := f.do(t, http.MethodPost, "/2fa/challenge/open", `{"subject_id":"","security_level":"ultra"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, resp.Error.Details, "subject_id")
	assert.Contains(t, resp.Error.Details, "security_level")

	rec, resp = f.do(t, http.MethodPost, "/2fa/challenge/open", `{"subject_id":"doc-1","security_level":"basico"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := dataMap(t, resp)
	assert.Equal(t, false, data["required"])
	assert.NotContains(t, data, "challenge_id")
}

func TestChallengeAttemptErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, generousLimit())
	f.enable(t)

	rec, resp := f.do(t, http.MethodPost, "/2fa/challenge/attempt", `{"challenge_id":"nope","method":"sms","value":""}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Len(t, resp.Error.Details, 3)

	rec, _ = f.do(t, http.MethodPost, "/2fa/challenge/attempt", jsonBody(t, map[string]string{
		"challenge_id": uuid.NewString(), "method": "totp", "value": "123456",
	}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, resp = f.do(t, http.MethodPost, "/2fa/challenge/open", `{"subject_id":"doc-1","security_level":"alto"}`)
	challengeID := dataMap(t, resp)["challenge_id"].(string)

	other := f.token(t, uuid.New())
	rec, _ = f.doAs(t, other, http.MethodPost, "/2fa/challenge/attempt", jsonBody(t, map[string]string{
		"challenge_id": challengeID, "method": "totp", "value": "123456",
	}))
	assert.Equal(t, http.StatusNotFound, rec.Code, "challenges of other users are invisible")

	var last *httptest.ResponseRecorder
	for range challenge.DefaultMaxAttempts {
		last, _ = f.do(t, http.MethodPost, "/2fa/challenge/attempt", jsonBody(t, map[string]string{
			"challenge_id": challengeID, "method": "backup_code", "value": "ZZZZZ-ZZZZZ",
		}))
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)

	_, resp = f.do(t, http.MethodPost, "/2fa/challenge/open", `{"subject_id":"doc-2","security_level":"alto"}`)
	expiring := dataMap(t, resp)["challenge_id"].(string)
	f.clock.Advance(challenge.DefaultTTL + time.Second)
	rec, resp = f.do(t, http.MethodPost, "/2fa/challenge/attempt", jsonBody(t, map[string]string{
		"challenge_id": expiring, "method": "totp", "value": "123456",
	}))
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "challenge_expired", resp.Error.Code)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Hour})
	body := jsonBody(t, map[string]string{"code": "123456"})

	for range 2 {
		rec, _ := f.do(t, http.MethodPost, "/2fa/enrollment/confirm", body)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	rec, resp := f.do(t, http.MethodPost, "/2fa/enrollment/confirm", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too_many_requests", resp.Error.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	other := f.token(t, uuid.New())
	rec, _ = f.doAs(t, other, http.MethodPost, "/2fa/enrollment/confirm", body)
	assert.Equal(t, http.StatusNotFound, rec.Code, "buckets are per user")

	rec, _ = f.do(t, http.MethodGet, "/2fa/status", "")
	assert.Equal(t, http.StatusOK, rec.Code, "status is not throttled")
}

func TestActivity(t *testing.T) {
	t.Parallel()

	f := newFixture(t, generousLimit())
	f.enable(t)

	rec, resp := f.do(t, http.MethodGet, "/2fa/activity?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	entries, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, "enrollment.confirm", entries[0].(map[string]any)["action"])

	rec, _ = f.do(t, http.MethodGet, "/2fa/activity?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, resp = f.doAs(t, f.token(t, uuid.New()), http.MethodGet, "/2fa/activity", "")
	assert.Empty(t, resp.Data)
}

func TestClaimsAccounts(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	ctx := jwt.SetClaims(context.Background(), &jwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: id.String()},
		Email:            "ana@example.com",
	})

	name, err := twofactor.ClaimsAccounts.AccountName(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", name)

	name, err = twofactor.ClaimsAccounts.AccountName(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, name)

	name, err = twofactor.ClaimsAccounts.AccountName(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, name)
}
