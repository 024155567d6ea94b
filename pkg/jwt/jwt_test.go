package jwt_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cepalab/signguard/pkg/jwt"
)

var key = bytes.Repeat([]byte("k"), 32)

func claimsFor(sub string, exp time.Time) jwt.Claims {
	return jwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: gojwt.NewNumericDate(exp),
		},
		Email: "ana@example.com",
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := jwt.New(nil)
	assert.ErrorIs(t, err, jwt.ErrMissingSigningKey)

	_, err = jwt.New([]byte("short"))
	assert.ErrorIs(t, err, jwt.ErrInvalidSigningKey)

	svc, err := jwt.NewFromConfig(jwt.Config{Secret: string(key), Issuer: "auth"})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestParse(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, err := jwt.New(key, jwt.WithIssuer("auth"), jwt.WithAudience("signguard"),
		jwt.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	userID := uuid.New()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		tok, err := svc.Generate(claimsFor(userID.String(), now.Add(time.Hour)))
		require.NoError(t, err)

		claims, err := svc.Parse(tok)
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", claims.Email)
		id, err := claims.UserID()
		require.NoError(t, err)
		assert.Equal(t, userID, id)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		tok, err := svc.Generate(claimsFor(userID.String(), now.Add(-time.Minute)))
		require.NoError(t, err)

		_, err = svc.Parse(tok)
		assert.ErrorIs(t, err, jwt.ErrExpiredToken)
	})

	t.Run("missing expiry", func(t *testing.T) {
		t.Parallel()
		c := claimsFor(userID.String(), now)
		c.ExpiresAt = nil
		tok, err := svc.Generate(c)
		require.NoError(t, err)

		_, err = svc.Parse(tok)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("wrong key", func(t *testing.T) {
		t.Parallel()
		other, err := jwt.New(bytes.Repeat([]byte("x"), 32), jwt.WithIssuer("auth"), jwt.WithAudience("signguard"),
			jwt.WithClock(func() time.Time { return now }))
		require.NoError(t, err)
		tok, err := other.Generate(claimsFor(userID.String(), now.Add(time.Hour)))
		require.NoError(t, err)

		_, err = svc.Parse(tok)
		assert.ErrorIs(t, err, jwt.ErrInvalidSignature)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		t.Parallel()
		c := claimsFor(userID.String(), now.Add(time.Hour))
		c.Issuer = "someone-else"
		tok, err := svc.Generate(c)
		require.NoError(t, err)

		_, err = svc.Parse(tok)
		assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	})

	t.Run("unsigned algorithm rejected", func(t *testing.T) {
		t.Parallel()
		tok, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, claimsFor(userID.String(), now.Add(time.Hour))).
			SignedString(gojwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		claims, err := svc.Parse(tok)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("empty subject", func(t *testing.T) {
		t.Parallel()
		tok, err := svc.Generate(claimsFor("", now.Add(time.Hour)))
		require.NoError(t, err)

		_, err = svc.Parse(tok)
		assert.ErrorIs(t, err, jwt.ErrInvalidClaims)
	})

	t.Run("empty token", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Parse("")
		assert.ErrorIs(t, err, jwt.ErrMissingToken)
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	svc, err := jwt.New(key)
	require.NoError(t, err)

	userID := uuid.New()
	tok, err := svc.Generate(claimsFor(userID.String(), time.Now().Add(time.Hour)))
	require.NoError(t, err)

	var seen uuid.UUID
	h := jwt.Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = jwt.UserIDFromContext(r.Context())
		raw, ok := jwt.GetToken(r.Context())
		assert.True(t, ok)
		assert.Equal(t, tok, raw)
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, userID, seen)

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestMiddlewareOptions(t *testing.T) {
	t.Parallel()

	svc, err := jwt.New(key)
	require.NoError(t, err)

	var handled error
	h := jwt.Middleware(svc,
		jwt.WithExtractor(jwt.CookieTokenExtractor("access")),
		jwt.WithSkip(func(r *http.Request) bool { return r.URL.Path == "/health" }),
		jwt.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
			handled = err
			w.WriteHeader(http.StatusTeapot)
		}),
	)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/2fa/status", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.ErrorIs(t, handled, jwt.ErrMissingToken)
}

func TestContextWithoutClaims(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := jwt.GetClaims(req.Context())
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, jwt.UserIDFromContext(req.Context()))
}
