package ratelimiter_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cepalab/signguard/pkg/ratelimiter"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	b := newBucket(t, ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: time.Minute})
	keyFunc := func(r *http.Request) string { return r.Header.Get("X-Client") }

	limited := 0
	mw := ratelimiter.Middleware(b, keyFunc, ratelimiter.WithLimitedHandler(
		func(w http.ResponseWriter, _ *http.Request, _ *ratelimiter.Result) {
			limited++
			w.WriteHeader(http.StatusTooManyRequests)
		},
	))
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(client string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if client != "" {
			req.Header.Set("X-Client", client)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := do("a")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, do("a").Code)

	rec = do("a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, limited)

	// No key: not limited.
	for range 5 {
		assert.Equal(t, http.StatusNoContent, do("").Code)
	}
}

func TestComposite(t *testing.T) {
	t.Parallel()

	ip := func(*http.Request) string { return "203.0.113.7" }
	user := func(*http.Request) string { return "user-1" }
	empty := func(*http.Request) string { return "" }
	long := func(*http.Request) string { return strings.Repeat("x", 80) }

	req := httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Equal(t, "203.0.113.7:user-1", ratelimiter.Composite(ip, empty, user)(req))
	assert.Equal(t, "user-1", ratelimiter.Composite(empty, user)(req))
	assert.Equal(t, "", ratelimiter.Composite(empty)(req))

	hashed := ratelimiter.Composite(ip, long)(req)
	assert.LessOrEqual(t, len(hashed), 64)
	assert.Equal(t, hashed, ratelimiter.Composite(ip, long)(req))
}
