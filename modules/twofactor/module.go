package twofactor

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cepalab/signguard/handler"
	"github.com/cepalab/signguard/pkg/audit"
	"github.com/cepalab/signguard/pkg/clientip"
	"github.com/cepalab/signguard/pkg/jwt"
	"github.com/cepalab/signguard/pkg/logger"
	"github.com/cepalab/signguard/pkg/ratelimiter"
	"github.com/cepalab/signguard/svc/challenge"
	"github.com/cepalab/signguard/svc/enrollment"
	"github.com/cepalab/signguard/svc/signature"
)

// Module serves the second-factor JSON API. Every route requires a bearer
// access token.
type Module struct {
	tokens     *jwt.Service
	enrollment enrollment.Service
	challenges challenge.Service
	signatures signature.Service

	activity       *audit.Logger
	limiter        ratelimiter.RateLimiter
	trustedHeaders []string
	log            *slog.Logger
}

// Option configures the module.
type Option func(*Module)

// WithActivity exposes the caller's audit trail on GET /activity.
func WithActivity(l *audit.Logger) Option {
	return func(m *Module) { m.activity = l }
}

// WithRateLimiter throttles verification routes per client IP and user.
func WithRateLimiter(rl ratelimiter.RateLimiter) Option {
	return func(m *Module) { m.limiter = rl }
}

// WithTrustedHeaders lists the proxy headers consulted for the client IP.
func WithTrustedHeaders(headers ...string) Option {
	return func(m *Module) { m.trustedHeaders = headers }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Module) {
		if l != nil {
			m.log = l
		}
	}
}

// New creates the module. Panics on nil dependencies.
func New(tokens *jwt.Service, enr enrollment.Service, challenges challenge.Service, signatures signature.Service, opts ...Option) *Module {
	switch {
	case tokens == nil:
		panic("twofactor: token service is required")
	case enr == nil:
		panic("twofactor: enrollment service is required")
	case challenges == nil:
		panic("twofactor: challenge service is required")
	case signatures == nil:
		panic("twofactor: signature service is required")
	}

	m := &Module{
		tokens:     tokens,
		enrollment: enr,
		challenges: challenges,
		signatures: signatures,
		log:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle returns the module router, meant to be mounted under /2fa.
func (m *Module) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(jwt.Middleware(m.tokens, jwt.WithErrorHandler(m.unauthorized)))

	r.Get("/status", m.wrap(m.status))
	r.Post("/enrollment/start", wrapJSON(m, m.start))

	r.Group(func(r chi.Router) {
		if m.limiter != nil {
			r.Use(ratelimiter.Middleware(m.limiter, m.limitKey(),
				ratelimiter.WithLimitedHandler(m.limited),
				ratelimiter.WithErrorHandler(m.limiterFailed),
			))
		}

		r.Post("/enrollment/confirm", wrapJSON(m, m.confirm))
		r.Post("/backup-codes/regenerate", wrapJSON(m, m.regenerate))
		r.Post("/disable", wrapJSON(m, m.disable))
		r.Post("/challenge/attempt", wrapJSON(m, m.attempt))
		r.Post("/signature/finalize", wrapJSON(m, m.finalize))
		r.Post("/signature/redeem", wrapJSON(m, m.redeem))
	})

	r.Post("/challenge/open", wrapJSON(m, m.open))

	if m.activity != nil {
		r.Get("/activity", handler.Wrap(m.listActivity,
			handler.WithBinder[handler.Context, activityRequest](bindQuery),
			handler.WithErrorHandler[handler.Context, activityRequest](handler.NewErrorHandler[handler.Context](m.log)),
		))
	}

	return r
}

func (m *Module) limitKey() ratelimiter.KeyFunc {
	return ratelimiter.Composite(
		func(r *http.Request) string { return clientip.GetIP(r, m.trustedHeaders...) },
		func(r *http.Request) string { return jwt.UserIDFromContext(r.Context()).String() },
	)
}

func (m *Module) unauthorized(w http.ResponseWriter, r *http.Request, _ error) {
	_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
}

func (m *Module) limited(w http.ResponseWriter, r *http.Request, _ *ratelimiter.Result) {
	_ = handler.JSONError(handler.ErrTooManyRequests).Render(w, r)
}

func (m *Module) limiterFailed(w http.ResponseWriter, r *http.Request, err error) {
	m.log.ErrorContext(r.Context(), "rate limiter unavailable", slog.String("path", r.URL.Path), logger.Error(err))
	_ = handler.JSONError(err).Render(w, r)
}
