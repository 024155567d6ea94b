package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "signguard"

// Recorder receives domain events from the services.
type Recorder interface {
	ChallengeOpened(level string)
	ChallengeAttempt(method, outcome string)
	ChallengesExpired(n int)
	EnrollmentEvent(event string)
	AuthorizationIssued(level string)
	AuthorizationRedeemed(outcome string)
	ObserveHTTP(route string, status int, d time.Duration)
}

// Collector is the Prometheus Recorder.
type Collector struct {
	challengesOpened  *prometheus.CounterVec
	challengeAttempts *prometheus.CounterVec
	challengesExpired prometheus.Counter
	enrollmentEvents  *prometheus.CounterVec
	authIssued        *prometheus.CounterVec
	authRedeemed      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		challengesOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenges_opened_total",
			Help:      "Verification challenges opened, by security level.",
		}, []string{"level"}),
		challengeAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenge_attempts_total",
			Help:      "Verification attempts, by method and outcome.",
		}, []string{"method", "outcome"}),
		challengesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenges_expired_total",
			Help:      "Pending challenges moved to expired.",
		}),
		enrollmentEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollment_events_total",
			Help:      "Second-factor enrollment transitions.",
		}, []string{"event"}),
		authIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signature_authorizations_issued_total",
			Help:      "Signature authorizations issued, by security level.",
		}, []string{"level"}),
		authRedeemed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signature_authorizations_redeemed_total",
			Help:      "Signature authorization redemptions, by outcome.",
		}, []string{"outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}

	reg.MustRegister(
		c.challengesOpened,
		c.challengeAttempts,
		c.challengesExpired,
		c.enrollmentEvents,
		c.authIssued,
		c.authRedeemed,
		c.httpDuration,
	)
	return c
}

func (c *Collector) ChallengeOpened(level string) {
	c.challengesOpened.WithLabelValues(level).Inc()
}

func (c *Collector) ChallengeAttempt(method, outcome string) {
	c.challengeAttempts.WithLabelValues(method, outcome).Inc()
}

func (c *Collector) ChallengesExpired(n int) {
	if n > 0 {
		c.challengesExpired.Add(float64(n))
	}
}

func (c *Collector) EnrollmentEvent(event string) {
	c.enrollmentEvents.WithLabelValues(event).Inc()
}

func (c *Collector) AuthorizationIssued(level string) {
	c.authIssued.WithLabelValues(level).Inc()
}

func (c *Collector) AuthorizationRedeemed(outcome string) {
	c.authRedeemed.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveHTTP(route string, status int, d time.Duration) {
	c.httpDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the registry for Prometheus scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
