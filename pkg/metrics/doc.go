// Package metrics exposes Prometheus counters for challenges, enrollment and
// signature authorizations, plus an HTTP latency histogram.
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewCollector(reg)
//	r.Use(metrics.Middleware(rec))
//	r.Handle("/metrics", metrics.Handler(reg))
//
// Services depend on the Recorder interface; Noop satisfies it in tests.
package metrics
