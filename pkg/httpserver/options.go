package httpserver

import (
	"log/slog"
	"time"
)

// Option configures a Server. Zero or empty values keep the current setting.
type Option func(*Server)

func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

func WithReadHeaderTimeout(d time.Duration) Option {
	return func(s *Server) { setDuration(&s.readHeaderTimeout, d) }
}

func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { setDuration(&s.readTimeout, d) }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) { setDuration(&s.writeTimeout, d) }
}

func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) { setDuration(&s.idleTimeout, d) }
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { setDuration(&s.shutdownTimeout, d) }
}

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

func setDuration(dst *time.Duration, d time.Duration) {
	if d > 0 {
		*dst = d
	}
}
