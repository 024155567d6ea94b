package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cepalab/signguard/pkg/environment"
)

// Format selects the slog handler.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Config holds the overrides read from the environment.
// Empty fields keep the environment defaults.
type Config struct {
	Level  string `env:"LOG_LEVEL"`
	Format string `env:"LOG_FORMAT"`
}

// DefaultRedactedKeys are attribute keys whose values are never written.
var DefaultRedactedKeys = []string{
	"secret", "secret_display", "provisioning_uri", "code", "backup_codes",
	"authorization_token", "password", "token",
}

// Option configures New.
type Option func(*options)

type options struct {
	level      slog.Level
	format     Format
	output     io.Writer
	attrs      []slog.Attr
	extractors []ContextExtractor
	redact     map[string]struct{}
	err        error
}

// WithEnvironment applies the defaults for env and tags every record with
// service and env. Development logs text at debug level; other
// environments log JSON at info level.
func WithEnvironment(env environment.Environment, service string) Option {
	return func(o *options) {
		if env.IsDevelopment() {
			o.level, o.format = slog.LevelDebug, FormatText
		} else {
			o.level, o.format = slog.LevelInfo, FormatJSON
		}
		if service != "" {
			o.attrs = append(o.attrs, slog.String("service", service))
		}
		o.attrs = append(o.attrs, slog.String("env", env.String()))
	}
}

// WithConfig applies LOG_LEVEL and LOG_FORMAT. Put it after WithEnvironment.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		if cfg.Level != "" {
			var lvl slog.Level
			if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
				o.err = fmt.Errorf("logger: LOG_LEVEL %q: %w", cfg.Level, err)
				return
			}
			o.level = lvl
		}
		if cfg.Format != "" {
			WithFormat(Format(strings.ToLower(cfg.Format)))(o)
		}
	}
}

func WithLevel(l slog.Level) Option {
	return func(o *options) { o.level = l }
}

func WithFormat(f Format) Option {
	return func(o *options) {
		switch f {
		case FormatJSON, FormatText:
			o.format = f
		default:
			o.err = fmt.Errorf("logger: unknown format %q", f)
		}
	}
}

func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithAttr adds attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(o *options) { o.attrs = append(o.attrs, attrs...) }
}

// WithContextExtractors adds attributes read from the context of each record.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(o *options) {
		for _, ex := range extractors {
			if ex != nil {
				o.extractors = append(o.extractors, ex)
			}
		}
	}
}

// WithRedactedKeys adds keys to DefaultRedactedKeys.
func WithRedactedKeys(keys ...string) Option {
	return func(o *options) {
		for _, k := range keys {
			o.redact[k] = struct{}{}
		}
	}
}

// New builds a logger. Invalid options panic: a service that cannot log
// should not start.
func New(opts ...Option) *slog.Logger {
	o := &options{
		level:  slog.LevelInfo,
		format: FormatJSON,
		output: os.Stdout,
		redact: make(map[string]struct{}, len(DefaultRedactedKeys)),
	}
	for _, k := range DefaultRedactedKeys {
		o.redact[k] = struct{}{}
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.err != nil {
		panic(o.err)
	}

	hopts := &slog.HandlerOptions{Level: o.level, ReplaceAttr: o.replace}

	var h slog.Handler
	if o.format == FormatText {
		h = slog.NewTextHandler(o.output, hopts)
	} else {
		h = slog.NewJSONHandler(o.output, hopts)
	}
	if len(o.attrs) > 0 {
		h = h.WithAttrs(o.attrs)
	}
	if len(o.extractors) > 0 {
		h = &contextHandler{Handler: h, extractors: o.extractors}
	}
	return slog.New(h)
}

func (o *options) replace(_ []string, a slog.Attr) slog.Attr {
	if _, ok := o.redact[a.Key]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}

const redacted = "[REDACTED]"
