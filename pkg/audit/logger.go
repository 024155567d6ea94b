package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// contextExtractor extracts string values from context.
// It returns (value, found) where found indicates if extraction succeeded.
type contextExtractor func(context.Context) (string, bool)

// Logger records audit events enriched from the request context.
type Logger struct {
	storage            Storage
	userIDExtractor    contextExtractor
	requestIDExtractor contextExtractor
	ipExtractor        contextExtractor
	userAgentExtractor contextExtractor
	filter             *MetadataFilter
	asyncOptions       *AsyncOptions
	now                func() time.Time
}

// Option configures Logger behavior during initialization
type Option func(*Logger)

func WithUserIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.userIDExtractor = fn }
}

func WithRequestIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.requestIDExtractor = fn }
}

func WithIPExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.ipExtractor = fn }
}

func WithUserAgentExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.userAgentExtractor = fn }
}

// WithMetadataFilter scrubs event metadata before it is stored.
func WithMetadataFilter(f *MetadataFilter) Option {
	return func(l *Logger) { l.filter = f }
}

// WithAsync batches writes in the background. Call Close on shutdown.
func WithAsync(opts AsyncOptions) Option {
	return func(l *Logger) { l.asyncOptions = &opts }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLogger creates a new audit logger
func NewLogger(storage Storage, opts ...Option) *Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	l := &Logger{
		storage: storage,
		filter:  NewMetadataFilter(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.asyncOptions != nil {
		l.storage = NewAsyncWriter(l.storage, *l.asyncOptions)
	}

	return l
}

// Log records a successful action
func (l *Logger) Log(ctx context.Context, action string, opts ...EventOption) error {
	return l.record(ctx, action, ResultSuccess, nil, opts)
}

// LogError records a failed action. Pass WithResult(ResultFailure) for refusals
// that are part of normal operation.
func (l *Logger) LogError(ctx context.Context, action string, err error, opts ...EventOption) error {
	return l.record(ctx, action, ResultError, err, opts)
}

// Find returns events matching criteria, newest first.
func (l *Logger) Find(ctx context.Context, criteria Criteria) ([]Event, error) {
	return l.storage.Query(ctx, criteria)
}

// Close flushes pending events when the logger is asynchronous.
func (l *Logger) Close(ctx context.Context) error {
	if aw, ok := l.storage.(*AsyncWriter); ok {
		return aw.Close(ctx)
	}
	return nil
}

func (l *Logger) record(ctx context.Context, action string, result Result, err error, opts []EventOption) error {
	event := l.eventFromContext(ctx)
	event.ID = uuid.New().String()
	event.CreatedAt = l.now().UTC()
	event.Action = action
	event.Result = result
	if err != nil {
		event.Error = err.Error()
	}

	for _, opt := range opts {
		opt(&event)
	}

	if err := event.Validate(); err != nil {
		return err
	}

	if l.filter != nil {
		event.Metadata = l.filter.Filter(event.Metadata)
	}

	return l.storage.Store(ctx, event)
}

// eventFromContext extracts event data from context
func (l *Logger) eventFromContext(ctx context.Context) Event {
	event := Event{}

	for _, f := range []struct {
		fn  contextExtractor
		dst *string
	}{
		{l.userIDExtractor, &event.UserID},
		{l.requestIDExtractor, &event.RequestID},
		{l.ipExtractor, &event.IP},
		{l.userAgentExtractor, &event.UserAgent},
	} {
		if f.fn == nil {
			continue
		}
		if v, ok := f.fn(ctx); ok {
			*f.dst = v
		}
	}

	return event
}
