package secrets

import (
	"log/slog"
	"sync"
)

const redacted = "[REDACTED]"

// OneTime holds a value that can be revealed exactly once.
// Formatting, JSON encoding and structured logging never expose the value.
type OneTime[T any] struct {
	mu       sync.Mutex
	value    T
	revealed bool
}

// NewOneTime wraps v.
func NewOneTime[T any](v T) *OneTime[T] {
	return &OneTime[T]{value: v}
}

// Reveal returns the value and true on the first call.
// Later calls return the zero value and false.
func (o *OneTime[T]) Reveal() (T, bool) {
	var zero T
	if o == nil {
		return zero, false
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.revealed {
		return zero, false
	}
	v := o.value
	o.value = zero
	o.revealed = true
	return v, true
}

// Revealed reports whether Reveal has already been called.
func (o *OneTime[T]) Revealed() bool {
	if o == nil {
		return true
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.revealed
}

func (o *OneTime[T]) String() string   { return redacted }
func (o *OneTime[T]) GoString() string { return redacted }

func (o *OneTime[T]) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

func (o *OneTime[T]) LogValue() slog.Value {
	return slog.StringValue(redacted)
}
