package handler

import (
	"fmt"
	"net/http"
)

// HandlerFunc handles a bound request and returns a Response.
type HandlerFunc[C Context, R any] func(ctx C, req R) Response

// Response renders itself onto the writer.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind populates v from the request.
type Bind func(r *http.Request, v any) error

// ErrorHandler writes the response for bind, handler or render failures.
type ErrorHandler[C Context] func(ctx C, err error)

// Decorator wraps a HandlerFunc.
type Decorator[C Context, R any] func(HandlerFunc[C, R]) HandlerFunc[C, R]

type WrapOption[C Context, R any] func(*wrapConfig[C, R])

type wrapConfig[C Context, R any] struct {
	bind       Bind
	onError    ErrorHandler[C]
	decorators []Decorator[C, R]
}

// WithBinder decodes the request into R before the handler runs.
// Without a binder the handler receives the zero R.
func WithBinder[C Context, R any](b Bind) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) { c.bind = b }
}

func WithErrorHandler[C Context, R any](h ErrorHandler[C]) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		if h != nil {
			c.onError = h
		}
	}
}

// WithDecorators applies decorators outermost first.
func WithDecorators[C Context, R any](decorators ...Decorator[C, R]) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		c.decorators = append(c.decorators, decorators...)
	}
}

// Wrap adapts a typed handler to http.HandlerFunc. C must be satisfied by
// the value NewContext returns. A panicking handler is reported to the
// error handler as ErrHandlerPanic.
func Wrap[C Context, R any](h HandlerFunc[C, R], opts ...WrapOption[C, R]) http.HandlerFunc {
	cfg := &wrapConfig[C, R]{
		onError: func(ctx C, err error) {
			_ = JSONError(err).Render(ctx.ResponseWriter(), ctx.Request())
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	next := h
	for i := len(cfg.decorators) - 1; i >= 0; i-- {
		next = cfg.decorators[i](next)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, ok := NewContext(w, r).(C)
		if !ok {
			panic(fmt.Sprintf("handler: %T does not implement the requested context type", NewContext(w, r)))
		}

		var req R
		if cfg.bind != nil {
			if err := cfg.bind(r, &req); err != nil {
				cfg.onError(ctx, err)
				return
			}
		}

		resp, err := call(next, ctx, req)
		switch {
		case err != nil:
			cfg.onError(ctx, err)
		case resp == nil:
			cfg.onError(ctx, ErrNilResponse)
		default:
			if err := resp.Render(w, r); err != nil {
				cfg.onError(ctx, err)
			}
		}
	}
}

func call[C Context, R any](h HandlerFunc[C, R], ctx C, req R) (resp Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			if p == http.ErrAbortHandler {
				panic(p)
			}
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, p)
		}
	}()
	return h(ctx, req), nil
}
