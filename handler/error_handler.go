package handler

import (
	"log/slog"
	"net/http"

	"github.com/cepalab/signguard/pkg/logger"
)

// NewErrorHandler renders errors as JSON and logs them: client errors at
// debug, server errors at error with the underlying cause.
func NewErrorHandler[C Context](log *slog.Logger) ErrorHandler[C] {
	return func(ctx C, err error) {
		resp := &jsonResponse{status: http.StatusInternalServerError}
		resp.body.Error = errorToDetail(err, &resp.status)

		r := ctx.Request()
		attrs := []any{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", resp.status),
			logger.Error(err),
		}
		if resp.status >= http.StatusInternalServerError {
			log.ErrorContext(ctx, "request failed", attrs...)
		} else {
			log.DebugContext(ctx, "request rejected", attrs...)
		}

		_ = resp.Render(ctx.ResponseWriter(), r)
	}
}
