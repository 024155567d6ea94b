package twofactor

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/cepalab/signguard/handler"
	"github.com/cepalab/signguard/svc/challenge"
	"github.com/cepalab/signguard/svc/mfa"
	"github.com/cepalab/signguard/svc/signature"
)

// errorResponse maps a service error onto the HTTP surface.
func errorResponse(err error) handler.Response {
	if isValidation(err) {
		return handler.JSONError(handler.NewHTTPError(http.StatusUnprocessableEntity, "validation_error", err.Error()))
	}

	kind := mfa.Kind(err)
	status := http.StatusInternalServerError
	var opts []handler.JSONOption

	switch kind {
	case mfa.KindInvalidCode:
		status = http.StatusBadRequest
		if n, ok := mfa.AttemptsRemaining(err); ok {
			opts = append(opts, handler.WithJSONMeta(map[string]any{"attempts_remaining": n}))
		}
	case mfa.KindTooManyAttempts:
		status = http.StatusTooManyRequests
		if d, ok := mfa.RetryAfter(err); ok {
			status = http.StatusLocked
			secs := int(math.Ceil(d.Seconds()))
			opts = append(opts,
				handler.WithJSONHeader("Retry-After", strconv.Itoa(secs)),
				handler.WithJSONMeta(map[string]any{"retry_after_seconds": secs}),
			)
		}
	case mfa.KindChallengeExpired, mfa.KindChallengeAlreadyConsumed:
		status = http.StatusGone
	case mfa.KindAlreadyEnabled:
		status = http.StatusConflict
	case mfa.KindPolicyDenied:
		status = http.StatusForbidden
	case mfa.KindNotFound:
		status = http.StatusNotFound
	default:
		return handler.JSONError(err)
	}

	return handler.JSONError(handler.NewHTTPError(status, string(kind), err.Error()), opts...)
}

func isValidation(err error) bool {
	return errors.Is(err, challenge.ErrInvalidParams) ||
		errors.Is(err, challenge.ErrUnknownMethod) ||
		errors.Is(err, signature.ErrInvalidParams) ||
		errors.Is(err, signature.ErrUnknownLevel)
}
