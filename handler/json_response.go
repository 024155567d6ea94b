package handler

import (
	"encoding/json"
	"errors"
	"maps"
	"net/http"

	"github.com/cepalab/signguard/binder"
)

// JSONResponse is the envelope of every JSON body.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

type jsonResponse struct {
	status  int
	headers http.Header
	body    JSONResponse
}

func (j *jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	for k, v := range j.headers {
		for _, vv := range v {
			w.Header().Add(k, vv)
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

type JSONOption func(*jsonResponse)

func WithJSONStatus(status int) JSONOption {
	return func(r *jsonResponse) { r.status = status }
}

// WithJSONMeta merges meta into the envelope's meta object.
func WithJSONMeta(meta map[string]any) JSONOption {
	return func(r *jsonResponse) {
		if r.body.Meta == nil {
			r.body.Meta = make(map[string]any, len(meta))
		}
		maps.Copy(r.body.Meta, meta)
	}
}

func WithJSONHeader(key, value string) JSONOption {
	return func(r *jsonResponse) {
		if r.headers == nil {
			r.headers = http.Header{}
		}
		r.headers.Set(key, value)
	}
}

// JSON renders v as {"data": v} with status 200.
func JSON(v any, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusOK, body: JSONResponse{Data: v}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSONError renders err as {"error": {...}}. HTTPError and ValidationError
// keep their status and key; binder errors become 400; anything else is a
// 500 whose message is not exposed.
func JSONError(err error, opts ...JSONOption) Response {
	r := &jsonResponse{status: http.StatusInternalServerError}
	r.body.Error = errorToDetail(err, &r.status)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func errorToDetail(err error, status *int) *ErrorDetail {
	var (
		valErr  ValidationError
		httpErr HTTPError
	)

	switch {
	case errors.As(err, &valErr):
		*status = http.StatusUnprocessableEntity
		d := &ErrorDetail{Code: "validation_error", Message: "request validation failed"}
		if len(valErr) > 0 {
			d.Details = maps.Clone(map[string][]string(valErr))
		}
		return d
	case errors.As(err, &httpErr):
		*status = httpErr.Code
		return &ErrorDetail{Code: httpErr.Key, Message: httpErr.Error()}
	case errors.Is(err, binder.ErrBodyTooLarge):
		*status = http.StatusRequestEntityTooLarge
		return &ErrorDetail{Code: "request_too_large", Message: "request body too large"}
	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrMissingContentType):
		*status = http.StatusUnsupportedMediaType
		return &ErrorDetail{Code: "unsupported_media_type", Message: err.Error()}
	case errors.Is(err, binder.ErrInvalidJSON), errors.Is(err, binder.ErrInvalidQuery):
		*status = http.StatusBadRequest
		return &ErrorDetail{Code: "bad_request", Message: err.Error()}
	default:
		*status = http.StatusInternalServerError
		return &ErrorDetail{Code: ErrInternalServerError.Key, Message: ErrInternalServerError.Message}
	}
}
