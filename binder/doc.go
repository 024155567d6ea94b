// Package binder decodes HTTP requests into typed request structs.
//
// Binders share the signature func(*http.Request, any) error and plug into
// handler.Wrap through handler.WithBinder:
//
//	type attemptRequest struct {
//	    ChallengeID string `json:"challenge_id"`
//	    Method      string `json:"method"`
//	    Value       string `json:"value"`
//	}
//
//	r.Post("/challenge/attempt", handler.Wrap(h.attempt,
//	    handler.WithBinder[handler.Context, attemptRequest](binder.JSON(0)),
//	))
//
// JSON is strict (unknown fields and trailing data are rejected) and size
// limited. Query handles flat structs tagged with `query:"name"`.
package binder
