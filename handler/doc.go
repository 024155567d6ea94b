// Package handler adapts typed request handlers to net/http.
//
// A handler receives a Context and a bound request value and returns a
// Response. Wrap runs the binder, invokes the handler and renders the
// result. Bind errors, render errors and handler panics go to the
// ErrorHandler.
//
//	type statusRequest struct{}
//
//	func (h *Handler) status(ctx handler.Context, _ statusRequest) handler.Response {
//	    st, err := h.svc.Status(ctx, userID(ctx))
//	    if err != nil {
//	        return handler.JSONError(err)
//	    }
//	    return handler.JSON(st)
//	}
//
//	r.Get("/status", handler.Wrap(h.status))
//
// # Responses
//
// JSON wraps data in a {"data": ...} envelope; JSONError produces
// {"error": {"code", "message", "details"}}. HTTPError carries a status code
// and a stable key; ValidationError renders as 422 with per-field details.
// Unknown errors render as a generic 500 and never leak their message.
package handler
