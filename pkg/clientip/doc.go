// Package clientip resolves the caller's IP address and user agent and
// carries them through the request context for rate limiting and audit.
//
// Forwarding headers are only honored when explicitly trusted, so a client
// cannot pick its own rate-limit bucket by sending X-Forwarded-For:
//
//	r.Use(clientip.Middleware(clientip.HeaderXForwardedFor))
//
//	ip := clientip.IPFromContext(ctx)
package clientip
