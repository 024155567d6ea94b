package clientip

import "net/http"

const maxUserAgentLength = 512

// Middleware stores the client IP and user agent in the request context.
// trustedHeaders is passed to GetIP; leave it empty when not behind a proxy.
func Middleware(trustedHeaders ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithIP(r.Context(), GetIP(r, trustedHeaders...))
			if ua := r.UserAgent(); ua != "" {
				if len(ua) > maxUserAgentLength {
					ua = ua[:maxUserAgentLength]
				}
				ctx = WithUserAgent(ctx, ua)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
