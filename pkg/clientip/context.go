package clientip

import "context"

type (
	ipContextKey        struct{}
	userAgentContextKey struct{}
)

// WithIP stores the client IP in ctx.
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipContextKey{}, ip)
}

// IPFromContext returns the client IP or an empty string.
func IPFromContext(ctx context.Context) string {
	ip, _ := IPFromContextOK(ctx)
	return ip
}

// IPFromContextOK returns the client IP and whether one is set.
func IPFromContextOK(ctx context.Context) (string, bool) {
	ip, ok := ctx.Value(ipContextKey{}).(string)
	return ip, ok && ip != ""
}

// WithUserAgent stores the client user agent in ctx.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, ua)
}

// UserAgentFromContextOK returns the user agent and whether one is set.
func UserAgentFromContextOK(ctx context.Context) (string, bool) {
	ua, ok := ctx.Value(userAgentContextKey{}).(string)
	return ua, ok && ua != ""
}
