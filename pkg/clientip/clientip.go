package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Common proxy headers, in the order they are usually trusted.
const (
	HeaderCFConnectingIP = "CF-Connecting-IP"
	HeaderXForwardedFor  = "X-Forwarded-For"
	HeaderXRealIP        = "X-Real-IP"
)

// GetIP returns the client address of r.
// Only the listed headers are consulted, in order; without them the peer
// address is used. X-Forwarded-For yields its first valid entry.
func GetIP(r *http.Request, trustedHeaders ...string) string {
	for _, h := range trustedHeaders {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		if strings.EqualFold(h, HeaderXForwardedFor) {
			for part := range strings.SplitSeq(v, ",") {
				if ip := parseIP(part); ip != "" {
					return ip
				}
			}
			continue
		}
		if ip := parseIP(v); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
