package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/dppkit/dppkit/pkg/org"
)

// KeyFunc picks the bucket of a request. An empty key skips limiting.
type KeyFunc func(r *http.Request) string

// ByOrganization keys on the organization set by org.Middleware.
func ByOrganization(r *http.Request) string {
	id, ok := org.FromContext(r.Context())
	if !ok {
		return ""
	}
	return "org:" + id.OrganizationID.String()
}

// ByClientIP keys on the first valid address of X-Forwarded-For, then
// X-Real-IP, then RemoteAddr. Only use it behind a proxy that overwrites
// those headers.
func ByClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for part := range strings.SplitSeq(fwd, ",") {
			if ip := parseIP(part); ip != "" {
				return "ip:" + ip
			}
		}
	}
	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return "ip:" + ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := parseIP(host); ip != "" {
		return "ip:" + ip
	}
	return ""
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}

// Middleware sets X-RateLimit-* headers and hands rejected requests to
// onLimited after setting Retry-After. A nil onLimited answers a plain 429.
func Middleware(l *Limiter, key KeyFunc, onLimited http.HandlerFunc) func(http.Handler) http.Handler {
	if onLimited == nil {
		onLimited = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			res := l.Allow(k)
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(res.Remaining, 0)))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed() {
				secs := int(res.RetryAfter(l.now()).Seconds() + 0.999)
				h.Set("Retry-After", strconv.Itoa(max(secs, 1)))
				onLimited(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
