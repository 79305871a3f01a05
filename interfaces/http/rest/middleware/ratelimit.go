package middleware

import (
	"net"
	"net/http"

	"go.uber.org/zap"

	"payflow-backend/pkg/ratelimit"
)

// RateLimit rejects requests over the per-IP allowance with a 429.
// The limit applies per client IP; RealIP middleware must run first so
// RemoteAddr reflects the actual client behind a proxy.
func RateLimit(requestsPerMinute int, logger *zap.Logger) func(next http.Handler) http.Handler {
	limiter := ratelimit.NewIPLimiter(requestsPerMinute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			if !limiter.Allow(ip) {
				logger.Warn("Rate limit exceeded",
					zap.String("ip", ip),
					zap.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"success":false,"error":{"code":"TOO_MANY_REQUESTS","message":"rate limit exceeded"}}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
