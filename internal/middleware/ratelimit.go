package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shelfwise/shelfwise/internal/auth"
	"github.com/shelfwise/shelfwise/internal/cache"
	"github.com/shelfwise/shelfwise/internal/model"
)

// RateLimitConfig holds the knobs for both limiters: the per-key
// limiter on staff endpoints and the per-IP limiter on the public
// availability endpoint.
type RateLimitConfig struct {
	Logger *slog.Logger
	Cache  *cache.Cache

	APIEnabled bool

	PublicEnabled bool
	PublicRPS     int
	PublicBurst   int
}

// RateLimitAPI limits requests per API key according to the key's
// tier. It must run after Auth. Redis failures let the request
// through; circulation keeps working when the limiter is down.
func RateLimitAPI(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.AuthFromContext(r.Context())
			if !cfg.APIEnabled || authCtx == nil {
				next.ServeHTTP(w, r)
				return
			}

			tierConfig := model.TierConfigs[authCtx.RateLimitTier]
			if tierConfig.RequestsPerMinute == 0 {
				// Unlimited tier.
				next.ServeHTTP(w, r)
				return
			}

			result, err := cfg.Cache.CheckAPIRateLimit(
				r.Context(),
				authCtx.KeyID,
				tierConfig.RequestsPerMinute,
				tierConfig.Burst,
			)
			if err != nil {
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("key_id", authCtx.KeyID),
				)
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, tierConfig.RequestsPerMinute, result.Remaining, result.ResetAt)

			if !result.Allowed {
				denyRateLimited(cfg.Logger, w, r, result, "api",
					slog.String("key_id", authCtx.KeyID))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitIP limits unauthenticated requests per client IP. It
// guards the public availability lookup, which has no API key to
// meter against.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.PublicEnabled {
				next.ServeHTTP(w, r)
				return
			}

			ip := getClientIP(r)
			result, err := cfg.Cache.CheckIPRateLimit(r.Context(), ip, cfg.PublicRPS, cfg.PublicBurst)
			if err != nil {
				cfg.Logger.Error("IP rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("ip", ip),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !result.Allowed {
				denyRateLimited(cfg.Logger, w, r, result, "public")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func denyRateLimited(logger *slog.Logger, w http.ResponseWriter, r *http.Request, result *cache.RateLimitResult, kind string, extra ...any) {
	attrs := append([]any{
		slog.String("type", kind),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Int64("retry_after_seconds", int64(result.RetryAfter.Seconds())),
		slog.String("request_id", GetRequestID(r.Context())),
	}, extra...)
	logger.Warn("rate limit exceeded", attrs...)

	w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
	writeRateLimitError(w, result.RetryAfter)
}

func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	if limit <= 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

func writeRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprintf(w, `{"error":{"code":"RATE_LIMITED","message":"Rate limit exceeded. Retry after %d seconds."}}`,
		int(retryAfter.Seconds()))
}

// getClientIP resolves the client address, trusting proxy headers
// when present. X-Forwarded-For may carry a hop list; the first entry
// is the client.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
