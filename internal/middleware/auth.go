package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shelfwise/shelfwise/internal/auth"
	"github.com/shelfwise/shelfwise/internal/cache"
	"github.com/shelfwise/shelfwise/internal/model"
	"github.com/shelfwise/shelfwise/internal/repository"
)

// minAuthDuration pads every authentication outcome to the same floor
// so response timing does not reveal whether a key prefix exists.
const minAuthDuration = 200 * time.Millisecond

// AuthConfig holds the dependencies of the auth middleware.
type AuthConfig struct {
	Logger     *slog.Logger
	Repository *repository.Repository
	Cache      *cache.Cache
}

// Auth authenticates staff API requests. The key comes from the
// Authorization or X-API-Key header; on success the resolved auth
// context is attached to the request.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			defer func() {
				if elapsed := time.Since(start); elapsed < minAuthDuration {
					time.Sleep(minAuthDuration - elapsed)
				}
			}()

			key := extractAPIKey(r)
			if key == "" {
				failAuth(cfg.Logger, w, r, "missing_key")
				return
			}

			parsed, err := auth.ParseAPIKey(key)
			if err != nil {
				failAuth(cfg.Logger, w, r, "invalid_format")
				return
			}

			cacheKey := auth.QuickHash(key)
			if authCtx, _ := cfg.Cache.GetAuthContext(r.Context(), cacheKey); authCtx != nil {
				admitRequest(cfg.Logger, w, r, next, authCtx, true)
				return
			}

			keys, err := cfg.Repository.GetAPIKeysByPrefix(r.Context(), parsed.Prefix)
			if err != nil {
				cfg.Logger.Error("database error during auth",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w)
				return
			}

			matched := verifyCandidates(key, keys)
			if matched == nil {
				failAuth(cfg.Logger, w, r, "invalid_key")
				return
			}

			authCtx := &model.AuthContext{
				KeyID:         matched.ID,
				KeyPrefix:     matched.KeyPrefix,
				UserID:        matched.UserID,
				Scopes:        matched.Scopes,
				RateLimitTier: matched.RateLimitTier,
			}
			_ = cfg.Cache.SetAuthContext(r.Context(), cacheKey, authCtx)

			// last_used_at is best effort and must outlive the request.
			go func(ctx context.Context, id string) {
				ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()
				_ = cfg.Repository.UpdateAPIKeyLastUsed(ctx, id)
			}(context.WithoutCancel(r.Context()), matched.ID)

			admitRequest(cfg.Logger, w, r, next, authCtx, false)
		})
	}
}

// verifyCandidates checks the presented key against every active key
// sharing its prefix. Prefixes are random but not unique.
func verifyCandidates(presented string, candidates []*model.APIKey) *model.APIKey {
	for _, candidate := range candidates {
		match, err := auth.VerifySecret(presented, candidate.KeyHash)
		if err == nil && match {
			return candidate
		}
	}
	return nil
}

func admitRequest(logger *slog.Logger, w http.ResponseWriter, r *http.Request, next http.Handler, authCtx *model.AuthContext, cacheHit bool) {
	logger.Info("authentication successful",
		slog.String("key_id", authCtx.KeyID),
		slog.String("key_prefix", authCtx.KeyPrefix),
		slog.String("user_id", authCtx.UserID),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Bool("cache_hit", cacheHit),
		slog.String("request_id", GetRequestID(r.Context())),
	)

	next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), authCtx)))
}

func failAuth(logger *slog.Logger, w http.ResponseWriter, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
	writeAuthError(w)
}

// extractAPIKey reads the key from "Authorization: Bearer <key>" or,
// failing that, the X-API-Key header.
func extractAPIKey(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}

// writeAuthError sends the same 401 body for every failure mode so
// responses cannot be used to enumerate keys.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"Invalid or missing API key"}}`))
}
