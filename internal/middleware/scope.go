package middleware

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/shelfwise/shelfwise/internal/auth"
	"github.com/shelfwise/shelfwise/internal/model"
)

// RequireScope guards a route behind API key scopes. It expects Auth
// to have run first. Any one of the listed scopes grants access, and
// the admin scope always does.
func RequireScope(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := auth.AuthFromContext(r.Context())
			switch {
			case authCtx == nil:
				writeScopeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			case scopeSatisfied(authCtx.Scopes, required):
				next.ServeHTTP(w, r)
			default:
				writeScopeError(w, http.StatusForbidden, "FORBIDDEN",
					fmt.Sprintf("Insufficient permissions. Required scope: %s", required[0]))
			}
		})
	}
}

func scopeSatisfied(granted, required []string) bool {
	if slices.Contains(granted, model.ScopeAdmin) {
		return true
	}
	for _, scope := range required {
		if slices.Contains(granted, scope) {
			return true
		}
	}
	return false
}

// RequireRead guards catalog and availability reads.
func RequireRead() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeRead)
}

// RequireWrite guards loan and reservation mutations.
func RequireWrite() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeWrite)
}

// RequireAdmin guards key management and user administration.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireScope(model.ScopeAdmin)
}

func writeScopeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"code":%q,"message":%q}}`, code, message)
}
