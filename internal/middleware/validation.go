// Package middleware provides HTTP middleware for the Shelfwise API.
package middleware

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
)

// IDLength is the length of a ULID identifier.
const IDLength = 26

// Validation errors.
var (
	ErrIDMissing = errors.New("identifier is required")
	ErrIDInvalid = errors.New("identifier is not a valid ULID")
)

// validIDPattern matches Crockford base32 as used by ULIDs.
// Excludes the ambiguous characters I, L, O and U.
var validIDPattern = regexp.MustCompile(`^[0-9A-HJKMNP-TV-Z]{26}$`)

// ValidateID validates an entity identifier from a path parameter.
func ValidateID(id string) error {
	if id == "" {
		return ErrIDMissing
	}

	if len(id) != IDLength || !validIDPattern.MatchString(id) {
		return ErrIDInvalid
	}

	return nil
}

// ValidateIDParam returns middleware that rejects requests whose named
// URL parameter is not a well-formed identifier. Applying it on a route
// keeps malformed IDs out of the handlers and the database, which would
// otherwise report them as not found.
func ValidateIDParam(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, param)
			if err := ValidateID(id); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"Invalid identifier in URL","code":"INVALID_ID"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
