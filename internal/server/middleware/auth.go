package middleware

import (
	"context"
	"net/http"
	"strings"

	"markers-api/internal/platform/apperr"
	"markers-api/internal/platform/httpjson"
)

const bearerPrefix = "bearer "

// Verifier resolves a bearer token to a user id. err is reserved for storage failures.
type Verifier interface {
	Verify(ctx context.Context, token string) (userID string, ok bool, err error)
}

// ResolveIdentity attaches the caller's identity when the request carries a valid bearer token.
// Missing, malformed and rejected tokens leave the request anonymous; only a storage failure
// while verifying ends the request (500).
func ResolveIdentity(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok, err := v.Verify(r.Context(), token)
			if err != nil {
				httpjson.Error(w, r, err)
				return
			}
			if ok {
				r = r.WithContext(WithIdentity(r.Context(), userID, token))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests that ResolveIdentity left anonymous with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserID(r.Context()); !ok {
			httpjson.Error(w, r, apperr.Unauthorized("Unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractBearer returns the Bearer token from the Authorization header, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
