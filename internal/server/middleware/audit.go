package middleware

import (
	"fmt"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"markers-api/internal/audit"
)

// Audit records one audit entry after each authenticated mutating request. It must run after
// ResolveIdentity. Action and resource are derived from the chi route pattern. skipRoutes holds
// "METHOD pattern" keys whose services already audit themselves (login, logout, password change,
// account deletion). Recording is best-effort.
func Audit(logger audit.AuditLogger, skipRoutes map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if logger == nil || !audit.IsMutating(r.Method) {
				return
			}
			route := routePattern(r)
			if route == "" || skipRoutes[r.Method+" "+route] {
				return
			}
			userID, ok := GetUserID(r.Context())
			if !ok {
				return
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ar := audit.ParseRoute(r.Method, route)
			if ar.Resource == "unknown" {
				return
			}
			logger.LogEvent(r.Context(), userID, ar.Action, ar.Resource, fmt.Sprintf(`{"status":%d}`, status))
		})
	}
}
