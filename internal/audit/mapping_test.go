package audit

import (
	"net/http"
	"testing"
)

func TestParseRoute(t *testing.T) {
	tests := []struct {
		method, pattern string
		want            ActionResource
	}{
		{http.MethodPost, "/api/v1/auth/register", ActionResource{"register", "session"}},
		{http.MethodPost, "/api/v1/auth/login", ActionResource{"login", "session"}},
		{http.MethodPost, "/api/v1/auth/logout", ActionResource{"logout", "session"}},
		{http.MethodGet, "/api/v1/users", ActionResource{"list", "user"}},
		{http.MethodGet, "/api/v1/users/{id}", ActionResource{"get", "user"}},
		{http.MethodPut, "/api/v1/users/{id}", ActionResource{"update", "user"}},
		{http.MethodPut, "/api/v1/users/{id}/password", ActionResource{"password_change", "user"}},
		{http.MethodPut, "/api/v1/users/me/password", ActionResource{"password_change", "user"}},
		{http.MethodDelete, "/api/v1/users/{id}", ActionResource{"delete", "user"}},
		{http.MethodPost, "/api/v1/markers", ActionResource{"create", "marker"}},
		{http.MethodPatch, "/api/v1/markers/{id}", ActionResource{"update", "marker"}},
		{http.MethodDelete, "/api/v1/markers/{id}", ActionResource{"delete", "marker"}},
		{http.MethodGet, "/api/v1/users/{id}/markers", ActionResource{"list", "user"}},
		{http.MethodGet, "/health", ActionResource{"get", "unknown"}},
		{http.MethodOptions, "/api/v1/markers", ActionResource{"options", "marker"}},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.pattern, func(t *testing.T) {
			if got := ParseRoute(tt.method, tt.pattern); got != tt.want {
				t.Errorf("ParseRoute(%q, %q) = %+v, want %+v", tt.method, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestIsMutating(t *testing.T) {
	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		if !IsMutating(m) {
			t.Errorf("IsMutating(%s) = false", m)
		}
	}
	for _, m := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		if IsMutating(m) {
			t.Errorf("IsMutating(%s) = true", m)
		}
	}
}
