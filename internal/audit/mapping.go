package audit

import (
	"net/http"
	"strings"

	"markers-api/internal/audit/domain"
)

// ActionResource holds action and resource derived from an HTTP route.
type ActionResource struct {
	Action   string
	Resource string
}

// routeResources maps the collection segment of a route to its audit resource.
var routeResources = map[string]string{
	"auth":    "session",
	"users":   "user",
	"markers": "marker",
}

// ParseRoute returns action and resource for an HTTP method and chi route pattern
// (e.g. PUT /api/v1/markers/{id}). Path parameters are ignored. Auth endpoints map to their
// verb (register, login, logout); a trailing "password" segment maps to password_change.
// Other routes map to get, list, create, update or delete by method.
func ParseRoute(method, pattern string) ActionResource {
	var segments []string
	for _, s := range strings.Split(strings.Trim(pattern, "/"), "/") {
		if s == "" || strings.HasPrefix(s, "{") || s == "*" {
			continue
		}
		segments = append(segments, s)
	}

	resource := "unknown"
	idx := -1
	for i, s := range segments {
		if r, ok := routeResources[s]; ok {
			resource, idx = r, i
			break
		}
	}
	if idx < 0 {
		return ActionResource{Action: strings.ToLower(method), Resource: resource}
	}
	rest := segments[idx+1:]
	if len(rest) > 0 {
		switch last := rest[len(rest)-1]; last {
		case "register", "login", "logout":
			return ActionResource{Action: last, Resource: resource}
		case "password":
			return ActionResource{Action: domain.ActionPasswordChange, Resource: resource}
		}
	}
	return ActionResource{Action: methodToAction(method, pattern), Resource: resource}
}

func methodToAction(method, pattern string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		if strings.HasSuffix(strings.TrimSuffix(pattern, "/"), "}") {
			return "get"
		}
		return "list"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

// IsMutating reports whether requests with method change state and should be audited.
func IsMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
