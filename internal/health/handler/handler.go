// Package handler serves the service info and health endpoints.
package handler

import (
	"context"
	"net/http"
	"time"

	"markers-api/internal/platform/httpjson"
)

const checkTimeout = 2 * time.Second

// Pinger is implemented by the database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PolicyChecker is implemented by the authorization policy engine.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler reports liveness and readiness.
type Handler struct {
	db      Pinger
	policy  PolicyChecker
	name    string
	version string
	started time.Time
	now     func() time.Time
}

// NewHandler returns a Handler. db and policy may be nil; a nil dependency is reported as ok.
func NewHandler(db Pinger, policy PolicyChecker, name, version string) *Handler {
	now := func() time.Time { return time.Now().UTC() }
	return &Handler{db: db, policy: policy, name: name, version: version, started: now(), now: now}
}

type infoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    float64           `json:"uptime"`
	Checks    map[string]string `json:"checks"`
}

// Info serves GET /.
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	httpjson.WriteJSON(w, http.StatusOK, infoResponse{Name: h.name, Version: h.version})
}

// Health serves GET /health: 200 when every dependency answers, 503 otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	checks := map[string]string{"database": "ok", "policy": "ok"}
	healthy := true
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			checks["database"] = "unavailable"
			healthy = false
		}
	}
	if h.policy != nil {
		if err := h.policy.HealthCheck(ctx); err != nil {
			checks["policy"] = "unavailable"
			healthy = false
		}
	}

	now := h.now()
	resp := healthResponse{
		Status:    "OK",
		Timestamp: now,
		Uptime:    now.Sub(h.started).Seconds(),
		Checks:    checks,
	}
	status := http.StatusOK
	if !healthy {
		resp.Status = "UNAVAILABLE"
		status = http.StatusServiceUnavailable
	}
	httpjson.WriteJSON(w, status, resp)
}
