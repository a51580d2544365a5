package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markers-api/internal/telemetry/domain"
)

func TestObserveRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveRequest(http.MethodGet, "/api/v1/markers/{id}", 200, 15*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/v1/markers/{id}", 200, 5*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/api/v1/markers/{id}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestEmitCountsAuthEvents(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	ctx := context.Background()

	require.NoError(t, m.Emit(ctx, domain.New(domain.TypeUserLoggedIn, "u1")))
	require.NoError(t, m.Emit(ctx, domain.New(domain.TypeUserLoggedIn, "u2")))
	require.NoError(t, m.Emit(ctx, nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthEvents.WithLabelValues(domain.TypeUserLoggedIn)))
}

func TestRecordSweep(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordSweep(3)
	m.RecordSweep(0)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SessionsSwept))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
	m.RecordSweep(1)
	assert.NoError(t, m.Emit(context.Background(), domain.New(domain.TypeUserLoggedIn, "u1")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg, m := NewRegistry()
	m.ObserveRequest(http.MethodPost, "/api/v1/auth/login", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, "go_goroutines")
}
