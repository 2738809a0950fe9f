package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportStarted(t *testing.T) {
	m := New()

	done := m.ExportStarted("screenshot")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExportsInFlight))

	done(StatusSuccess)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ExportsInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExportsTotal.WithLabelValues("screenshot", StatusSuccess)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ExportDuration))
}

func TestPagesProcessed(t *testing.T) {
	m := New()
	m.PagesProcessed("capture", 2, 1)
	m.PagesProcessed("capture", 3, 0)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.PagesTotal.WithLabelValues("capture", PageRendered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesTotal.WithLabelValues("capture", PageSkipped)))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ExportStarted("screenshot")(StatusFailure)
		m.PagesProcessed("screenshot", 1, 1)
		m.ObserveRequest(http.MethodGet, "/api/health", "200", time.Millisecond)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/api/health", "200", 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `reportpdf_http_requests_total{code="200",method="GET",route="/api/health"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
