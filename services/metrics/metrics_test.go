package metricsvc

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun(true, 3, 1, time.Second)
	m.ObserveRun(false, 1, 0, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.assignmentRuns.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.assignmentRuns.WithLabelValues("failure")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.assignmentPlaced))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.assignmentUnassigned))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/v1/conferences", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mun_http_requests_total{method="GET",route="/v1/conferences",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
