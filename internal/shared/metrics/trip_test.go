package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"buildorite/internal/shared/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncTransition(t *testing.T) {
	before := testutil.ToFloat64(metrics.TripTransitionsTotal.WithLabelValues("trip_started", "driver"))
	metrics.IncTransition("trip_started", "driver")
	after := testutil.ToFloat64(metrics.TripTransitionsTotal.WithLabelValues("trip_started", "driver"))
	assert.Equal(t, before+1, after)
}

func TestIncRejection_EmptyLabels(t *testing.T) {
	before := testutil.ToFloat64(metrics.TripRejectionsTotal.WithLabelValues("unknown", "unknown"))
	metrics.IncRejection("", "")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.TripRejectionsTotal.WithLabelValues("unknown", "unknown")))
}

func TestPromhttpExposure(t *testing.T) {
	metrics.IncStatusChange("completed")

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "buildorite_trip_status_changes_total"))
}
