package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreIndependentPerInstance(t *testing.T) {
	a, b := New(), New()

	a.JobsSubmitted.WithLabelValues("video_final").Inc()
	a.JobsSubmitted.WithLabelValues("video_final").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(a.JobsSubmitted.WithLabelValues("video_final")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.JobsSubmitted.WithLabelValues("video_final")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.RaceLost.WithLabelValues("video_motion", "webhook").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `studio_materialization_race_lost_total{kind="video_motion",path="webhook"} 1`)
}
