package metricsvc

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := New(reg)

	p.ObserveAggregation("faculty", 12, 3*time.Millisecond)
	p.ObserveAggregation("faculty", 4, time.Millisecond)
	p.ObserveAggregation("admin", 40, 9*time.Millisecond)
	p.EvaluationSubmitted()
	p.EvaluationSubmitted()
	p.ActivityRecordFailed()
	p.ObserveRequest(http.MethodGet, "/api/results/admin", http.StatusOK, 20*time.Millisecond)
	p.ObserveRequest(http.MethodGet, "/api/results/admin", http.StatusForbidden, time.Millisecond)

	assert.Equal(t, 16.0, testutil.ToFloat64(p.aggregationRows.WithLabelValues("faculty")))
	assert.Equal(t, 40.0, testutil.ToFloat64(p.aggregationRows.WithLabelValues("admin")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.evaluations))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.activityFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.requests.WithLabelValues(http.MethodGet, "/api/results/admin", "403")))
	assert.Equal(t, 2, testutil.CollectAndCount(p.aggregationDuration))
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
