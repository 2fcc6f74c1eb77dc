package metricsvc

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trezcool/evalink/core"
)

const namespace = "evalink"

// Prometheus implements core.Metrics and exposes HTTP request metrics.
type Prometheus struct {
	aggregationRows     *prometheus.CounterVec
	aggregationDuration *prometheus.HistogramVec
	evaluations         prometheus.Counter
	activityFailures    prometheus.Counter
	requests            *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
}

var _ core.Metrics = (*Prometheus)(nil)

// New registers the collectors with reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Prometheus{
		aggregationRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_rows_aggregated_total",
			Help:      "Number of answer rows folded into evaluation results.",
		}, []string{"mode"}),
		aggregationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_aggregation_duration_seconds",
			Help:      "Time spent aggregating evaluation results.",
			Buckets:   prometheus.ExponentialBuckets(.0005, 4, 8),
		}, []string{"mode"}),
		evaluations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_submitted_total",
			Help:      "Number of evaluations submitted by students.",
		}),
		activityFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_log_failures_total",
			Help:      "Number of activity log entries that could not be saved.",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (p *Prometheus) ObserveAggregation(mode string, rows int, elapsed time.Duration) {
	p.aggregationRows.WithLabelValues(mode).Add(float64(rows))
	p.aggregationDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func (p *Prometheus) EvaluationSubmitted() {
	p.evaluations.Inc()
}

func (p *Prometheus) ActivityRecordFailed() {
	p.activityFailures.Inc()
}

// ObserveRequest records one served HTTP request. Route is the matched route pattern.
func (p *Prometheus) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	p.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	p.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
