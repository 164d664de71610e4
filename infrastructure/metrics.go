package infrastructure

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"scorecard-engine/application"
)

// PrometheusMetrics implements application.MetricsCollector with Prometheus.
type PrometheusMetrics struct {
	operationLatency *prometheus.HistogramVec
	operations       *prometheus.CounterVec
	matchPercentage  prometheus.Histogram
	requests         *prometheus.CounterVec
	other            *prometheus.CounterVec
}

// NewPrometheusMetrics registers the engine metrics in reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scorecard_operation_duration_seconds",
				Help:    "Duration of assessment operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "outcome"},
		),
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scorecard_operations_total",
				Help: "Assessment operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		matchPercentage: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scorecard_test_match_percentage",
				Help:    "Match percentage of graded technical tests.",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scorecard_http_requests_total",
				Help: "HTTP requests by route and status.",
			},
			[]string{"route", "method", "status"},
		),
		other: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scorecard_events_total",
				Help: "Miscellaneous counted events.",
			},
			[]string{"event"},
		),
	}
}

func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.operationLatency.WithLabelValues(operation, outcomeLabel(labels)).Observe(duration.Seconds())
}

func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "operations_total":
		pm.operations.WithLabelValues(labels["operation"], outcomeLabel(labels)).Add(value)
	case "http_requests_total":
		pm.requests.WithLabelValues(labels["route"], labels["method"], labels["status"]).Add(value)
	default:
		pm.other.WithLabelValues(metric).Add(value)
	}
}

func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case "test_match_percentage":
		pm.matchPercentage.Observe(value)
	default:
		pm.operationLatency.WithLabelValues(metric, outcomeLabel(labels)).Observe(value)
	}
}

func outcomeLabel(labels map[string]string) string {
	if o, ok := labels["outcome"]; ok {
		return o
	}
	return "unknown"
}

var _ application.MetricsCollector = (*PrometheusMetrics)(nil)
