// Package telemetry provides Prometheus metrics and an OpenTelemetry
// tracer for the safeguard service.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "safeguard"

// Metrics holds all safeguard Prometheus metrics.
type Metrics struct {
	// Assessment metrics
	AssessmentsTotal   *prometheus.CounterVec
	CrisisDetected     prometheus.Counter
	AssessmentDuration prometheus.Histogram
	BatchSize          prometheus.Histogram

	// Analyzer metrics
	AnalyzerRequests *prometheus.CounterVec
	AnalyzerLatency  prometheus.Histogram

	// Protocol metrics
	ActiveEvents       prometheus.Gauge
	EventsOpened       *prometheus.CounterVec
	EscalationsTotal   *prometheus.CounterVec
	EventsResolved     prometheus.Counter
	RecordingFailures  prometheus.Counter
	NotificationsTotal *prometheus.CounterVec
}

// Provider wraps the tracer and metrics handles.
type Provider struct {
	Tracer  trace.Tracer
	Metrics *Metrics
}

// NewProvider initializes telemetry with Prometheus metrics.
func NewProvider() *Provider {
	return &Provider{
		Tracer:  otel.Tracer(serviceName),
		Metrics: initMetrics(),
	}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (p *Provider) Handler() http.Handler {
	return promhttp.Handler()
}

func initMetrics() *Metrics {
	return &Metrics{
		AssessmentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "safeguard_assessments_total",
			Help: "Crisis assessments performed, by risk level",
		}, []string{"risk_level"}),
		CrisisDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "safeguard_crisis_detected_total",
			Help: "Assessments that crossed the crisis threshold",
		}),
		AssessmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "safeguard_assessment_duration_seconds",
			Help:    "Time to produce one assessment",
			Buckets: prometheus.DefBuckets,
		}),
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "safeguard_batch_size",
			Help:    "Number of texts per batch assessment",
			Buckets: []float64{1, 5, 10, 25, 50, 100},
		}),
		AnalyzerRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "safeguard_analyzer_requests_total",
			Help: "Model analyzer calls, by outcome",
		}, []string{"outcome"}),
		AnalyzerLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "safeguard_analyzer_latency_seconds",
			Help:    "Model analyzer round-trip latency",
			Buckets: prometheus.DefBuckets,
		}),
		ActiveEvents: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "safeguard_active_crisis_events",
			Help: "Crisis events currently tracked as unresolved",
		}),
		EventsOpened: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "safeguard_crisis_events_opened_total",
			Help: "Crisis events opened, by alert level",
		}, []string{"alert_level"}),
		EscalationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "safeguard_escalations_total",
			Help: "Event escalations, by trigger",
		}, []string{"trigger"}),
		EventsResolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "safeguard_crisis_events_resolved_total",
			Help: "Crisis events resolved and removed from tracking",
		}),
		RecordingFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "safeguard_recording_failures_total",
			Help: "Crisis event persistence failures",
		}),
		NotificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "safeguard_notifications_total",
			Help: "Staff notification attempts, by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveAssessment records one assessment outcome.
func (p *Provider) ObserveAssessment(riskLevel string, isCrisis bool, duration time.Duration) {
	if p == nil || p.Metrics == nil {
		return
	}
	p.Metrics.AssessmentsTotal.WithLabelValues(riskLevel).Inc()
	p.Metrics.AssessmentDuration.Observe(duration.Seconds())
	if isCrisis {
		p.Metrics.CrisisDetected.Inc()
	}
}
