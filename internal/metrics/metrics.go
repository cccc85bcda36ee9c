// Package metrics provides Prometheus instrumentation for the intake pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes.
const (
	OutcomeSubmitted      = "submitted"
	OutcomeRejected       = "rejected"
	OutcomeConfigMissing  = "config_missing"
	OutcomeUnavailable    = "channel_unavailable"
	OutcomeDeliveryFailed = "delivery_failed"
	OutcomeInternalError  = "internal_error"
)

// Metrics provides observability for application intake.
type Metrics struct {
	// Submission outcomes, one per request
	Submissions *prometheus.CounterVec

	// Rejected input by validation kind
	Rejections *prometheus.CounterVec

	// Channel round trips by operation and result
	ChannelLatency *prometheus.HistogramVec

	// Accepted résumé sizes
	ResumeBytes prometheus.Histogram
}

// New creates a Metrics instance registered with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "careers_relay_submissions_total",
			Help: "Total application submissions by outcome",
		}, []string{"outcome"}),

		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "careers_relay_rejections_total",
			Help: "Total submissions rejected for client input errors by kind",
		}, []string{"kind"}),

		ChannelLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "careers_relay_channel_duration_seconds",
			Help:    "Duration of mail channel operations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"channel", "operation", "result"}), // operation: "verify", "send"

		ResumeBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "careers_relay_resume_bytes",
			Help:    "Size of accepted résumé attachments",
			Buckets: prometheus.ExponentialBuckets(16<<10, 2, 10),
		}),
	}
}

// IncrementOutcome records how a submission ended.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
	}
}

// IncrementRejection records a client input error.
func (m *Metrics) IncrementRejection(kind string) {
	if m != nil {
		m.Rejections.WithLabelValues(kind).Inc()
	}
}

// ObserveChannel records one verify or send round trip.
func (m *Metrics) ObserveChannel(channel, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ChannelLatency.WithLabelValues(channel, operation, result).Observe(d.Seconds())
}

// ObserveResume records the size of an accepted résumé.
func (m *Metrics) ObserveResume(size int) {
	if m != nil {
		m.ResumeBytes.Observe(float64(size))
	}
}
