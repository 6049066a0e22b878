package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FederationMetrics records the message-processing and delivery outcomes of
// the federation worker.
type FederationMetrics struct {
	processed         *prometheus.CounterVec
	deliveries        *prometheus.CounterVec
	discoveryFailures prometheus.Counter
	drainDuration     *prometheus.HistogramVec
}

// NewFederationMetrics registers the federation metrics on the provided registerer.
func NewFederationMetrics(reg prometheus.Registerer) *FederationMetrics {
	if reg == nil {
		return &FederationMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "federation_messages_processed_total",
		Help: "Messages reaching a terminal processed state.",
	}, []string{"direction", "status"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "federation_deliveries_total",
		Help: "Activity delivery attempts to remote inboxes.",
	}, []string{"outcome"})
	discoveryFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "federation_discovery_failures_total",
		Help: "Recipient identifiers that could not be resolved to an inbox.",
	})
	drainDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "federation_drain_duration_seconds",
		Help:    "Duration of one full drain pass per direction.",
		Buckets: prometheus.DefBuckets,
	}, []string{"direction"})
	reg.MustRegister(processed, deliveries, discoveryFailures, drainDuration)
	return &FederationMetrics{
		processed:         processed,
		deliveries:        deliveries,
		discoveryFailures: discoveryFailures,
		drainDuration:     drainDuration,
	}
}

// IncProcessed counts a message reaching a terminal status.
func (m *FederationMetrics) IncProcessed(direction, status string) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.WithLabelValues(normalizeLabel(direction), normalizeLabel(status)).Inc()
}

// IncDelivery counts one delivery attempt by outcome (ok/error).
func (m *FederationMetrics) IncDelivery(outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncDiscoveryFailure counts a recipient whose inbox could not be resolved.
func (m *FederationMetrics) IncDiscoveryFailure() {
	if m == nil || m.discoveryFailures == nil {
		return
	}
	m.discoveryFailures.Inc()
}

// ObserveDrain records the duration of a drain pass for the given direction.
func (m *FederationMetrics) ObserveDrain(direction string, duration time.Duration) {
	if m == nil || m.drainDuration == nil {
		return
	}
	m.drainDuration.WithLabelValues(normalizeLabel(direction)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
