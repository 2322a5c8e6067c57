package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	registry *prometheus.Registry

	Questions         *prometheus.CounterVec
	Responses         prometheus.Counter
	ProviderErrors    *prometheus.CounterVec
	FactsLearned      prometheus.Counter
	VoiceQueueDepth   *prometheus.GaugeVec
	BridgeConnections prometheus.Gauge
	DeliveryChunks    *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Questions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions received by entry surface.",
		}, []string{"surface"}),
		Responses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_total",
			Help:      "Successful generated responses.",
		}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Upstream provider failures by provider and reason.",
		}, []string{"provider", "reason"}),
		FactsLearned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facts_learned_total",
			Help:      "Facts extracted and stored from conversations.",
		}),
		VoiceQueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "voice_queue_depth",
			Help:      "Pending speech items per guild.",
		}, []string{"guild"}),
		BridgeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_connections",
			Help:      "Live bridge websocket connections.",
		}),
		DeliveryChunks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_chunks_total",
			Help:      "Message chunks sent by delivery target.",
		}, []string{"target"}),
	}
}

// Handler serves this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
