// Package observability exposes livecup's Prometheus metrics and bus observers.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brewbean/livecup/internal/eventbus"
	"github.com/brewbean/livecup/internal/projector"
)

const namespace = "livecup"

// Metrics holds every collector livecup exports.
type Metrics struct {
	registry *prometheus.Registry

	ProjectorMessages *prometheus.CounterVec
	BusEvents         *prometheus.CounterVec
	HubParticipants   *prometheus.GaugeVec
}

// NewMetrics creates a private registry with all collectors registered.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	projectorMessages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projector_messages_total",
			Help:      "Inbound data packets handled by the order projector, by outcome",
		},
		[]string{"outcome"},
	)

	busEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eventbus_events_total",
			Help:      "Envelopes published on observed event buses, by topic",
		},
		[]string{"topic"},
	)

	hubParticipants := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hub_participants",
			Help:      "Participants currently joined to a relay hub room",
		},
		[]string{"room"},
	)

	registry.MustRegister(projectorMessages, busEvents, hubParticipants)

	return &Metrics{
		registry:          registry,
		ProjectorMessages: projectorMessages,
		BusEvents:         busEvents,
		HubParticipants:   hubParticipants,
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordMessage implements projector.Recorder.
func (m *Metrics) RecordMessage(outcome projector.Outcome) {
	m.ProjectorMessages.WithLabelValues(string(outcome)).Inc()
}

// OnPublish implements eventbus.Observer.
func (m *Metrics) OnPublish(env eventbus.Envelope) {
	if env.Topic == "" {
		return
	}
	m.BusEvents.WithLabelValues(string(env.Topic)).Inc()
}

// SetParticipants implements server.ParticipantObserver. Empty rooms are
// removed from the gauge.
func (m *Metrics) SetParticipants(room string, count int) {
	if count <= 0 {
		m.HubParticipants.DeleteLabelValues(room)
		return
	}
	m.HubParticipants.WithLabelValues(room).Set(float64(count))
}

// WatchBus exports the publish and drop totals of bus under name.
func (m *Metrics) WatchBus(name string, bus *eventbus.Bus) {
	labels := prometheus.Labels{"bus": name}
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "eventbus_publish_total",
			Help:        "Envelopes published on an event bus",
			ConstLabels: labels,
		}, func() float64 { return float64(bus.Metrics().PublishTotal) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "eventbus_dropped_total",
			Help:        "Envelopes dropped by subscriber backpressure on an event bus",
			ConstLabels: labels,
		}, func() float64 { return float64(bus.Metrics().DroppedTotal) }),
	)
}
