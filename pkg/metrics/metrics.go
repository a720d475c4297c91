package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported by the service. A nil *Metrics is
// valid and records nothing, which keeps tests free of registry plumbing.
type Metrics struct {
	registry *prometheus.Registry

	RelayConnections prometheus.Gauge
	RelayRooms       prometheus.Gauge
	RelayEvents      *prometheus.CounterVec
	RelayDropped     prometheus.Counter
	MessagesMarked   prometheus.Counter
	PointsAwarded    prometheus.Counter
}

// New builds the collectors and registers them on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		RelayConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "studyhub",
			Subsystem: "relay",
			Name:      "connections",
			Help:      "Live websocket connections.",
		}),
		RelayRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "studyhub",
			Subsystem: "relay",
			Name:      "rooms",
			Help:      "Non-empty conversation rooms.",
		}),
		RelayEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studyhub",
			Subsystem: "relay",
			Name:      "events_total",
			Help:      "Events fanned out to room peers, by event name.",
		}, []string{"event"}),
		RelayDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studyhub",
			Subsystem: "relay",
			Name:      "dropped_total",
			Help:      "Events dropped because a peer send buffer was full.",
		}),
		MessagesMarked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studyhub",
			Subsystem: "readstate",
			Name:      "messages_marked_total",
			Help:      "Messages transitioned from unread to read.",
		}),
		PointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studyhub",
			Subsystem: "reputation",
			Name:      "points_awarded_total",
			Help:      "Reputation points appended to the ledger.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RelayConnections,
		m.RelayRooms,
		m.RelayEvents,
		m.RelayDropped,
		m.MessagesMarked,
		m.PointsAwarded,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.RelayConnections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.RelayConnections.Dec()
	}
}

func (m *Metrics) SetRooms(n int) {
	if m != nil {
		m.RelayRooms.Set(float64(n))
	}
}

func (m *Metrics) EventRelayed(event string, recipients int) {
	if m != nil {
		m.RelayEvents.WithLabelValues(event).Add(float64(recipients))
	}
}

func (m *Metrics) EventDropped() {
	if m != nil {
		m.RelayDropped.Inc()
	}
}

func (m *Metrics) MarkedRead(n int64) {
	if m != nil && n > 0 {
		m.MessagesMarked.Add(float64(n))
	}
}

func (m *Metrics) Awarded(points int) {
	if m != nil && points > 0 {
		m.PointsAwarded.Add(float64(points))
	}
}
