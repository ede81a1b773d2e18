package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes hub activity. A nil *Metrics records nothing.
type Metrics struct {
	Connections *prometheus.GaugeVec
	Events      *prometheus.CounterVec
	Dropped     prometheus.Counter
}

// NewMetrics registers the hub collectors on reg. A nil reg creates
// unregistered collectors, which tests use to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Connections: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ecotrack_realtime_connections",
			Help: "Open websocket connections by namespace",
		}, []string{"namespace"}),
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ecotrack_realtime_events_total",
			Help: "Events fanned out by name",
		}, []string{"event"}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "ecotrack_realtime_dropped_total",
			Help: "Messages dropped because a client queue was full",
		}),
	}
}

func (m *Metrics) connected(namespace string, delta float64) {
	if m == nil {
		return
	}
	m.Connections.WithLabelValues(namespace).Add(delta)
}

func (m *Metrics) emitted(event string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(event).Inc()
}

func (m *Metrics) dropped() {
	if m == nil {
		return
	}
	m.Dropped.Inc()
}
