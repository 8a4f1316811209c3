package relay

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts relay traffic. A nil *Metrics records nothing.
type Metrics struct {
	MessagesSent     *prometheus.CounterVec
	MessagesReceived *prometheus.CounterVec
	MessagesDropped  *prometheus.CounterVec
	RoomCollisions   prometheus.Counter
	ConnectedPeers   prometheus.Gauge
}

// NewMetrics creates relay metrics and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "messages_sent_total",
			Help:      "Relay messages sent, by type",
		}, []string{"type"}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "messages_received_total",
			Help:      "Relay messages received, by type",
		}, []string{"type"}),
		MessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "messages_dropped_total",
			Help:      "Inbound relay messages dropped, by reason",
		}, []string{"reason"}),
		RoomCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "room_collisions_total",
			Help:      "Room codes regenerated because the address was taken",
		}),
		ConnectedPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "connected_peers",
			Help:      "Open peer connections",
		}),
	}

	reg.MustRegister(
		m.MessagesSent,
		m.MessagesReceived,
		m.MessagesDropped,
		m.RoomCollisions,
		m.ConnectedPeers,
	)
	return m
}

func (m *Metrics) sent(t MessageType) {
	if m != nil {
		m.MessagesSent.WithLabelValues(string(t)).Inc()
	}
}

func (m *Metrics) received(t MessageType) {
	if m != nil {
		m.MessagesReceived.WithLabelValues(string(t)).Inc()
	}
}

func (m *Metrics) dropped(reason string) {
	if m != nil {
		m.MessagesDropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) collision() {
	if m != nil {
		m.RoomCollisions.Inc()
	}
}

func (m *Metrics) peers(n int) {
	if m != nil {
		m.ConnectedPeers.Set(float64(n))
	}
}
