package relnet

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the Prometheus collectors of one Session.
type Metrics struct {
	DatagramsSent     prometheus.Counter
	DatagramsReceived prometheus.Counter
	DatagramsDropped  *prometheus.CounterVec
	Resends           prometheus.Counter
	TargetsAcked      prometheus.Counter
	TargetsFailed     prometheus.Counter
	InFlight          prometheus.Gauge
}

// Drop reasons used as the "reason" label of DatagramsDropped.
const (
	DropMalformed = "malformed"
	DropUnknown   = "unknown_peer"
	DropForeign   = "foreign_destination"
	DropDuplicate = "duplicate"
	DropStale     = "stale"
	DropOverflow  = "queue_overflow"
)

// NewMetrics creates the collectors and registers them with reg
// unless reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DatagramsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relnet",
			Name:      "datagrams_sent_total",
			Help:      "Datagrams handed to the transport, resends included",
		}),
		DatagramsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relnet",
			Name:      "datagrams_received_total",
			Help:      "Datagrams taken from the inbound queue",
		}),
		DatagramsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relnet",
			Name:      "datagrams_dropped_total",
			Help:      "Datagrams discarded before dispatch",
		}, []string{"reason"}),
		Resends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relnet",
			Name:      "resends_total",
			Help:      "Reliable messages retransmitted to a single target",
		}),
		TargetsAcked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relnet",
			Name:      "targets_acked_total",
			Help:      "Targets removed because they acknowledged",
		}),
		TargetsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "relnet",
			Name:      "targets_failed_total",
			Help:      "Targets removed because they ran out of retries or left",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "relnet",
			Name:      "messages_in_flight",
			Help:      "Reliable messages waiting for acknowledgments",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.DatagramsSent,
			m.DatagramsReceived,
			m.DatagramsDropped,
			m.Resends,
			m.TargetsAcked,
			m.TargetsFailed,
			m.InFlight,
		)
	}

	return m
}

func (m *Metrics) drop(reason string) {
	m.DatagramsDropped.WithLabelValues(reason).Inc()
}
