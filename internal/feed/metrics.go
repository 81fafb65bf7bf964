package feed

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "fastbet"

// Metrics counts feed activity. Collectors are only registered when a
// registerer is given, so tests can build throwaway instances.
type Metrics struct {
	Connects     prometheus.Counter
	Disconnects  prometheus.Counter
	Frames       prometheus.Counter
	Observations prometheus.Counter
	Skipped      prometheus.Counter
	State        prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "feed",
			Name:      "connects_total",
			Help:      "Market channel connections that were established and subscribed.",
		}),
		Disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "feed",
			Name:      "disconnects_total",
			Help:      "Failed connection attempts and dropped connections.",
		}),
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "feed",
			Name:      "frames_total",
			Help:      "Frames received on the market channel.",
		}),
		Observations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "feed",
			Name:      "observations_total",
			Help:      "Best bid/ask observations applied to the quote store.",
		}),
		Skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "feed",
			Name:      "skipped_messages_total",
			Help:      "Messages dropped because they could not be decoded.",
		}),
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "feed",
			Name:      "connection_state",
			Help:      "0 idle, 1 connecting, 2 subscribed, 3 disconnected.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Connects, m.Disconnects, m.Frames, m.Observations, m.Skipped, m.State)
	}
	return m
}

// RegisterStore exposes the number of tracked quotes.
func RegisterStore(reg prometheus.Registerer, s *Store) error {
	return reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "feed",
		Name:      "quotes",
		Help:      "Tokens with a live quote.",
	}, func() float64 {
		return float64(s.Len())
	}))
}
