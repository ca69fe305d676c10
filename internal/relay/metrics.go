package relay

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the relay collectors.
type Metrics struct {
	ticks   prometheus.Counter
	dropped prometheus.Counter
	count   prometheus.Gauge
	pending prometheus.Gauge
	flushes *prometheus.CounterVec
}

// NewMetrics creates the relay collectors and registers them on r.
func NewMetrics(r prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meter",
			Subsystem: "relay",
			Name:      "ticks_total",
			Help:      "Ticks persisted to the durable counter",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meter",
			Subsystem: "relay",
			Name:      "dropped_ticks_total",
			Help:      "Ticks dropped because the counter could not be persisted",
		}),
		count: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meter",
			Subsystem: "relay",
			Name:      "count",
			Help:      "Current value of the durable counter",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meter",
			Subsystem: "relay",
			Name:      "pending_events",
			Help:      "Events waiting to be delivered",
		}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meter",
			Subsystem: "relay",
			Name:      "flushes_total",
			Help:      "Flushes of pending events, by result",
		}, []string{"result"}),
	}
	r.MustRegister(m.ticks, m.dropped, m.count, m.pending, m.flushes)
	return m
}

func (m *Metrics) observeTick(count uint64, pending int) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.count.Set(float64(count))
	m.pending.Set(float64(pending))
}

func (m *Metrics) observeDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *Metrics) observeFlush(ok bool, pending int) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.flushes.WithLabelValues(result).Inc()
	m.pending.Set(float64(pending))
}
