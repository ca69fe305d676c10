package delivery

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the delivery collectors.
type Metrics struct {
	attempts  *prometheus.CounterVec
	delivered prometheus.Counter
	exhausted prometheus.Counter
	duration  prometheus.Histogram
}

// NewMetrics creates the delivery collectors and registers them on r.
func NewMetrics(r prometheus.Registerer) *Metrics {
	var m Metrics

	m.attempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meter",
		Subsystem: "delivery",
		Name:      "attempts_total",
		Help:      "Total number of delivery requests, by result",
	}, []string{"result"})

	m.delivered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "meter",
		Subsystem: "delivery",
		Name:      "notifications_total",
		Help:      "Total number of notifications acknowledged by the collector",
	})

	m.exhausted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "meter",
		Subsystem: "delivery",
		Name:      "exhausted_total",
		Help:      "Total number of deliveries that gave up after all retries",
	})

	m.duration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "meter",
		Subsystem: "delivery",
		Name:      "request_duration_seconds",
		Help:      "Duration of single delivery requests",
		Buckets:   prometheus.DefBuckets,
	})

	r.MustRegister(m.attempts, m.delivered, m.exhausted, m.duration)
	return &m
}

func (m *Metrics) observeAttempt(ok bool, seconds float64) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.attempts.WithLabelValues(result).Inc()
	m.duration.Observe(seconds)
}

func (m *Metrics) observeDelivered(n int) {
	if m == nil {
		return
	}
	m.delivered.Add(float64(n))
}

func (m *Metrics) observeExhausted() {
	if m == nil {
		return
	}
	m.exhausted.Inc()
}
