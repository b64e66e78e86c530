// Package prom exports coop channel and mutex events as Prometheus metrics.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/NetPo4ki/go-coop/coop"
)

// Metrics implements coop.Observer on top of Prometheus collectors. Every
// series is labelled with the primitive's name.
type Metrics struct {
	// channels
	sent        *prometheus.CounterVec
	received    *prometheus.CounterVec
	receiveWait *prometheus.HistogramVec
	closed      *prometheus.CounterVec

	// mutexes
	acquired    *prometheus.CounterVec
	acquireWait *prometheus.HistogramVec
	released    *prometheus.CounterVec
	held        *prometheus.HistogramVec

	misused *prometheus.CounterVec
}

var _ coop.Observer = (*Metrics)(nil)

// New builds the collectors under namespace and registers them with reg.
// A nil reg means prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "channel", Name: "sent_total",
			Help: "Values sent, by whether they were buffered or handed to a waiting receiver.",
		}, []string{"name", "mode"}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "channel", Name: "received_total",
			Help: "Resolved receives, by outcome.",
		}, []string{"name", "outcome"}),
		receiveWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "channel", Name: "receive_wait_seconds",
			Help:    "Time a receiver spent queued before being resolved.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 10, 8),
		}, []string{"name"}),
		closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "channel", Name: "closed_total",
			Help: "Effective Close calls.",
		}, []string{"name"}),
		acquired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "mutex", Name: "acquired_total",
			Help: "Lock grants.",
		}, []string{"name"}),
		acquireWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "mutex", Name: "acquire_wait_seconds",
			Help:    "Time an acquirer spent queued.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 10, 8),
		}, []string{"name"}),
		released: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "mutex", Name: "released_total",
			Help: "Releases, by whether the lock was handed off or freed.",
		}, []string{"name", "mode"}),
		held: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "mutex", Name: "held_seconds",
			Help:    "Time the lock was held per grant.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 10, 8),
		}, []string{"name"}),
		misused: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "misuse_total",
			Help: "Send on a closed channel or release of a stale guard.",
		}, []string{"name"}),
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.sent, m.received, m.receiveWait, m.closed,
		m.acquired, m.acquireWait, m.released, m.held,
		m.misused,
	}
}

func mode(handoff bool) string {
	if handoff {
		return "handoff"
	}
	return "buffered"
}

// Sent records a send.
func (m *Metrics) Sent(name string, handoff bool) {
	m.sent.WithLabelValues(name, mode(handoff)).Inc()
}

// Received records a resolved receive and its queueing time.
func (m *Metrics) Received(name string, wait time.Duration, closed bool) {
	outcome := "value"
	if closed {
		outcome = "closed"
	}
	m.received.WithLabelValues(name, outcome).Inc()
	m.receiveWait.WithLabelValues(name).Observe(wait.Seconds())
}

// Closed records a close.
func (m *Metrics) Closed(name string) {
	m.closed.WithLabelValues(name).Inc()
}

// Acquired records a grant and its queueing time.
func (m *Metrics) Acquired(name string, wait time.Duration) {
	m.acquired.WithLabelValues(name).Inc()
	m.acquireWait.WithLabelValues(name).Observe(wait.Seconds())
}

// Released records a release and how long the lock was held.
func (m *Metrics) Released(name string, held time.Duration, handoff bool) {
	rm := "unlocked"
	if handoff {
		rm = "handoff"
	}
	m.released.WithLabelValues(name, rm).Inc()
	m.held.WithLabelValues(name).Observe(held.Seconds())
}

// Misused records a misuse error.
func (m *Metrics) Misused(name string, _ error) {
	m.misused.WithLabelValues(name).Inc()
}
