// Package metrics exposes Prometheus instrumentation for inbound dispatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "emitter_client"

// Message kinds used as the "kind" label.
const (
	KindChannel  = "channel"
	KindPresence = "presence"
	KindKeygen   = "keygen"
	KindLink     = "link"
	KindMe       = "me"
	KindError    = "error"
	KindUnknown  = "unknown"
)

// Failure reasons used as the "reason" label.
const (
	ReasonDecode  = "decode"
	ReasonHandler = "handler"
	ReasonPanic   = "panic"
	ReasonExpired = "expired"
)

// Metrics groups the collectors for a single client.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	messages  *prometheus.CounterVec
	unmatched *prometheus.CounterVec
	failures  *prometheus.CounterVec
	published *prometheus.CounterVec

	reg        prometheus.Registerer
	collectors []prometheus.Collector
}

// New creates and registers the collectors. client is attached as a constant
// label so several clients can share one registerer. A nil reg uses a private
// registry.
func New(reg prometheus.Registerer, client string, pending func() float64) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	labels := prometheus.Labels{"client": client}

	m := &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "messages_received_total",
			Help:        "Inbound messages dispatched, by kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
		unmatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "messages_unmatched_total",
			Help:        "Inbound messages with no handler to receive them, by kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "dispatch_failures_total",
			Help:        "Dispatch failures, by kind and reason.",
			ConstLabels: labels,
		}, []string{"kind", "reason"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "messages_published_total",
			Help:        "Outbound publishes, by kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
	}

	collectors := []prometheus.Collector{m.messages, m.unmatched, m.failures, m.published}
	if pending != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "pending_requests",
			Help:        "Requests awaiting a correlated reply.",
			ConstLabels: labels,
		}, pending))
	}

	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			for _, registered := range collectors[:i] {
				reg.Unregister(registered)
			}
			return nil, err
		}
	}
	m.reg = reg
	m.collectors = collectors
	return m, nil
}

// Unregister removes the collectors from the registerer they were added to.
func (m *Metrics) Unregister() {
	if m == nil {
		return
	}
	for _, c := range m.collectors {
		m.reg.Unregister(c)
	}
}

// Received counts a dispatched inbound message.
func (m *Metrics) Received(kind string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(kind).Inc()
}

// Unmatched counts an inbound message nobody handled.
func (m *Metrics) Unmatched(kind string) {
	if m == nil {
		return
	}
	m.unmatched.WithLabelValues(kind).Inc()
}

// Failed counts a dispatch failure.
func (m *Metrics) Failed(kind, reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind, reason).Inc()
}

// Published counts an outbound message.
func (m *Metrics) Published(kind string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(kind).Inc()
}
