// Package metrics holds the Prometheus collectors of the fulfillment engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fulfillment"

type Metrics struct {
	transitions *prometheus.CounterVec
	faults      *prometheus.CounterVec
	events      *prometheus.CounterVec
	leases      *prometheus.CounterVec
	casRetries  prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Number of instances entering each workflow stage.",
		}, []string{"stage"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faults_total",
			Help:      "Number of instances failed, by the stage they failed in.",
		}, []string{"stage"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "External events applied to instances, by event and result.",
		}, []string{"event", "result"}),
		leases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lease_operations_total",
			Help:      "Lease operations by kind and result.",
		}, []string{"operation", "result"}),
		casRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_cas_retries_total",
			Help:      "Document writes retried after a version conflict.",
		}),
	}
	reg.MustRegister(m.transitions, m.faults, m.events, m.leases, m.casRetries)
	return m
}

func (m *Metrics) Transition(stage string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(stage).Inc()
}

func (m *Metrics) Fault(stage string) {
	if m == nil {
		return
	}
	m.faults.WithLabelValues(stage).Inc()
}

func (m *Metrics) Event(event, result string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(event, result).Inc()
}

func (m *Metrics) Lease(operation, result string) {
	if m == nil {
		return
	}
	m.leases.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) CASRetry() {
	if m == nil {
		return
	}
	m.casRetries.Inc()
}
