// Package metrics exposes Prometheus counters for license traffic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "license_server"

// Outcome label values for validations.
const (
	OutcomeValid       = "valid"
	OutcomeInvalid     = "invalid_key"
	OutcomeDeactivated = "deactivated"
	OutcomeExpired     = "expired"
	OutcomeError       = "error"
)

type Metrics struct {
	registry      *prometheus.Registry
	validations   *prometheus.CounterVec
	registrations prometheus.Counter
	adminOps      *prometheus.CounterVec
}

// New registers the license collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "License validation calls by outcome.",
		}, []string{"outcome"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Tokens registered on their first validation.",
		}),
		adminOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_operations_total",
			Help:      "Administrator operations by action and result.",
		}, []string{"action", "result"}),
	}

	reg.MustRegister(
		m.validations,
		m.registrations,
		m.adminOps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveValidation is safe to call on a nil *Metrics.
func (m *Metrics) ObserveValidation(outcome string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRegistration() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}

func (m *Metrics) ObserveAdmin(action string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.adminOps.WithLabelValues(action, result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
