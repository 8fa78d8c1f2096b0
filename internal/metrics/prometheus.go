package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "matchauth"

// Prometheus counts events in a private registry.
type Prometheus struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
}

// NewPrometheus registers the event counter on a fresh registry together with the Go
// and process collectors.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_events_total",
			Help:      "Security audit events by type.",
		},
		[]string{"event"},
	)
	reg.MustRegister(
		events,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Prometheus{registry: reg, events: events}
}

// Inc implements Counter.
func (p *Prometheus) Inc(event string) {
	p.events.WithLabelValues(event).Inc()
}

// RegisterDropped exposes fn as matchauth_audit_dropped_total.
func (p *Prometheus) RegisterDropped(fn func() uint64) error {
	return p.registry.Register(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_dropped_total",
			Help:      "Audit events dropped due to dispatcher backpressure.",
		},
		func() float64 { return float64(fn()) },
	))
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
