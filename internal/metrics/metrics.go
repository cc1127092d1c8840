// Package metrics exports session lifecycle counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements session.Recorder.
type Collector struct {
	transitions *prometheus.CounterVec
	renewals    *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authsession_state_transitions_total",
			Help: "Session state transitions by source and target state.",
		}, []string{"from", "to"}),
		renewals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authsession_renewals_total",
			Help: "Access credential renewals by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(c.transitions, c.renewals)
	return c
}

func (c *Collector) Transition(from, to string) {
	c.transitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) Renewal(outcome string) {
	c.renewals.WithLabelValues(outcome).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
