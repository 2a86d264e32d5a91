package capability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts resolver decisions.
type Metrics struct {
	decisions *prometheus.CounterVec
}

// NewMetrics registers the resolver collectors on registerer, reusing already
// registered ones. A nil registerer falls back to the default registry.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	decisions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dppkit",
			Subsystem: "capability",
			Name:      "decisions_total",
			Help:      "Total capability decisions by kind, rule and outcome.",
		},
		[]string{"kind", "rule", "outcome"},
	)
	if err := registerer.Register(decisions); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			panic(err)
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			panic(err)
		}
		decisions = existing
	}
	return &Metrics{decisions: decisions}
}

func (m *Metrics) feature(d Decision) {
	if m == nil {
		return
	}
	outcome := "denied"
	if d.Allowed {
		outcome = "allowed"
	}
	m.decisions.WithLabelValues("feature", string(d.Rule), outcome).Inc()
}

func (m *Metrics) entitlement(g Grant) {
	if m == nil {
		return
	}
	outcome := "inactive"
	switch {
	case g.Active && g.Limit.IsUnlimited():
		outcome = "unlimited"
	case g.Active:
		outcome = "limited"
	}
	m.decisions.WithLabelValues("entitlement", string(g.Source), outcome).Inc()
}

func (m *Metrics) limit(c LimitCheck) {
	if m == nil {
		return
	}
	outcome := "denied"
	if c.Allowed {
		outcome = "allowed"
	}
	m.decisions.WithLabelValues("limit", string(c.Source), outcome).Inc()
}
