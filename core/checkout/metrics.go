package checkout

import (
	"github.com/irsalhamdi/e-commerce-shop/core/order"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	sessions   *prometheus.CounterVec
	reconciled *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "checkout",
			Name:      "sessions_total",
			Help:      "Payment sessions requested, by provider and result.",
		}, []string{"provider", "result"}),
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "checkout",
			Name:      "reconciliations_total",
			Help:      "Order reconciliations, by provider, resulting status and whether the order changed.",
		}, []string{"provider", "status", "changed"}),
	}

	reg.MustRegister(m.sessions, m.reconciled)
	return m
}

func (m *Metrics) session(provider string, result string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) reconciliation(provider string, status order.Status, changed bool) {
	if m == nil || status == "" {
		return
	}
	c := "false"
	if changed {
		c = "true"
	}
	m.reconciled.WithLabelValues(provider, string(status), c).Inc()
}
