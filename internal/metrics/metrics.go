// Package metrics счётчики Prometheus для бота.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics набор счётчиков бота.
type Metrics struct {
	Updates  *prometheus.CounterVec
	Receipts *prometheus.CounterVec
	Failures *prometheus.CounterVec
}

// New создаёт счётчики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "premium_bot",
			Name:      "updates_total",
			Help:      "Handled Telegram updates by route.",
		}, []string{"route"}),
		Receipts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "premium_bot",
			Name:      "receipts_total",
			Help:      "Receipts by review status.",
		}, []string{"status"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "premium_bot",
			Name:      "handler_failures_total",
			Help:      "Updates whose handler returned an error, by route.",
		}, []string{"route"}),
	}
	reg.MustRegister(m.Updates, m.Receipts, m.Failures)
	return m
}

// Update отмечает обработанное обновление.
func (m *Metrics) Update(route string) {
	m.Updates.WithLabelValues(route).Inc()
}

// Receipt отмечает переход квитанции в статус status.
func (m *Metrics) Receipt(status string) {
	m.Receipts.WithLabelValues(status).Inc()
}

// Failure отмечает ошибку обработчика.
func (m *Metrics) Failure(route string) {
	m.Failures.WithLabelValues(route).Inc()
}
