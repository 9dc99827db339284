package session

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for session operations.
type Metrics struct {
	SessionsTotal        *prometheus.CounterVec
	IdentificationsTotal *prometheus.CounterVec
	LedgerAddsTotal      *prometheus.CounterVec
	LedgerResetsTotal    prometheus.Counter
	ChatTurnsTotal       *prometheus.CounterVec
	NotificationsTotal   *prometheus.CounterVec
}

// NewMetrics registers and returns session metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reclaim_sessions_total",
			Help: "Session lifecycle events.",
		}, []string{"event"}),
		IdentificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reclaim_identifications_total",
			Help: "Photo identifications by outcome and band.",
		}, []string{"outcome", "band"}),
		LedgerAddsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reclaim_ledger_adds_total",
			Help: "Ledger add attempts by result.",
		}, []string{"result"}),
		LedgerResetsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reclaim_ledger_resets_total",
			Help: "Ledger resets.",
		}),
		ChatTurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reclaim_chat_turns_total",
			Help: "Diagnose and chat turns by kind and status.",
		}, []string{"kind", "status"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reclaim_notifications_total",
			Help: "Critical asset notifications by status.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.SessionsTotal,
		m.IdentificationsTotal,
		m.LedgerAddsTotal,
		m.LedgerResetsTotal,
		m.ChatTurnsTotal,
		m.NotificationsTotal,
	)

	return m
}
