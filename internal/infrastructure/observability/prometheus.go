package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// SyncMetrics counts the work done by view controllers
type SyncMetrics struct {
	ActiveSubscriptions *prometheus.GaugeVec
	Fetches             *prometheus.CounterVec
	FetchErrors         *prometheus.CounterVec
	DiscardedResults    *prometheus.CounterVec
	PatchedEvents       *prometheus.CounterVec
	EchoesDeduplicated  prometheus.Counter
	RolledBackSends     prometheus.Counter
}

// NewSyncMetrics registers the controller metrics on reg. A nil reg uses a
// fresh registry, which keeps tests independent.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &SyncMetrics{
		ActiveSubscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sintesis",
			Subsystem: "sync",
			Name:      "active_subscriptions",
			Help:      "Open change-feed subscriptions by view.",
		}, []string{"view"}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sintesis",
			Subsystem: "sync",
			Name:      "fetches_total",
			Help:      "Full fetches by view and trigger.",
		}, []string{"view", "trigger"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sintesis",
			Subsystem: "sync",
			Name:      "fetch_errors_total",
			Help:      "Failed fetches by view.",
		}, []string{"view"}),
		DiscardedResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sintesis",
			Subsystem: "sync",
			Name:      "discarded_results_total",
			Help:      "Fetch results or events dropped because their view was torn down.",
		}, []string{"view"}),
		PatchedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sintesis",
			Subsystem: "sync",
			Name:      "patched_events_total",
			Help:      "Change events applied in place instead of refetching.",
		}, []string{"view"}),
		EchoesDeduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sintesis",
			Subsystem: "chat",
			Name:      "echoes_deduplicated_total",
			Help:      "Realtime echoes merged into an optimistic message.",
		}),
		RolledBackSends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sintesis",
			Subsystem: "chat",
			Name:      "rolled_back_sends_total",
			Help:      "Optimistic messages removed after a failed write.",
		}),
	}
	reg.MustRegister(
		m.ActiveSubscriptions,
		m.Fetches,
		m.FetchErrors,
		m.DiscardedResults,
		m.PatchedEvents,
		m.EchoesDeduplicated,
		m.RolledBackSends,
	)
	return m
}

// NewRegistry returns a registry with the Go and process collectors installed
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
