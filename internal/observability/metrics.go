package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Registry owns every collector below; /metrics serves it.
	Registry *prometheus.Registry

	remoteReads    *prometheus.CounterVec
	remoteWrites   *prometheus.CounterVec
	localFallbacks prometheus.Counter
	selfHeals      prometheus.Counter
	mutations      *prometheus.CounterVec
}

// NewMetrics registers into a private registry so tests can build as many
// instances as they like.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		remoteReads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "debts_remote_reads_total",
				Help: "Remote state reads by result.",
			},
			[]string{"result"},
		),
		remoteWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "debts_remote_writes_total",
				Help: "Remote state writes by result.",
			},
			[]string{"result"},
		),
		localFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "debts_local_fallbacks_total",
			Help: "Reads served from the local cache because the remote was unusable.",
		}),
		selfHeals: factory.NewCounter(prometheus.CounterOpts{
			Name: "debts_self_heals_total",
			Help: "Reads that rewrote the local cache in normalized form.",
		}),
		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "debts_mutations_total",
				Help: "Ledger mutations by action and result.",
			},
			[]string{"action", "result"},
		),
	}
}

// The nil receiver checks let components run without metrics wired.

func (m *Metrics) RemoteRead(result string) {
	if m == nil {
		return
	}
	m.remoteReads.WithLabelValues(result).Inc()
}

func (m *Metrics) RemoteWrite(result string) {
	if m == nil {
		return
	}
	m.remoteWrites.WithLabelValues(result).Inc()
}

func (m *Metrics) LocalFallback() {
	if m == nil {
		return
	}
	m.localFallbacks.Inc()
}

func (m *Metrics) SelfHeal() {
	if m == nil {
		return
	}
	m.selfHeals.Inc()
}

func (m *Metrics) Mutation(action, result string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(action, result).Inc()
}
