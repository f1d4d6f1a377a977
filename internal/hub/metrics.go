package hub

import "github.com/prometheus/client_golang/prometheus"

// Metrics is a process-wide set of Prometheus collectors shared by every
// Hub the Registry owns. Grounded on the pack's prometheus/client_golang
// dependency (pulled in via wudi-gateway's go.mod) rather than hand-rolling
// a counter map, since a real collector is available.
type Metrics struct {
	ConnectedSockets  *prometheus.GaugeVec
	PacketsTotal      *prometheus.CounterVec
	BroadcastsTotal   *prometheus.CounterVec
	MergeRejections   prometheus.Counter
	ActiveHubs        prometheus.Gauge
	RevalidationsTotal *prometheus.CounterVec
}

// NewMetrics constructs and registers the Hub collectors against reg. Pass
// prometheus.NewRegistry() in production and a fresh registry per test to
// avoid duplicate-registration panics across parallel tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectedSockets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "barshub",
			Name:      "connected_sockets",
			Help:      "Currently connected sockets by airport and session kind.",
		}, []string{"airport", "kind"}),
		PacketsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barshub",
			Name:      "packets_total",
			Help:      "Inbound packets processed, by type and outcome.",
		}, []string{"type", "outcome"}),
		BroadcastsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barshub",
			Name:      "broadcasts_total",
			Help:      "Outbound broadcasts fanned out, by packet type.",
		}, []string{"type"}),
		MergeRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "barshub",
			Name:      "merge_rejections_total",
			Help:      "STATE_UPDATE/SHARED_STATE_UPDATE merges rejected by the merge guardrails.",
		}),
		ActiveHubs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "barshub",
			Name:      "active_hubs",
			Help:      "Hubs currently resident in the Registry.",
		}),
		RevalidationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barshub",
			Name:      "revalidations_total",
			Help:      "Heartbeat revalidation outcomes, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.ConnectedSockets, m.PacketsTotal, m.BroadcastsTotal, m.MergeRejections, m.ActiveHubs, m.RevalidationsTotal)
	return m
}
