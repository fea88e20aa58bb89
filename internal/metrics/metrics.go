package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics holds the prometheus instruments for the detection pipeline.
type PipelineMetrics struct {
	EventsIngested   *prometheus.CounterVec
	EventsDropped    *prometheus.CounterVec
	EventsMalformed  *prometheus.CounterVec
	FindingsEmitted  *prometheus.CounterVec
	AlertsDispatched *prometheus.CounterVec
	Deliveries       *prometheus.CounterVec
	HealthyEndpoints *prometheus.GaugeVec
}

// NewPipelineMetrics creates the metric set.
func NewPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{
		EventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_events_ingested_total",
			Help: "Total transaction events ingested, by network and strategy",
		}, []string{"network", "strategy"}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_events_dropped_total",
			Help: "Total events dropped under stream backpressure",
		}, []string{"network"}),
		EventsMalformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_events_malformed_total",
			Help: "Total malformed transaction payloads skipped",
		}, []string{"network"}),
		FindingsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_findings_total",
			Help: "Total threat findings emitted, by category and severity",
		}, []string{"category", "severity"}),
		AlertsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_alerts_dispatched_total",
			Help: "Total alerts constructed from matched rules",
		}, []string{"rule"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_alert_deliveries_total",
			Help: "Total channel delivery attempts, by channel and status",
		}, []string{"channel", "status"}),
		HealthyEndpoints: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentinel_healthy_endpoints",
			Help: "Healthy RPC endpoints per network",
		}, []string{"network"}),
	}
}

// Register registers every instrument on the given registerer.
func (m *PipelineMetrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.EventsIngested,
		m.EventsDropped,
		m.EventsMalformed,
		m.FindingsEmitted,
		m.AlertsDispatched,
		m.Deliveries,
		m.HealthyEndpoints,
	)
}
