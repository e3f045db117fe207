package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg           *prometheus.Registry
	ActiveStreams prometheus.Gauge
	Broadcasts    prometheus.Counter
	DroppedEvents prometheus.Counter

	Submissions       prometheus.Counter
	SubmissionsMerged prometheus.Counter
	CommandLatencySec prometheus.Histogram
	CommandsRejected  prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	streams := prometheus.NewGauge(prometheus.GaugeOpts{Name: "tablecart_active_streams"})
	broadcasts := prometheus.NewCounter(prometheus.CounterOpts{Name: "tablecart_broadcasts_total"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "tablecart_dropped_events_total"})

	submissions := prometheus.NewCounter(prometheus.CounterOpts{Name: "tablecart_submissions_total"})
	merged := prometheus.NewCounter(prometheus.CounterOpts{Name: "tablecart_submissions_merged_total"})
	cmdLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tablecart_command_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{Name: "tablecart_commands_rejected_total"})

	r.MustRegister(streams, broadcasts, dropped, submissions, merged, cmdLatency, rejected)
	return &Registry{
		reg:               r,
		ActiveStreams:     streams,
		Broadcasts:        broadcasts,
		DroppedEvents:     dropped,
		Submissions:       submissions,
		SubmissionsMerged: merged,
		CommandLatencySec: cmdLatency,
		CommandsRejected:  rejected,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
