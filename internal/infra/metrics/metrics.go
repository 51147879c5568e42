package metrics

import (
	"cachesweep/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cachesweep"

// Recorder collects the gauges of one run into a private registry that is
// dumped in node_exporter textfile format.
type Recorder struct {
	registry      *prometheus.Registry
	targetBytes   *prometheus.GaugeVec
	targetFiles   *prometheus.GaugeVec
	planItems     *prometheus.GaugeVec
	planBytes     prometheus.Gauge
	applyItems    *prometheus.GaugeVec
	trashedBytes  prometheus.Gauge
	lastRunSecond *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		targetBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "target_bytes",
				Help:      "Bytes measured under a cleanup target",
			},
			[]string{"target"},
		),
		targetFiles: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "target_files",
				Help:      "Regular files measured under a cleanup target",
			},
			[]string{"target"},
		),
		planItems: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "plan_items",
				Help:      "Plan items by status",
			},
			[]string{"status"},
		),
		planBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "plan_reclaimable_bytes",
				Help:      "Estimated bytes reclaimable from eligible items",
			},
		),
		applyItems: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "apply_items",
				Help:      "Apply results by status",
			},
			[]string{"status"},
		),
		trashedBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "apply_trashed_bytes",
				Help:      "Bytes moved to the trash by the last apply",
			},
		),
		lastRunSecond: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time of the last run per command",
			},
			[]string{"command"},
		),
	}
	r.registry.MustRegister(
		r.targetBytes,
		r.targetFiles,
		r.planItems,
		r.planBytes,
		r.applyItems,
		r.trashedBytes,
		r.lastRunSecond,
	)
	return r
}

func (r *Recorder) ObserveRun(rl model.RunLog) {
	r.lastRunSecond.WithLabelValues(rl.Command).Set(float64(rl.Timestamp.Unix()))
	for _, t := range rl.Targets {
		r.targetBytes.WithLabelValues(t.ID).Set(float64(t.Metrics.TotalBytes))
		r.targetFiles.WithLabelValues(t.ID).Set(float64(t.Metrics.FileCount))
	}
	if rl.Plan != nil {
		s := rl.Plan.Summary
		r.planItems.WithLabelValues(string(model.StatusEligible)).Set(float64(s.Eligible))
		r.planItems.WithLabelValues(string(model.StatusCaution)).Set(float64(s.Caution))
		r.planItems.WithLabelValues(string(model.StatusBlocked)).Set(float64(s.Blocked))
		r.planBytes.Set(float64(s.EstimatedBytes))
	}
	if rl.ApplySummary != nil {
		s := rl.ApplySummary
		r.applyItems.WithLabelValues(string(model.ApplyTrashed)).Set(float64(s.Trashed))
		r.applyItems.WithLabelValues(string(model.ApplySkipped)).Set(float64(s.Skipped))
		r.applyItems.WithLabelValues(string(model.ApplyFailed)).Set(float64(s.Failed))
		r.trashedBytes.Set(float64(s.TrashedBytes))
	}
}

func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile atomically replaces path with the current samples.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
