package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ekaya-inc/ekaya-splitplan/pkg/models"
)

const namespace = "splitplan"

// Recorder collects run metrics in a private registry and writes them as a
// node_exporter textfile. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	runInfo       *prometheus.GaugeVec
	tables        prometheus.Gauge
	splitColumns  prometheus.Gauge
	selections    *prometheus.GaugeVec
	probeFailures *prometheus.CounterVec
	stageSeconds  *prometheus.GaugeVec
	lastSuccess   prometheus.Gauge
}

// NewRecorder creates a recorder labelled with the run id and database.
func NewRecorder(runID, database string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_info",
			Help:      "Identifies the planning run that produced these metrics.",
		}, []string{"run_id", "database"}),
		tables: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tables",
			Help:      "Tables in the plan.",
		}),
		splitColumns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "split_columns",
			Help:      "Tables that received a usable split column.",
		}),
		selections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "selections",
			Help:      "Plan entries by selection reason.",
		}, []string{"reason"}),
		probeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_failures_total",
			Help:      "Metadata probes that failed, by probe scope.",
		}, []string{"scope"}),
		stageSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
		}, []string{"stage"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the plan was last written successfully.",
		}),
	}

	r.registry.MustRegister(
		r.runInfo,
		r.tables,
		r.splitColumns,
		r.selections,
		r.probeFailures,
		r.stageSeconds,
		r.lastSuccess,
	)
	r.runInfo.WithLabelValues(runID, database).Set(1)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ProbeFailed counts one failed probe.
func (r *Recorder) ProbeFailed(scope string) {
	if r == nil {
		return
	}
	r.probeFailures.WithLabelValues(scope).Inc()
}

// ObserveStage records how long a pipeline stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageSeconds.WithLabelValues(stage).Set(d.Seconds())
}

// RecordPlan records plan totals. Every reason gets a series, even at zero.
func (r *Recorder) RecordPlan(plan *models.Plan) {
	if r == nil || plan == nil {
		return
	}
	r.tables.Set(float64(plan.TableCount))
	r.splitColumns.Set(float64(plan.SplitColumnCount()))

	counts := plan.CountByReason()
	for _, reason := range models.AllReasons() {
		r.selections.WithLabelValues(string(reason)).Set(float64(counts[reason]))
	}
}

// MarkSuccess stamps the time the plan was saved.
func (r *Recorder) MarkSuccess(at time.Time) {
	if r == nil {
		return
	}
	r.lastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile writes all metrics in the text exposition format.
// The file is written to a temp file and renamed into place.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
