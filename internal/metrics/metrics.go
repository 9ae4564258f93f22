// Package metrics collects Prometheus metrics for submit and audit runs.
// rcache is a batch tool, so metrics are written to a node_exporter
// textfile rather than served.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns a registry for one process. A nil Recorder records
// nothing.
type Recorder struct {
	registry *prometheus.Registry

	directivesCreated *prometheus.CounterVec
	filesExcluded     *prometheus.CounterVec
	backendErrors     *prometheus.CounterVec
	auditRecords      *prometheus.GaugeVec
	auditDuration     *prometheus.GaugeVec
	auditTimestamp    *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		directivesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rcache_directives_created_total",
				Help: "Cache directives submitted, by pool",
			},
			[]string{"pool"},
		),
		filesExcluded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rcache_files_excluded_total",
				Help: "Files skipped by exclude patterns during submit, by pool",
			},
			[]string{"pool"},
		),
		backendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rcache_backend_errors_total",
				Help: "Failed backend operations, by command",
			},
			[]string{"command"},
		),
		auditRecords: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rcache_audit_records",
				Help: "Records of the last audit, by pool and kind",
			},
			[]string{"pool", "kind"},
		),
		auditDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rcache_audit_duration_seconds",
				Help: "Duration of the last audit, by pool",
			},
			[]string{"pool"},
		),
		auditTimestamp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rcache_audit_last_run_timestamp_seconds",
				Help: "Unix time the last audit finished, by pool",
			},
			[]string{"pool"},
		),
	}
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) DirectiveCreated(pool string) {
	if r == nil {
		return
	}
	r.directivesCreated.WithLabelValues(pool).Inc()
}

func (r *Recorder) FileExcluded(pool string) {
	if r == nil {
		return
	}
	r.filesExcluded.WithLabelValues(pool).Inc()
}

func (r *Recorder) BackendError(command string) {
	if r == nil {
		return
	}
	r.backendErrors.WithLabelValues(command).Inc()
}

// ObserveAudit sets the per-kind record gauges for pool. counts is keyed by
// record kind.
func (r *Recorder) ObserveAudit(pool string, counts map[string]int, took time.Duration, finished time.Time) {
	if r == nil {
		return
	}
	for kind, n := range counts {
		r.auditRecords.WithLabelValues(pool, kind).Set(float64(n))
	}
	r.auditDuration.WithLabelValues(pool).Set(took.Seconds())
	r.auditTimestamp.WithLabelValues(pool).Set(float64(finished.Unix()))
}

// WriteTextfile writes every metric to path in the text exposition format
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
