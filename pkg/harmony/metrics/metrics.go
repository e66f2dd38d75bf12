// Package metrics counts what a harmonization run did and writes the counts
// in Prometheus text format for node_exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cognicore/cdeharmony/pkg/harmony/categorize"
	"github.com/cognicore/cdeharmony/pkg/harmony/similarity"
)

const namespace = "cdeharmony"

// Recorder owns a private registry so runs in the same process do not share
// counters.
type Recorder struct {
	registry *prometheus.Registry
	records  *prometheus.CounterVec
	pairs    *prometheus.CounterVec
	groups   prometheus.Gauge
	stages   *prometheus.HistogramVec
}

// New registers the run metrics on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records processed by the categorizer, by outcome.",
		}, []string{"outcome"}),
		pairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_total",
			Help:      "Candidate record pairs, by outcome.",
		}, []string{"outcome"}),
		groups: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "related_groups",
			Help:      "Related groups produced by the last merge.",
		}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"stage"}),
	}
	r.registry.MustRegister(r.records, r.pairs, r.groups, r.stages)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Categorized records the outcome of a categorize batch.
func (r *Recorder) Categorized(res *categorize.Result) {
	if res == nil {
		return
	}
	r.records.WithLabelValues("categorized").Add(float64(res.Categorized()))
	r.records.WithLabelValues("failed").Add(float64(len(res.Failures)))
	r.records.WithLabelValues("zero_category").Add(float64(len(res.ZeroCategory)))
}

// Analyzed records pair outcomes from a similarity pass.
func (r *Recorder) Analyzed(s similarity.Stats) {
	r.pairs.WithLabelValues("duplicate").Add(float64(s.Duplicates))
	r.pairs.WithLabelValues("skipped_same_source").Add(float64(s.SkippedSameSource))
	r.pairs.WithLabelValues("skipped_empty_text").Add(float64(s.SkippedEmptyText))
	r.pairs.WithLabelValues("accepted").Add(float64(s.Accepted))
	r.pairs.WithLabelValues("rejected").Add(float64(s.Rejected))
	r.pairs.WithLabelValues("failed").Add(float64(s.Failed))
}

// Groups sets the number of related groups.
func (r *Recorder) Groups(n int) { r.groups.Set(float64(n)) }

// Stage observes how long a named stage took.
func (r *Recorder) Stage(name string, d time.Duration) {
	r.stages.WithLabelValues(name).Observe(d.Seconds())
}

// WriteFile writes every metric to path atomically.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
