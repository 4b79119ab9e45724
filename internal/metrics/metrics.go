// Package metrics records suite results as Prometheus metrics and exports
// them in the node_exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/leapstack-labs/nixtests/pkg/core"
)

// Namespace prefixes every metric name.
const Namespace = "nix_tests"

// File result label values.
const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
	ResultErrored   = "errored"
	ResultTimedOut  = "timed_out"
)

// Collector is an engine sink that turns lifecycle events into metrics.
// Each collector owns its registry.
type Collector struct {
	registry *prometheus.Registry

	filesTotal    *prometheus.CounterVec
	skippedTotal  *prometheus.CounterVec
	checksTotal   *prometheus.CounterVec
	fileDuration  *prometheus.HistogramVec
	suiteDuration prometheus.Gauge
	suiteIssues   prometheus.Gauge
	suiteRuns     prometheus.Counter
	lastRun       prometheus.Gauge
}

// NewCollector creates a collector with a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		filesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "files_total",
			Help:      "Count of evaluated test files by result",
		}, []string{"result"}),
		skippedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "skipped_files_total",
			Help:      "Count of requested paths skipped before evaluation",
		}, []string{"reason"}),
		checksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "checks_total",
			Help:      "Count of checks by result",
		}, []string{"result"}),
		fileDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "file_duration_seconds",
			Help:      "Wall clock duration of one test file evaluation",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"result"}),
		suiteDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "suite_duration_seconds",
			Help:      "Duration of the last suite run",
		}),
		suiteIssues: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "suite_has_issues",
			Help:      "1 when the last suite run had failures, errors or timeouts",
		}),
		suiteRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "suite_runs_total",
			Help:      "Count of completed suite runs",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last suite run completed",
		}),
	}
}

// Registry exposes the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handle implements the engine sink.
func (c *Collector) Handle(ev core.Event) {
	switch ev := ev.(type) {
	case core.FileNotFound:
		c.skippedTotal.WithLabelValues("not_found").Inc()
	case core.FileInvalid:
		c.skippedTotal.WithLabelValues("invalid").Inc()
	case core.FileCompleted:
		c.recordFile(ev.Outcome)
	case core.SuiteCompleted:
		c.suiteRuns.Inc()
		c.suiteDuration.Set(ev.Summary.Elapsed.Seconds())
		if ev.Summary.HasIssues() {
			c.suiteIssues.Set(1)
		} else {
			c.suiteIssues.Set(0)
		}
		c.lastRun.SetToCurrentTime()
	}
}

func (c *Collector) recordFile(o core.FileOutcome) {
	result := Result(o)
	c.filesTotal.WithLabelValues(result).Inc()
	c.fileDuration.WithLabelValues(result).Observe(o.Elapsed.Seconds())

	if o.Status != core.StatusCompleted {
		return
	}
	failed := o.FailedChecks()
	c.checksTotal.WithLabelValues("passed").Add(float64(o.TotalChecks() - failed))
	c.checksTotal.WithLabelValues("failed").Add(float64(failed))
}

// Result maps an outcome to its result label.
func Result(o core.FileOutcome) string {
	switch {
	case o.Succeeded():
		return ResultSucceeded
	case o.Failed():
		return ResultFailed
	case o.Status == core.StatusTimedOut:
		return ResultTimedOut
	default:
		return ResultErrored
	}
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
