package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConcurrency is returned when a run is configured with fewer than
// one worker.
var ErrInvalidConcurrency = errors.New("concurrency must be a positive integer")

// RunConfig controls how the suite is executed.
type RunConfig struct {
	// Concurrency is the maximum number of evaluations in flight.
	Concurrency int
	// Timeout bounds each evaluation. Zero means unbounded.
	Timeout time.Duration
}

// Validate checks the run configuration.
func (c RunConfig) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidConcurrency, c.Concurrency)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: got %s", c.Timeout)
	}
	return nil
}

// ReportFormat selects the report rendering.
type ReportFormat string

// Report formats.
const (
	FormatHuman ReportFormat = "human"
	FormatJSON  ReportFormat = "json"
)

// ParseReportFormat parses a format name.
func ParseReportFormat(s string) (ReportFormat, error) {
	switch ReportFormat(s) {
	case FormatHuman, FormatJSON:
		return ReportFormat(s), nil
	default:
		return "", fmt.Errorf("unknown report format %q (expected human or json)", s)
	}
}

// ReportConfig controls report rendering and per-outcome visibility.
// Timed-out files share the errored visibility bucket.
type ReportConfig struct {
	Format        ReportFormat
	HideSucceeded bool
	HideFailed    bool
	HideErrored   bool
	// Color enables ANSI styling of the human report.
	Color bool
}
