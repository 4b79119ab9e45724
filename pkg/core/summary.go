package core

import (
	"slices"
	"strings"
	"time"
)

// SuiteSummary aggregates the outcomes of one run. It is built once by
// NewSuiteSummary and never modified afterwards.
type SuiteSummary struct {
	RunID    string
	Outcomes []FileOutcome
	Elapsed  time.Duration

	processed int
	succeeded int
	failed    int
	errored   int
	timedOut  int
}

// NewSuiteSummary folds outcomes into suite counts. The outcomes are copied
// and sorted by file so the result does not depend on completion order.
func NewSuiteSummary(runID string, outcomes []FileOutcome, elapsed time.Duration) SuiteSummary {
	sorted := slices.Clone(outcomes)
	slices.SortStableFunc(sorted, func(a, b FileOutcome) int {
		return strings.Compare(a.File, b.File)
	})

	s := SuiteSummary{
		RunID:     runID,
		Outcomes:  sorted,
		Elapsed:   elapsed,
		processed: len(sorted),
	}
	for _, o := range sorted {
		switch {
		case o.Status == StatusErrored:
			s.errored++
		case o.Status == StatusTimedOut:
			s.timedOut++
		case o.Failed():
			s.failed++
		default:
			s.succeeded++
		}
	}
	return s
}

// Processed is the number of files that reached a terminal state.
func (s SuiteSummary) Processed() int { return s.processed }

// Succeeded is the number of completed files without failed checks.
func (s SuiteSummary) Succeeded() int { return s.succeeded }

// Failed is the number of completed files with at least one failed check.
func (s SuiteSummary) Failed() int { return s.failed }

// Errored is the number of files whose evaluation errored.
func (s SuiteSummary) Errored() int { return s.errored }

// TimedOut is the number of files whose evaluation exceeded the timeout.
func (s SuiteSummary) TimedOut() int { return s.timedOut }

// HasIssues reports whether any file failed, errored or timed out.
func (s SuiteSummary) HasIssues() bool {
	return s.failed > 0 || s.errored > 0 || s.timedOut > 0
}

// ElapsedMS returns Elapsed in whole milliseconds.
func (s SuiteSummary) ElapsedMS() int64 { return s.Elapsed.Milliseconds() }
