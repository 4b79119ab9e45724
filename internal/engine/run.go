package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/nixtests/pkg/core"
)

// Run evaluates every valid file and returns the suite summary.
//
// Skipped files are reported first, in input order. Valid files are
// dispatched in input order with at most Concurrency in flight, and each
// FileCompleted is emitted as soon as its evaluation ends. SuiteCompleted is
// emitted once, after all of them.
//
// Cancelling ctx stops dispatch and cancels in-flight evaluations. Files
// that were never dispatched are left out of the summary.
func (e *Engine) Run(ctx context.Context, files []core.TestFile) core.SuiteSummary {
	runID := e.newRunID()
	logger := e.logger.With("run_id", runID)

	for _, f := range files {
		switch f.Kind {
		case core.KindNotFound:
			e.emit(core.FileNotFound{Path: f.Path})
		case core.KindInvalid:
			e.emit(core.FileInvalid{Path: f.Path})
		}
	}

	paths := core.ValidPaths(files)
	logger.Info("starting run", "files", len(paths), "concurrency", e.run.Concurrency)

	var (
		mu       sync.Mutex
		outcomes = make([]core.FileOutcome, 0, len(paths))
	)

	var g errgroup.Group
	g.SetLimit(e.run.Concurrency)

	start := time.Now()
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// Dispatch may have blocked on the limit while ctx was cancelled.
			if ctx.Err() != nil {
				return nil
			}
			logger.Debug("dispatching", "file", path)

			outcome := e.evaluator.Evaluate(ctx, path)

			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()

			logger.Debug("file completed", "file", path, "status", outcome.Status, "elapsed", outcome.Elapsed)
			e.emit(core.FileCompleted{Outcome: outcome})
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	if err := ctx.Err(); err != nil {
		logger.Warn("run interrupted", "error", err, "completed", len(outcomes), "requested", len(paths))
	}

	summary := core.NewSuiteSummary(runID, outcomes, elapsed)
	logger.Info("run completed",
		"processed", summary.Processed(),
		"succeeded", summary.Succeeded(),
		"failed", summary.Failed(),
		"errored", summary.Errored(),
		"timed_out", summary.TimedOut(),
		"elapsed", elapsed)

	e.emit(core.SuiteCompleted{Summary: summary})
	return summary
}
