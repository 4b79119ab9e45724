package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/leapstack-labs/nixtests/internal/cli/config"
	"github.com/leapstack-labs/nixtests/internal/cli/output"
	"github.com/leapstack-labs/nixtests/internal/discovery"
	"github.com/leapstack-labs/nixtests/internal/engine"
	"github.com/leapstack-labs/nixtests/internal/evaluator"
	"github.com/leapstack-labs/nixtests/internal/metrics"
	"github.com/leapstack-labs/nixtests/internal/report"
	"github.com/leapstack-labs/nixtests/internal/watch"
	"github.com/leapstack-labs/nixtests/pkg/core"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Watch    bool
	Debounce time.Duration
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Evaluate test files",
		Long: `Evaluate every *_test.nix file found below the given paths.

Directories are searched recursively. Files are evaluated concurrently
(--concurrency) and each evaluation is bounded by --timeout. The process
exits with 1 when any file failed, errored or timed out.`,
		Example: `  # Run every test below the current directory
  nix-tests run

  # Run two files with four workers and a 10s timeout
  nix-tests run -j 4 --timeout 10s lib/a_test.nix lib/b_test.nix

  # Emit JSON lines
  nix-tests run --format json

  # Re-run on every change
  nix-tests run --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunSuite(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-run the suite when .nix files change")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", watch.DefaultDebounce, "Quiet period before a watch re-run")

	return cmd
}

// suiteRunner classifies and evaluates one suite. It is reused across
// watch re-runs.
type suiteRunner struct {
	cfg        *config.Config
	classifier *discovery.Classifier
	engine     *engine.Engine
	collector  *metrics.Collector
}

// RunSuite runs the suite for args with the current configuration.
func RunSuite(cmd *cobra.Command, args []string, opts *RunOptions) error {
	cmdCtx := NewCommandContext(cmd)
	paths := pathsOrCwd(args)

	runner, err := newSuiteRunner(cmd, cmdCtx)
	if err != nil {
		return err
	}

	if !opts.Watch {
		summary, err := runner.run(cmd.Context(), paths)
		if err != nil {
			return err
		}
		if summary.HasIssues() {
			return ErrTestsFailed
		}
		return nil
	}

	w, err := watch.New(watch.Config{
		Paths:    paths,
		Debounce: opts.Debounce,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	return w.Run(cmd.Context(), func(ctx context.Context) {
		if _, err := runner.run(ctx, paths); err != nil {
			cmdCtx.Renderer.Error(err.Error())
		}
	})
}

func newSuiteRunner(cmd *cobra.Command, cmdCtx *CommandContext) (*suiteRunner, error) {
	cfg := cmdCtx.Cfg

	searcher := discovery.SelectSearcher(nil)
	cmdCtx.Logger.Debug("selected search backend", "backend", searcher.Name())

	eval, err := evaluator.New(evaluator.Config{
		Binary:  cfg.Evaluator.Binary,
		LibPath: cfg.Evaluator.LibPath,
		Timeout: cfg.Runner.Timeout.Duration(),
		Logger:  cmdCtx.Logger,
	})
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	reporter, err := report.New(cfg.ReportConfig(output.IsTerminal(out)))
	if err != nil {
		return nil, err
	}

	sinks := engine.Fanout{report.NewPrinter(reporter, out, cmd.ErrOrStderr())}

	var collector *metrics.Collector
	if cfg.Metrics.File != "" {
		collector = metrics.NewCollector()
		sinks = append(sinks, collector)
	}

	eng, err := engine.New(engine.Config{
		Run:       cfg.RunConfig(),
		Evaluator: eval,
		Sink:      sinks,
		Logger:    cmdCtx.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &suiteRunner{
		cfg:        cfg,
		classifier: discovery.NewClassifier(searcher, cmdCtx.Logger),
		engine:     eng,
		collector:  collector,
	}, nil
}

func (r *suiteRunner) run(ctx context.Context, paths []string) (core.SuiteSummary, error) {
	files, err := r.classifier.Classify(ctx, paths)
	if err != nil {
		return core.SuiteSummary{}, err
	}

	summary := r.engine.Run(ctx, files)

	if r.collector != nil {
		if err := r.collector.WriteTextfile(r.cfg.Metrics.File); err != nil {
			return summary, fmt.Errorf("run %s finished: %w", summary.RunID, err)
		}
	}
	return summary, nil
}
