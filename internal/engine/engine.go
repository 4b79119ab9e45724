// Package engine runs classified test files through an evaluator with
// bounded concurrency and emits lifecycle events as the suite progresses.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/leapstack-labs/nixtests/pkg/core"
)

// Evaluator evaluates one test file to a terminal outcome.
type Evaluator interface {
	Evaluate(ctx context.Context, path string) core.FileOutcome
}

// Engine drives test file evaluations.
type Engine struct {
	run       core.RunConfig
	evaluator Evaluator
	sink      Sink
	logger    *slog.Logger
	newRunID  func() string

	// emitMu serialises delivery to the sink.
	emitMu sync.Mutex
}

// Config holds engine configuration.
type Config struct {
	// Run bounds concurrency. Run.Timeout is informational here; the
	// evaluator enforces it.
	Run core.RunConfig
	// Evaluator runs single files.
	Evaluator Evaluator
	// Sink receives lifecycle events (optional).
	Sink Sink
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// NewRunID generates run identifiers. Defaults to random UUIDs.
	NewRunID func() string
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Run.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sink := cfg.Sink
	if sink == nil {
		sink = SinkFunc(func(core.Event) {})
	}
	newRunID := cfg.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}

	return &Engine{
		run:       cfg.Run,
		evaluator: cfg.Evaluator,
		sink:      sink,
		logger:    logger,
		newRunID:  newRunID,
	}, nil
}

func (e *Engine) emit(ev core.Event) {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	e.sink.Handle(ev)
}
