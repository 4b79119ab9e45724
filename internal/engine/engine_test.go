package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/nixtests/internal/testutil"
	"github.com/leapstack-labs/nixtests/pkg/core"
)

// fakeEvaluator returns scripted outcomes and records the highest number of
// concurrent Evaluate calls.
type fakeEvaluator struct {
	delay    time.Duration
	outcomes map[string]func(path string) core.FileOutcome

	inFlight  atomic.Int32
	highWater atomic.Int32

	mu    sync.Mutex
	calls []string
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, path string) core.FileOutcome {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		hw := f.highWater.Load()
		if n <= hw || f.highWater.CompareAndSwap(hw, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return core.Errored(path, f.delay, "evaluation cancelled")
		}
	}

	if build, ok := f.outcomes[path]; ok {
		return build(path)
	}
	return passed(path)
}

func passed(path string) core.FileOutcome {
	return core.Completed(path, time.Millisecond, []core.TestOutcome{{
		Success: true,
		Path:    []string{"ok"},
		Checks:  []core.CheckOutcome{{Name: "check", Success: true}},
	}})
}

func failed(path string) core.FileOutcome {
	return core.Completed(path, time.Millisecond, []core.TestOutcome{{
		Path: []string{"broken"},
		Checks: []core.CheckOutcome{
			{Name: "good", Success: true},
			{Name: "bad", Success: false, Failure: "expected 1, got 2"},
		},
	}})
}

func newTestEngine(t *testing.T, concurrency int, eval Evaluator, sink Sink) *Engine {
	t.Helper()
	e, err := New(Config{
		Run:       core.RunConfig{Concurrency: concurrency},
		Evaluator: eval,
		Sink:      sink,
		Logger:    testutil.NewTestLogger(t),
		NewRunID:  func() string { return "run-1" },
	})
	require.NoError(t, err)
	return e
}

func TestNew_RejectsInvalidConcurrency(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := New(Config{Run: core.RunConfig{Concurrency: n}, Evaluator: &fakeEvaluator{}})
		require.ErrorIs(t, err, core.ErrInvalidConcurrency)
	}

	_, err := New(Config{Run: core.RunConfig{Concurrency: 1}})
	require.Error(t, err)
}

func TestRun_ConcurrencyHighWaterMark(t *testing.T) {
	var files []core.TestFile
	for i := range 12 {
		files = append(files, core.ValidFile(fmt.Sprintf("f%02d_test.nix", i)))
	}

	tests := []struct {
		name        string
		concurrency int
	}{
		{"serial", 1},
		{"two workers", 2},
		{"four workers", 4},
		{"more workers than files", 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := &fakeEvaluator{delay: 20 * time.Millisecond}
			e := newTestEngine(t, tt.concurrency, eval, nil)

			summary := e.Run(context.Background(), files)

			assert.Equal(t, len(files), summary.Processed())
			assert.LessOrEqual(t, int(eval.highWater.Load()), tt.concurrency)
			assert.GreaterOrEqual(t, int(eval.highWater.Load()), 1)
		})
	}
}

func TestRun_DispatchesInInputOrderWhenSerial(t *testing.T) {
	files := []core.TestFile{
		core.ValidFile("a_test.nix"),
		core.ValidFile("b_test.nix"),
		core.ValidFile("c_test.nix"),
	}
	eval := &fakeEvaluator{}

	newTestEngine(t, 1, eval, nil).Run(context.Background(), files)

	assert.Equal(t, []string{"a_test.nix", "b_test.nix", "c_test.nix"}, eval.calls)
}

func TestRun_ThreeFileScenario(t *testing.T) {
	files := []core.TestFile{
		core.NotFoundFile("missing.nix"),
		core.ValidFile("a_test.nix"),
		core.ValidFile("b_test.nix"),
	}
	eval := &fakeEvaluator{outcomes: map[string]func(string) core.FileOutcome{
		"b_test.nix": failed,
	}}
	rec := &Recorder{}

	summary := newTestEngine(t, 2, eval, rec).Run(context.Background(), files)

	require.Len(t, rec.Events, 4)
	assert.Equal(t, core.FileNotFound{Path: "missing.nix"}, rec.Events[0])

	completed := map[string]core.FileOutcome{}
	for _, ev := range rec.Events[1:3] {
		fc, ok := ev.(core.FileCompleted)
		require.True(t, ok, "expected FileCompleted, got %T", ev)
		completed[fc.Outcome.File] = fc.Outcome
	}
	assert.True(t, completed["a_test.nix"].Succeeded())
	assert.True(t, completed["b_test.nix"].Failed())

	last, ok := rec.Events[3].(core.SuiteCompleted)
	require.True(t, ok, "SuiteCompleted must be last")
	assert.Equal(t, summary.Processed(), last.Summary.Processed())

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, 2, summary.Processed())
	assert.Equal(t, 1, summary.Succeeded())
	assert.Equal(t, 1, summary.Failed())
	assert.Equal(t, 0, summary.Errored())
	assert.Equal(t, 0, summary.TimedOut())
	assert.True(t, summary.HasIssues())
}

func TestRun_EmptyInput(t *testing.T) {
	rec := &Recorder{}

	summary := newTestEngine(t, 4, &fakeEvaluator{}, rec).Run(context.Background(), nil)

	require.Len(t, rec.Events, 1)
	_, ok := rec.Events[0].(core.SuiteCompleted)
	assert.True(t, ok)
	assert.Equal(t, 0, summary.Processed())
	assert.Equal(t, 0, summary.Succeeded())
	assert.Equal(t, 0, summary.Failed())
	assert.Equal(t, 0, summary.Errored())
	assert.Equal(t, 0, summary.TimedOut())
	assert.False(t, summary.HasIssues())
}

func TestRun_SkippedFilesOnly(t *testing.T) {
	files := []core.TestFile{
		core.InvalidFile("default.nix"),
		core.NotFoundFile("gone_test.nix"),
	}
	rec := &Recorder{}
	eval := &fakeEvaluator{}

	summary := newTestEngine(t, 2, eval, rec).Run(context.Background(), files)

	require.Len(t, rec.Events, 3)
	assert.Equal(t, core.FileInvalid{Path: "default.nix"}, rec.Events[0])
	assert.Equal(t, core.FileNotFound{Path: "gone_test.nix"}, rec.Events[1])
	assert.Empty(t, eval.calls)
	assert.False(t, summary.HasIssues())
}

func TestRun_SuiteCompletedAfterEveryFile(t *testing.T) {
	var files []core.TestFile
	for i := range 20 {
		files = append(files, core.ValidFile(fmt.Sprintf("f%02d_test.nix", i)))
	}
	rec := &Recorder{}

	newTestEngine(t, 5, &fakeEvaluator{delay: time.Millisecond}, rec).Run(context.Background(), files)

	require.Len(t, rec.Events, 21)
	for _, ev := range rec.Events[:20] {
		assert.IsType(t, core.FileCompleted{}, ev)
	}
	assert.IsType(t, core.SuiteCompleted{}, rec.Events[20])
}

func TestRun_IsolatesPerFileFailures(t *testing.T) {
	files := []core.TestFile{
		core.ValidFile("a_test.nix"),
		core.ValidFile("b_test.nix"),
		core.ValidFile("c_test.nix"),
	}
	eval := &fakeEvaluator{outcomes: map[string]func(string) core.FileOutcome{
		"a_test.nix": func(p string) core.FileOutcome { return core.Errored(p, 0, "boom") },
		"b_test.nix": func(p string) core.FileOutcome { return core.TimedOut(p, 0, 50*time.Millisecond) },
	}}

	summary := newTestEngine(t, 1, eval, nil).Run(context.Background(), files)

	assert.Equal(t, 3, summary.Processed())
	assert.Equal(t, 1, summary.Errored())
	assert.Equal(t, 1, summary.TimedOut())
	assert.Equal(t, 1, summary.Succeeded())
}

func TestRun_CancellationTruncatesSummary(t *testing.T) {
	var files []core.TestFile
	for i := range 10 {
		files = append(files, core.ValidFile(fmt.Sprintf("f%02d_test.nix", i)))
	}
	eval := &fakeEvaluator{delay: 5 * time.Second}
	rec := &Recorder{}
	e := newTestEngine(t, 2, eval, rec)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	done := make(chan core.SuiteSummary, 1)
	go func() { done <- e.Run(ctx, files) }()

	select {
	case summary := <-done:
		assert.Less(t, summary.Processed(), len(files))
		assert.Equal(t, summary.Errored(), summary.Processed())
		assert.IsType(t, core.SuiteCompleted{}, rec.Events[len(rec.Events)-1])
	case <-time.After(3 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
}

func TestFanout(t *testing.T) {
	var order []string
	a := SinkFunc(func(core.Event) { order = append(order, "a") })
	b := SinkFunc(func(core.Event) { order = append(order, "b") })

	Fanout{a, nil, b}.Handle(core.FileInvalid{Path: "x"})

	assert.Equal(t, []string{"a", "b"}, order)
}
