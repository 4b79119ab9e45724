// Package evaluator runs a single Nix test file through nix-instantiate and
// turns the process result into a core.FileOutcome.
package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/leapstack-labs/nixtests/pkg/core"
)

// DefaultBinary is the Nix evaluator invoked for each test file.
const DefaultBinary = "nix-instantiate"

// LibPathEnv names the environment variable pointing at the nix-tests library.
const LibPathEnv = "NIX_TESTS_LIB_PATH"

// DefaultWaitDelay bounds how long Wait blocks on inherited pipes after the
// process group was killed.
const DefaultWaitDelay = time.Second

// ErrMissingLibPath is returned when no nix-tests library path is configured.
var ErrMissingLibPath = errors.New("nix-tests library path is not set (use --lib, evaluator.lib_path or " + LibPathEnv + ")")

// CommandFunc builds the command for one evaluation. The returned command
// must be bound to ctx (exec.CommandContext) so deadlines can stop it.
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Config configures an Evaluator.
type Config struct {
	// Binary is the evaluator executable. Defaults to DefaultBinary.
	Binary string
	// LibPath is the nix-tests library imported into every test file.
	LibPath string
	// Timeout bounds one evaluation. Zero waits indefinitely.
	Timeout time.Duration
	// Command overrides how processes are built. Defaults to exec.CommandContext.
	Command CommandFunc
	// Logger is optional; nil discards output.
	Logger *slog.Logger
}

// Evaluator evaluates test files. It holds no per-run state and is safe for
// concurrent use.
type Evaluator struct {
	binary  string
	libPath string
	timeout time.Duration
	command CommandFunc
	logger  *slog.Logger
}

// New creates an evaluator from cfg.
func New(cfg Config) (*Evaluator, error) {
	if cfg.LibPath == "" {
		return nil, ErrMissingLibPath
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative: got %s", cfg.Timeout)
	}
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Command == nil {
		cfg.Command = exec.CommandContext
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	return &Evaluator{
		binary:  cfg.Binary,
		libPath: cfg.LibPath,
		timeout: cfg.Timeout,
		command: cfg.Command,
		logger:  cfg.Logger,
	}, nil
}

// Binary returns the evaluator executable.
func (e *Evaluator) Binary() string { return e.binary }

// Timeout returns the per-evaluation deadline, zero when unbounded.
func (e *Evaluator) Timeout() time.Duration { return e.timeout }

// Args returns the evaluator arguments for path.
func (e *Evaluator) Args(path string) []string {
	return []string{
		"--eval", "--strict", "--json", path,
		"--arg", "nix-tests", fmt.Sprintf("import %s {}", e.libPath),
		"-A", "tests",
	}
}

// Evaluate runs one test file to a terminal outcome. It never returns an
// error: every failure mode is encoded in the outcome.
func (e *Evaluator) Evaluate(ctx context.Context, path string) core.FileOutcome {
	start := time.Now()

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := e.command(runCtx, e.binary, e.Args(path)...)
	killProcessGroupOnCancel(cmd)
	cmd.WaitDelay = DefaultWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return core.Errored(path, time.Since(start), fmt.Sprintf("failed to execute %s: %v", e.binary, err))
	}
	e.logger.Debug("evaluator started", "file", path, "pid", cmd.Process.Pid)

	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	// The parent context wins over our own deadline: a shutdown is not a timeout.
	// A process that exited cleanly keeps its result either way.
	if waitErr != nil && ctx.Err() != nil {
		e.logger.Debug("evaluation cancelled", "file", path, "elapsed", elapsed)
		return core.Errored(path, elapsed, "evaluation cancelled")
	}
	if waitErr != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		e.logger.Debug("evaluation timed out", "file", path, "timeout", e.timeout)
		return core.TimedOut(path, elapsed, e.timeout)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return core.Errored(path, elapsed, fmt.Sprintf("failed to execute %s: %v", e.binary, waitErr))
		}
		msg := stderr.String()
		if strings.TrimSpace(msg) == "" {
			msg = fmt.Sprintf("%s exited with code %d", e.binary, exitErr.ExitCode())
		}
		return core.Errored(path, elapsed, msg)
	}

	tests, err := DecodeReport(stdout.Bytes())
	if err != nil {
		return core.Errored(path, elapsed, err.Error())
	}
	return core.Completed(path, elapsed, tests)
}

// reportTest and reportCheck mirror the payload schema. Pointer fields mark
// what must be present.
type reportTest struct {
	Success  *bool          `json:"success"`
	Path     *[]string      `json:"path"`
	Location *string        `json:"location"`
	Checks   *[]reportCheck `json:"checks"`
}

type reportCheck struct {
	Name     *string `json:"name"`
	Success  *bool   `json:"success"`
	Failure  string  `json:"failure"`
	Location string  `json:"location"`
}

// DecodeReport parses the evaluator's JSON payload. The payload must be a
// list of tests carrying every required field; unknown fields are rejected.
// Test success is derived from the checks rather than trusted from the
// payload.
func DecodeReport(data []byte) ([]core.TestOutcome, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var raw []*reportTest
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to deserialize test report: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("failed to deserialize test report: unexpected data after report")
	}
	if raw == nil {
		return nil, errors.New("failed to deserialize test report: expected a list of tests, got null")
	}

	tests := make([]core.TestOutcome, 0, len(raw))
	for i, rt := range raw {
		test, err := rt.outcome()
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize test report: test %d: %w", i, err)
		}
		tests = append(tests, test.Normalize())
	}
	return tests, nil
}

func (rt *reportTest) outcome() (core.TestOutcome, error) {
	switch {
	case rt == nil:
		return core.TestOutcome{}, errors.New("null test")
	case rt.Success == nil:
		return core.TestOutcome{}, errors.New(`missing field "success"`)
	case rt.Path == nil:
		return core.TestOutcome{}, errors.New(`missing field "path"`)
	case rt.Location == nil:
		return core.TestOutcome{}, errors.New(`missing field "location"`)
	case rt.Checks == nil:
		return core.TestOutcome{}, errors.New(`missing field "checks"`)
	}

	test := core.TestOutcome{
		Success:  *rt.Success,
		Path:     *rt.Path,
		Location: *rt.Location,
		Checks:   make([]core.CheckOutcome, 0, len(*rt.Checks)),
	}
	for j, rc := range *rt.Checks {
		switch {
		case rc.Name == nil:
			return core.TestOutcome{}, fmt.Errorf(`check %d: missing field "name"`, j)
		case rc.Success == nil:
			return core.TestOutcome{}, fmt.Errorf(`check %d: missing field "success"`, j)
		}
		test.Checks = append(test.Checks, core.CheckOutcome{
			Name:     *rc.Name,
			Success:  *rc.Success,
			Failure:  rc.Failure,
			Location: rc.Location,
		})
	}
	return test, nil
}
