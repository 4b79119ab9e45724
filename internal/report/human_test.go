package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/nixtests/pkg/core"
)

func renderHuman(t *testing.T, ev core.Event) Message {
	t.Helper()
	msg, ok := NewHumanReporter(core.ReportConfig{Format: core.FormatHuman}).Render(ev)
	require.True(t, ok)
	return msg
}

func TestHumanReporter_FileOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		outcome core.FileOutcome
		want    string
	}{
		{
			name:    "passed",
			outcome: succeededOutcome(),
			want: "Testing: a_test.nix\n" +
				"✓ math -> addition -> adds\n" +
				"PASSED\n",
		},
		{
			name:    "failed",
			outcome: failedOutcome(),
			want: "Testing: b_test.nix\n" +
				"✓ strings -> concat\n" +
				"✗ strings -> upper\n" +
				"    Failure:\n" +
				"      expected \"A\"\n" +
				"      got \"a\"\n" +
				"      at b_test.nix:7\n" +
				"FAILED (1 failed)\n",
		},
		{
			name:    "errored strips escapes",
			outcome: erroredOutcome(),
			want:    "ERROR in c_test.nix\nerror: undefined variable 'foo'\n",
		},
		{
			name:    "timed out",
			outcome: timedOutOutcome(),
			want:    "TIMEOUT in d_test.nix after 50ms\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := renderHuman(t, core.FileCompleted{Outcome: tt.outcome})
			assert.Equal(t, Stdout, msg.Stream)
			assert.Equal(t, tt.want, msg.Text)
		})
	}
}

func TestHumanReporter_FailureWithoutDetailUsesTestLocation(t *testing.T) {
	o := core.Completed("e_test.nix", 0, []core.TestOutcome{{
		Path:     []string{"group"},
		Location: "e_test.nix:9",
		Checks:   []core.CheckOutcome{{Name: "check", Success: false}},
	}})

	msg := renderHuman(t, core.FileCompleted{Outcome: o})

	assert.Equal(t, "Testing: e_test.nix\n✗ group -> check\n    Failed at e_test.nix:9\nFAILED (1 failed)\n", msg.Text)
}

func TestHumanReporter_Warnings(t *testing.T) {
	msg := renderHuman(t, core.FileInvalid{Path: "flake.nix"})
	assert.Equal(t, Stderr, msg.Stream)
	assert.Equal(t, "Warning: 'flake.nix' is not a test file, skipping.\n", msg.Text)
}

func TestHumanReporter_Suite(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []core.FileOutcome
		want     string
	}{
		{"empty", nil, "No test files found"},
		{
			"all passed",
			[]core.FileOutcome{succeededOutcome()},
			"All tests passed\nFinished 1 file(s) in 250ms",
		},
		{
			"mixed",
			[]core.FileOutcome{succeededOutcome(), failedOutcome(), erroredOutcome(), timedOutOutcome()},
			"1 file(s) succeeded\n1 file(s) had errors\n1 file(s) timed out\n1 file(s) failed\nFinished 4 file(s) in 250ms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := core.NewSuiteSummary("run", tt.outcomes, 250*time.Millisecond)
			msg := renderHuman(t, core.SuiteCompleted{Summary: summary})
			assert.Equal(t, tt.want, msg.Text)
		})
	}
}

func TestHumanReporter_Color(t *testing.T) {
	r := NewHumanReporter(core.ReportConfig{Color: true})

	msg, ok := r.Render(core.FileCompleted{Outcome: succeededOutcome()})
	require.True(t, ok)
	assert.Contains(t, msg.Text, "\x1b[")

	msg, ok = r.Render(core.FileCompleted{Outcome: erroredOutcome()})
	require.True(t, ok)
	assert.Contains(t, msg.Text, "\x1b[31;1merror:", "evaluator colours are kept when colour is on")
}

func TestHumanReporter_DoesNotMutateOutcome(t *testing.T) {
	o := failedOutcome()
	before := o.Tests[0].Checks[1]

	renderHuman(t, core.FileCompleted{Outcome: o})

	assert.Equal(t, before, o.Tests[0].Checks[1])
}
