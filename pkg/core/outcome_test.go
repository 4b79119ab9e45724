package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestOutcome_Normalize(t *testing.T) {
	tests := []struct {
		name   string
		checks []CheckOutcome
		want   bool
	}{
		{"no checks", nil, true},
		{"all pass", []CheckOutcome{{Name: "a", Success: true}, {Name: "b", Success: true}}, true},
		{"one fails", []CheckOutcome{{Name: "a", Success: true}, {Name: "b", Success: false}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Success deliberately set to the wrong value.
			got := TestOutcome{Success: !tt.want, Checks: tt.checks}.Normalize()
			assert.Equal(t, tt.want, got.Success)
		})
	}
}

func TestFileOutcome_Predicates(t *testing.T) {
	tests := []struct {
		name      string
		outcome   FileOutcome
		succeeded bool
		failed    bool
		issue     bool
	}{
		{"succeeded", succeededFile("a"), true, false, false},
		{"failed", failedFile("a"), false, true, true},
		{"errored", erroredFile("a"), false, false, true},
		{"timed out", timedOutFile("a"), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.succeeded, tt.outcome.Succeeded())
			assert.Equal(t, tt.failed, tt.outcome.Failed())
			assert.Equal(t, tt.issue, tt.outcome.HasIssue())
		})
	}
}

func TestFileOutcome_CheckCounts(t *testing.T) {
	o := Completed("a", 0, []TestOutcome{
		{Checks: []CheckOutcome{{Success: true}, {Success: false}}},
		{Checks: []CheckOutcome{{Success: false}}},
	})

	assert.Equal(t, 3, o.TotalChecks())
	assert.Equal(t, 2, o.FailedChecks())
}

func TestTimedOut_ElapsedNeverBelowTimeout(t *testing.T) {
	o := TimedOut("slow_test.nix", 49*time.Millisecond, 50*time.Millisecond)

	require.Equal(t, StatusTimedOut, o.Status)
	assert.Equal(t, int64(50), o.ElapsedMS())
	assert.Equal(t, int64(50), o.TimeoutMS())
}

func TestCompleted_TestsNeverNil(t *testing.T) {
	o := Completed("a_test.nix", 0, nil)
	assert.NotNil(t, o.Tests)
	assert.Empty(t, o.Tests)
}

func TestRunConfig_Validate(t *testing.T) {
	assert.NoError(t, RunConfig{Concurrency: 1}.Validate())
	assert.NoError(t, RunConfig{Concurrency: 8, Timeout: time.Second}.Validate())
	assert.ErrorIs(t, RunConfig{Concurrency: 0}.Validate(), ErrInvalidConcurrency)
	assert.ErrorIs(t, RunConfig{Concurrency: -3}.Validate(), ErrInvalidConcurrency)
	assert.Error(t, RunConfig{Concurrency: 1, Timeout: -time.Second}.Validate())
}

func TestParseReportFormat(t *testing.T) {
	f, err := ParseReportFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseReportFormat("human")
	require.NoError(t, err)
	assert.Equal(t, FormatHuman, f)

	_, err = ParseReportFormat("xml")
	assert.ErrorContains(t, err, "unknown report format")
}
