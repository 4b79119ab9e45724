package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func succeededFile(name string) FileOutcome {
	return Completed(name, time.Millisecond, []TestOutcome{
		{Success: true, Path: []string{"test"}, Location: name + ":1", Checks: []CheckOutcome{
			{Name: "check", Success: true, Location: name + ":2"},
		}},
	})
}

func failedFile(name string) FileOutcome {
	return Completed(name, time.Millisecond, []TestOutcome{
		{Success: false, Path: []string{"test"}, Location: name + ":1", Checks: []CheckOutcome{
			{Name: "check", Success: false, Failure: "failed", Location: name + ":2"},
		}},
	})
}

func erroredFile(name string) FileOutcome {
	return Errored(name, time.Millisecond, "error")
}

func timedOutFile(name string) FileOutcome {
	return TimedOut(name, 60*time.Millisecond, 50*time.Millisecond)
}

func TestNewSuiteSummary_Counts(t *testing.T) {
	s := NewSuiteSummary("run", []FileOutcome{
		succeededFile("a"),
		succeededFile("b"),
		erroredFile("c"),
		erroredFile("d"),
		erroredFile("e"),
		failedFile("f"),
		timedOutFile("g"),
	}, time.Second)

	assert.Equal(t, 7, s.Processed())
	assert.Equal(t, 2, s.Succeeded())
	assert.Equal(t, 1, s.Failed())
	assert.Equal(t, 3, s.Errored())
	assert.Equal(t, 1, s.TimedOut())
	assert.True(t, s.HasIssues())
	assert.Equal(t, int64(1000), s.ElapsedMS())
}

func TestNewSuiteSummary_Empty(t *testing.T) {
	s := NewSuiteSummary("run", nil, 0)

	assert.Equal(t, 0, s.Processed())
	assert.Equal(t, 0, s.Succeeded())
	assert.Equal(t, 0, s.Failed())
	assert.Equal(t, 0, s.Errored())
	assert.Equal(t, 0, s.TimedOut())
	assert.False(t, s.HasIssues())
}

func TestNewSuiteSummary_HasIssues(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []FileOutcome
		want     bool
	}{
		{"all pass", []FileOutcome{succeededFile("a"), succeededFile("b")}, false},
		{"one failed", []FileOutcome{succeededFile("a"), failedFile("b")}, true},
		{"one errored", []FileOutcome{succeededFile("a"), erroredFile("b")}, true},
		{"one timed out", []FileOutcome{succeededFile("a"), timedOutFile("b")}, true},
		{"completed without tests", []FileOutcome{Completed("a", 0, nil)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewSuiteSummary("run", tt.outcomes, 0).HasIssues())
		})
	}
}

func TestNewSuiteSummary_OrderIndependent(t *testing.T) {
	forward := NewSuiteSummary("run", []FileOutcome{succeededFile("a"), failedFile("b"), erroredFile("c")}, time.Second)
	backward := NewSuiteSummary("run", []FileOutcome{erroredFile("c"), failedFile("b"), succeededFile("a")}, time.Second)

	assert.Equal(t, forward, backward)
}

func TestNewSuiteSummary_DoesNotAliasInput(t *testing.T) {
	input := []FileOutcome{succeededFile("b"), succeededFile("a")}
	s := NewSuiteSummary("run", input, 0)

	assert.Equal(t, "b", input[0].File, "input must not be reordered")
	assert.Equal(t, "a", s.Outcomes[0].File)
}
