package core

import "time"

// CheckOutcome is the result of one named assertion.
type CheckOutcome struct {
	Name     string `json:"name"`
	Success  bool   `json:"success"`
	Failure  string `json:"failure,omitempty"`
	Location string `json:"location,omitempty"`
}

// TestOutcome is the result of one test, possibly nested under group names.
type TestOutcome struct {
	Success  bool           `json:"success"`
	Path     []string       `json:"path"`
	Location string         `json:"location"`
	Checks   []CheckOutcome `json:"checks"`
}

// FailedChecks returns the number of checks that did not succeed.
func (t TestOutcome) FailedChecks() int {
	n := 0
	for _, c := range t.Checks {
		if !c.Success {
			n++
		}
	}
	return n
}

// Normalize derives Success from the checks. A test with no checks succeeds.
func (t TestOutcome) Normalize() TestOutcome {
	t.Success = t.FailedChecks() == 0
	return t
}

// OutcomeStatus discriminates the terminal state of a file evaluation.
type OutcomeStatus string

// Outcome statuses.
const (
	StatusCompleted OutcomeStatus = "completed"
	StatusErrored   OutcomeStatus = "errored"
	StatusTimedOut  OutcomeStatus = "timed_out"
)

// FileOutcome is the terminal result of evaluating one test file.
//
// Tests is set for StatusCompleted, Error for StatusErrored and Timeout for
// StatusTimedOut. Elapsed is measured from dispatch to the terminal state.
type FileOutcome struct {
	Status  OutcomeStatus
	File    string
	Elapsed time.Duration
	Tests   []TestOutcome
	Error   string
	Timeout time.Duration
}

// Completed builds a StatusCompleted outcome. Tests is never nil.
func Completed(file string, elapsed time.Duration, tests []TestOutcome) FileOutcome {
	if tests == nil {
		tests = []TestOutcome{}
	}
	return FileOutcome{Status: StatusCompleted, File: file, Elapsed: elapsed, Tests: tests}
}

// Errored builds a StatusErrored outcome.
func Errored(file string, elapsed time.Duration, msg string) FileOutcome {
	return FileOutcome{Status: StatusErrored, File: file, Elapsed: elapsed, Error: msg}
}

// TimedOut builds a StatusTimedOut outcome. Elapsed is never reported below
// the timeout.
func TimedOut(file string, elapsed, timeout time.Duration) FileOutcome {
	return FileOutcome{Status: StatusTimedOut, File: file, Elapsed: max(elapsed, timeout), Timeout: timeout}
}

// FailedChecks counts failed checks across all tests. Only meaningful for
// completed outcomes.
func (o FileOutcome) FailedChecks() int {
	n := 0
	for _, t := range o.Tests {
		n += t.FailedChecks()
	}
	return n
}

// TotalChecks counts all checks across all tests.
func (o FileOutcome) TotalChecks() int {
	n := 0
	for _, t := range o.Tests {
		n += len(t.Checks)
	}
	return n
}

// Succeeded reports whether the file completed with no failed checks.
func (o FileOutcome) Succeeded() bool {
	return o.Status == StatusCompleted && o.FailedChecks() == 0
}

// Failed reports whether the file completed with at least one failed check.
func (o FileOutcome) Failed() bool {
	return o.Status == StatusCompleted && o.FailedChecks() > 0
}

// HasIssue reports whether this outcome makes the suite fail.
func (o FileOutcome) HasIssue() bool {
	return !o.Succeeded()
}

// ElapsedMS returns Elapsed in whole milliseconds.
func (o FileOutcome) ElapsedMS() int64 { return o.Elapsed.Milliseconds() }

// TimeoutMS returns Timeout in whole milliseconds.
func (o FileOutcome) TimeoutMS() int64 { return o.Timeout.Milliseconds() }
