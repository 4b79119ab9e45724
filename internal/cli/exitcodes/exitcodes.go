// Package exitcodes defines the process exit codes of nix-tests.
package exitcodes

const (
	// Success means every processed file passed.
	Success = 0
	// TestFailure means at least one file failed, errored or timed out.
	TestFailure = 1
	// RuntimeErr means the run could not be performed (bad configuration,
	// missing library path, discovery failure).
	RuntimeErr = 2
)
