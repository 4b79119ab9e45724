// Package core defines the shared language of nix-tests.
//
// This package contains:
//   - Discovery results (TestFile, FileKind)
//   - Evaluation results (CheckOutcome, TestOutcome, FileOutcome)
//   - Lifecycle events emitted while a suite runs (Event)
//   - The suite-level aggregate (SuiteSummary)
//   - Resolved run and report configuration (RunConfig, ReportConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
