//go:build !unix

package evaluator

import "os/exec"

// killProcessGroupOnCancel keeps the default cancellation, which kills only
// the evaluator process itself.
func killProcessGroupOnCancel(*exec.Cmd) {}
