// Package report renders lifecycle events as human readable text or JSON
// lines, honouring per-outcome visibility.
package report

import (
	"fmt"
	"io"

	"github.com/leapstack-labs/nixtests/pkg/core"
)

// Stream identifies the destination of a message.
type Stream int

// Streams.
const (
	Stdout Stream = iota
	Stderr
)

// Message is one rendered event. Printer terminates Text with a newline.
type Message struct {
	Stream Stream
	Text   string
}

// Reporter renders lifecycle events. Render returns false when the event
// produces no output. Implementations never mutate the event.
type Reporter interface {
	Render(ev core.Event) (Message, bool)
}

// New returns the reporter for cfg.Format.
func New(cfg core.ReportConfig) (Reporter, error) {
	switch cfg.Format {
	case core.FormatHuman, "":
		return NewHumanReporter(cfg), nil
	case core.FormatJSON:
		return NewJSONReporter(cfg), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", cfg.Format)
	}
}

// Visible reports whether a completed file should be rendered.
// Timed-out files follow the errored flag.
func Visible(cfg core.ReportConfig, o core.FileOutcome) bool {
	switch {
	case o.Succeeded():
		return !cfg.HideSucceeded
	case o.Failed():
		return !cfg.HideFailed
	default:
		return !cfg.HideErrored
	}
}

// Printer is an engine sink that writes rendered messages.
type Printer struct {
	reporter Reporter
	stdout   io.Writer
	stderr   io.Writer
}

// NewPrinter creates a printer writing to stdout and stderr.
func NewPrinter(reporter Reporter, stdout, stderr io.Writer) *Printer {
	return &Printer{reporter: reporter, stdout: stdout, stderr: stderr}
}

// Handle renders ev and writes it to its stream.
func (p *Printer) Handle(ev core.Event) {
	msg, ok := p.reporter.Render(ev)
	if !ok {
		return
	}
	w := p.stdout
	if msg.Stream == Stderr {
		w = p.stderr
	}
	_, _ = fmt.Fprintln(w, msg.Text)
}
