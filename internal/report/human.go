package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/acarl005/stripansi"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leapstack-labs/nixtests/pkg/core"
)

type humanStyles struct {
	pass    lipgloss.Style
	fail    lipgloss.Style
	error   lipgloss.Style
	warning lipgloss.Style
	muted   lipgloss.Style
}

func newHumanStyles(color bool) humanStyles {
	r := lipgloss.NewRenderer(io.Discard)
	if color {
		r.SetColorProfile(termenv.ANSI)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return humanStyles{
		pass:    r.NewStyle().Foreground(lipgloss.Color("2")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("1")),
		error:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		warning: r.NewStyle().Foreground(lipgloss.Color("3")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// HumanReporter renders events for people reading a terminal.
type HumanReporter struct {
	cfg    core.ReportConfig
	styles humanStyles
}

// NewHumanReporter creates a human reporter.
func NewHumanReporter(cfg core.ReportConfig) *HumanReporter {
	return &HumanReporter{cfg: cfg, styles: newHumanStyles(cfg.Color)}
}

// Render implements Reporter.
func (h *HumanReporter) Render(ev core.Event) (Message, bool) {
	switch ev := ev.(type) {
	case core.FileNotFound:
		return h.warning(fmt.Sprintf("'%s' is not found, skipping.\n", ev.Path)), true
	case core.FileInvalid:
		return h.warning(fmt.Sprintf("'%s' is not a test file, skipping.\n", ev.Path)), true
	case core.FileCompleted:
		if !Visible(h.cfg, ev.Outcome) {
			return Message{}, false
		}
		return Message{Stream: Stdout, Text: h.file(ev.Outcome)}, true
	case core.SuiteCompleted:
		return Message{Stream: Stdout, Text: h.suite(ev.Summary)}, true
	default:
		return Message{}, false
	}
}

func (h *HumanReporter) warning(text string) Message {
	return Message{Stream: Stderr, Text: h.styles.warning.Render("Warning:") + " " + text}
}

func (h *HumanReporter) file(o core.FileOutcome) string {
	var b strings.Builder

	switch o.Status {
	case core.StatusErrored:
		fmt.Fprintf(&b, "%s\n%s\n", h.styles.error.Render("ERROR in "+o.File), h.diagnostic(o.Error))
		return b.String()
	case core.StatusTimedOut:
		fmt.Fprintf(&b, "%s\n", h.styles.error.Render(fmt.Sprintf("TIMEOUT in %s after %dms", o.File, o.TimeoutMS())))
		return b.String()
	}

	fmt.Fprintf(&b, "Testing: %s\n", o.File)
	for _, test := range o.Tests {
		path := strings.Join(test.Path, " -> ")
		for _, check := range test.Checks {
			name := check.Name
			if path != "" {
				name = path + " -> " + check.Name
			}
			if check.Success {
				fmt.Fprintf(&b, "%s %s\n", h.styles.pass.Render("✓"), name)
				continue
			}

			fmt.Fprintf(&b, "%s %s\n", h.styles.fail.Render("✗"), name)
			location := check.Location
			if location == "" {
				location = test.Location
			}
			if check.Failure == "" {
				fmt.Fprintf(&b, "    Failed at %s\n", location)
				continue
			}
			b.WriteString("    Failure:\n")
			for _, line := range strings.Split(strings.TrimRight(check.Failure, "\n"), "\n") {
				fmt.Fprintf(&b, "      %s\n", line)
			}
			fmt.Fprintf(&b, "      %s\n", h.styles.muted.Render("at "+location))
		}
	}

	if n := o.FailedChecks(); n > 0 {
		fmt.Fprintf(&b, "%s\n", h.styles.fail.Bold(true).Render(fmt.Sprintf("FAILED (%d failed)", n)))
	} else {
		fmt.Fprintf(&b, "%s\n", h.styles.pass.Bold(true).Render("PASSED"))
	}
	return b.String()
}

// diagnostic trims evaluator output and drops escape codes unless colour is
// enabled.
func (h *HumanReporter) diagnostic(s string) string {
	s = strings.TrimRight(s, "\n")
	if !h.cfg.Color {
		s = stripansi.Strip(s)
	}
	return s
}

func (h *HumanReporter) suite(s core.SuiteSummary) string {
	var lines []string

	switch {
	case s.Processed() == 0:
		lines = append(lines, "No test files found")
	case !s.HasIssues():
		lines = append(lines, h.styles.pass.Render("All tests passed"))
	default:
		lines = append(lines, fmt.Sprintf("%d file(s) succeeded", s.Succeeded()))
		if s.Errored() > 0 {
			lines = append(lines, h.styles.error.Render(fmt.Sprintf("%d file(s) had errors", s.Errored())))
		}
		if s.TimedOut() > 0 {
			lines = append(lines, h.styles.error.Render(fmt.Sprintf("%d file(s) timed out", s.TimedOut())))
		}
		if s.Failed() > 0 {
			lines = append(lines, h.styles.fail.Render(fmt.Sprintf("%d file(s) failed", s.Failed())))
		}
	}

	if s.Processed() > 0 {
		lines = append(lines, h.styles.muted.Render(fmt.Sprintf("Finished %d file(s) in %dms", s.Processed(), s.ElapsedMS())))
	}
	return strings.Join(lines, "\n")
}
