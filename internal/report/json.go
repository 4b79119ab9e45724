package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/leapstack-labs/nixtests/pkg/core"
)

// JSON record event names.
const (
	EventFileNotFound   = "file_not_found"
	EventFileInvalid    = "file_invalid"
	EventFileCompleted  = "file_completed"
	EventSuiteCompleted = "suite_completed"
)

// FileRecord is the JSON line for one completed file. Tests is set, possibly
// to an empty list, exactly when Status is completed.
type FileRecord struct {
	Event     string              `json:"event"`
	Status    core.OutcomeStatus  `json:"status"`
	File      string              `json:"file"`
	ElapsedMS int64               `json:"elapsed_ms"`
	Tests     *[]core.TestOutcome `json:"tests,omitempty"`
	Error     string              `json:"error,omitempty"`
	TimeoutMS int64               `json:"timeout_ms,omitempty"`
}

// SuiteRecord is the JSON line closing a run.
type SuiteRecord struct {
	Event     string `json:"event"`
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Errored   int    `json:"errored"`
	TimedOut  int    `json:"timed_out"`
	ElapsedMS int64  `json:"elapsed_ms"`
	HasIssues bool   `json:"has_issues"`
}

// SkipRecord is the JSON line for a skipped path.
type SkipRecord struct {
	Event string `json:"event"`
	Path  string `json:"path"`
}

// JSONReporter renders one JSON object per event, for machines.
type JSONReporter struct {
	cfg core.ReportConfig
}

// NewJSONReporter creates a JSON lines reporter.
func NewJSONReporter(cfg core.ReportConfig) *JSONReporter {
	return &JSONReporter{cfg: cfg}
}

// Render implements Reporter.
func (j *JSONReporter) Render(ev core.Event) (Message, bool) {
	switch ev := ev.(type) {
	case core.FileNotFound:
		return encodeLine(Stderr, SkipRecord{Event: EventFileNotFound, Path: ev.Path})
	case core.FileInvalid:
		return encodeLine(Stderr, SkipRecord{Event: EventFileInvalid, Path: ev.Path})
	case core.FileCompleted:
		if !Visible(j.cfg, ev.Outcome) {
			return Message{}, false
		}
		return encodeLine(Stdout, NewFileRecord(ev.Outcome))
	case core.SuiteCompleted:
		s := ev.Summary
		return encodeLine(Stdout, SuiteRecord{
			Event:     EventSuiteCompleted,
			RunID:     s.RunID,
			Processed: s.Processed(),
			Succeeded: s.Succeeded(),
			Failed:    s.Failed(),
			Errored:   s.Errored(),
			TimedOut:  s.TimedOut(),
			ElapsedMS: s.ElapsedMS(),
			HasIssues: s.HasIssues(),
		})
	default:
		return Message{}, false
	}
}

// NewFileRecord converts an outcome to its JSON record.
func NewFileRecord(o core.FileOutcome) FileRecord {
	rec := FileRecord{
		Event:     EventFileCompleted,
		Status:    o.Status,
		File:      o.File,
		ElapsedMS: o.ElapsedMS(),
	}
	switch o.Status {
	case core.StatusCompleted:
		tests := o.Tests
		if tests == nil {
			tests = []core.TestOutcome{}
		}
		rec.Tests = &tests
	case core.StatusErrored:
		rec.Error = stripansi.Strip(o.Error)
	case core.StatusTimedOut:
		rec.TimeoutMS = o.TimeoutMS()
	}
	return rec
}

// ParseFileRecord decodes a file_completed line back into an outcome.
func ParseFileRecord(line []byte) (core.FileOutcome, error) {
	var rec FileRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return core.FileOutcome{}, fmt.Errorf("failed to decode file record: %w", err)
	}
	if rec.Event != EventFileCompleted {
		return core.FileOutcome{}, fmt.Errorf("unexpected event %q, want %q", rec.Event, EventFileCompleted)
	}

	elapsed := time.Duration(rec.ElapsedMS) * time.Millisecond
	switch rec.Status {
	case core.StatusCompleted:
		if rec.Tests == nil {
			return core.FileOutcome{}, fmt.Errorf("completed record for %s has no tests", rec.File)
		}
		return core.Completed(rec.File, elapsed, *rec.Tests), nil
	case core.StatusErrored:
		return core.Errored(rec.File, elapsed, rec.Error), nil
	case core.StatusTimedOut:
		return core.TimedOut(rec.File, elapsed, time.Duration(rec.TimeoutMS)*time.Millisecond), nil
	default:
		return core.FileOutcome{}, fmt.Errorf("unknown file status %q", rec.Status)
	}
}

func encodeLine(stream Stream, v any) (Message, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		// Records hold only strings, numbers and bools.
		panic(fmt.Sprintf("report: failed to encode %T: %v", v, err))
	}
	return Message{Stream: stream, Text: string(data)}, true
}
