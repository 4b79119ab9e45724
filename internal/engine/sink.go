package engine

import "github.com/leapstack-labs/nixtests/pkg/core"

// Sink consumes lifecycle events. The engine never calls Handle
// concurrently.
type Sink interface {
	Handle(ev core.Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ev core.Event)

// Handle implements Sink.
func (f SinkFunc) Handle(ev core.Event) { f(ev) }

// Fanout delivers each event to every sink, in order.
type Fanout []Sink

// Handle implements Sink.
func (f Fanout) Handle(ev core.Event) {
	for _, s := range f {
		if s != nil {
			s.Handle(ev)
		}
	}
}

// Recorder is a Sink that keeps every event it receives.
type Recorder struct {
	Events []core.Event
}

// Handle implements Sink.
func (r *Recorder) Handle(ev core.Event) { r.Events = append(r.Events, ev) }
