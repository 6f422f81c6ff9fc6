// Package output turns emitted envelopes into target log formats. Adapters
// subscribe to the event bus through a Writer; the core's only obligation to
// them is well-formed envelopes in correct time order.
package output

import (
	"fmt"
	"io"

	"github.com/redlantern/routesim/sim"
)

// Adapter transforms one envelope into zero or more output lines.
// Returning no lines means the adapter does not handle that event type.
type Adapter interface {
	Transform(ev sim.Envelope) ([]string, error)
}

// Writer routes envelopes through per-event-type adapters and writes the
// resulting lines to an io.Writer. It subscribes as a wildcard bus handler,
// so a transform or write failure surfaces as an isolated handler fault
// rather than aborting the run.
type Writer struct {
	out      io.Writer
	adapters map[string]Adapter
	fallback Adapter

	lines int
}

// NewWriter creates a Writer emitting to out. fallback handles event types
// with no registered adapter; nil means such events are dropped silently.
func NewWriter(out io.Writer, fallback Adapter) *Writer {
	return &Writer{
		out:      out,
		adapters: make(map[string]Adapter),
		fallback: fallback,
	}
}

// Register binds an adapter to an exact event type.
func (w *Writer) Register(eventType string, a Adapter) {
	w.adapters[eventType] = a
}

// Attach subscribes the writer to every event on the bus.
func (w *Writer) Attach(bus *sim.EventBus) {
	bus.Subscribe(sim.TopicWildcard, w.Handle)
}

// Handle is the bus handler: transform, then write.
func (w *Writer) Handle(ev sim.Envelope) error {
	adapter, ok := w.adapters[ev.EventType]
	if !ok {
		adapter = w.fallback
	}
	if adapter == nil {
		return nil
	}
	lines, err := adapter.Transform(ev)
	if err != nil {
		return fmt.Errorf("transform %s: %w", ev.EventType, err)
	}
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, err := io.WriteString(w.out, line+"\n"); err != nil {
			return fmt.Errorf("write %s: %w", ev.EventType, err)
		}
		w.lines++
	}
	return nil
}

// Lines returns how many output lines have been written.
func (w *Writer) Lines() int { return w.lines }
