// Package trace provides emission accounting for simulation runs. It stores
// pure data and has no dependency on the engine beyond the envelope shape; a
// RunTrace subscribes to the bus like any other consumer.
package trace

import "github.com/redlantern/routesim/sim"

// EmissionRecord aggregates the envelopes seen for one event type.
type EmissionRecord struct {
	EventType string
	Count     int
	First     float64 // virtual time of the first emission
	Last      float64 // virtual time of the last emission
}

// RunTrace records per-event-type emission statistics for one run.
type RunTrace struct {
	records map[string]*EmissionRecord
	total   int
}

// NewRunTrace creates an empty trace.
func NewRunTrace() *RunTrace {
	return &RunTrace{records: make(map[string]*EmissionRecord)}
}

// Attach subscribes the trace to every event on the bus.
func (rt *RunTrace) Attach(bus *sim.EventBus) {
	bus.Subscribe(sim.TopicWildcard, rt.Record)
}

// Record accounts for one envelope. Never fails; it exists to satisfy the
// bus handler signature.
func (rt *RunTrace) Record(ev sim.Envelope) error {
	rec, ok := rt.records[ev.EventType]
	if !ok {
		rec = &EmissionRecord{EventType: ev.EventType, First: ev.Timestamp}
		rt.records[ev.EventType] = rec
	}
	rec.Count++
	rec.Last = ev.Timestamp
	rt.total++
	return nil
}

// Total returns the number of envelopes recorded.
func (rt *RunTrace) Total() int { return rt.total }

// Record returns the emission record for one event type, nil if none seen.
func (rt *RunTrace) RecordFor(eventType string) *EmissionRecord {
	return rt.records[eventType]
}
