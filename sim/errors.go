package sim

import (
	"fmt"
	"strings"
)

// Run stages, used to label which phase of a simulation a failure belongs to.
const (
	StageLoad     = "load"
	StageSchedule = "schedule"
	StageDispatch = "dispatch"
	StageRun      = "run"
)

// ScenarioLoadError reports a malformed or incomplete scenario definition.
// It is always raised before any clock entry is scheduled, so a load failure
// never leaves a partially scheduled run behind.
type ScenarioLoadError struct {
	Path   string // scenario file path, empty when loaded from memory
	Detail string
}

func (e *ScenarioLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("scenario load: %s", e.Detail)
	}
	return fmt.Sprintf("scenario load %s: %s", e.Path, e.Detail)
}

// Stage returns the run stage this error belongs to.
func (e *ScenarioLoadError) Stage() string { return StageLoad }

// InvalidScheduleError reports a Schedule call with a due time that is not a
// finite non-negative number. Clock state is untouched by a rejected call.
type InvalidScheduleError struct {
	Due float64
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("schedule: due time %v is not a finite non-negative number", e.Due)
}

// Stage returns the run stage this error belongs to.
func (e *InvalidScheduleError) Stage() string { return StageSchedule }

// HandlerFault records one subscriber that failed during a single Emit.
type HandlerFault struct {
	Topic string // topic the handler was subscribed under ("*" for wildcard)
	Index int    // registration order within that topic
	Err   error
}

// DispatchError aggregates handler faults from one Emit call. Emit runs every
// matching handler before returning, so a DispatchError never implies that
// healthy handlers were skipped.
type DispatchError struct {
	EventType string
	Faults    []HandlerFault
}

func (e *DispatchError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "dispatch %s: %d handler(s) failed:", e.EventType, len(e.Faults))
	for _, f := range e.Faults {
		fmt.Fprintf(&sb, " [topic=%s order=%d: %v]", f.Topic, f.Index, f.Err)
	}
	return sb.String()
}

// Stage returns the run stage this error belongs to.
func (e *DispatchError) Stage() string { return StageDispatch }

// Unwrap exposes the individual handler errors to errors.Is/As.
func (e *DispatchError) Unwrap() []error {
	errs := make([]error, len(e.Faults))
	for i, f := range e.Faults {
		errs[i] = f.Err
	}
	return errs
}
