// sim/runner.go
package sim

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/redlantern/routesim/sim/feeds"
)

// NoiseChannel is one independent background noise stream (routing churn,
// change-management churn). A channel schedules its first emission when
// started and each emission schedules its own successor, stopping once the
// next draw would land past the run end so the clock's queue can empty.
type NoiseChannel interface {
	Name() string
	Start(runEnd float64) error
}

// IsolateFunc applies a dispatch isolation policy to an error from bus-routed
// work. Implementations decide which errors are collected as faults (returning
// nil) and which stay fatal. ScenarioRunner.Isolate is the standard one.
type IsolateFunc func(error) error

// RunnerConfig carries the run-level knobs of a ScenarioRunner.
type RunnerConfig struct {
	// RunEnd is the virtual time at which self-rescheduling producers stop.
	// Zero means "end of the scenario timeline".
	RunEnd float64

	// RNG is the scenario-subsystem random stream handed to bound generators
	// that sample (latency baselines). Nil is fine for runs whose generators
	// never draw.
	RNG *rand.Rand

	// CMDB is the change database generators consult for correlation stamps.
	// Sharing one instance with the cmdb noise channel is what lets routine
	// churn show up as approved changes next to the scenario's unapproved ones.
	CMDB *feeds.CMDB
}

// ScenarioRunner turns a declarative timeline into scheduled clock work and
// drives one complete run. Scenario entries and background noise share the
// same clock and are interleaved solely by (due time, sequence); neither
// stream is aware of the other.
type ScenarioRunner struct {
	clock    *SimulationClock
	bus      *EventBus
	scenario *Scenario
	runEnd   float64
	rng      *rand.Rand
	cmdb     *feeds.CMDB

	generators []Generator
	actions    map[string][]Generator // action kind → bound generators, bind order
	noise      []NoiseChannel

	dispatchFaults []error
}

// NewScenarioRunner creates a runner for one loaded scenario. The clock and
// bus are owned by the caller; the runner never creates hidden instances.
func NewScenarioRunner(clock *SimulationClock, bus *EventBus, scenario *Scenario, cfg RunnerConfig) *ScenarioRunner {
	runEnd := cfg.RunEnd
	if runEnd <= 0 {
		runEnd = scenario.End()
	}
	return &ScenarioRunner{
		clock:    clock,
		bus:      bus,
		scenario: scenario,
		runEnd:   runEnd,
		rng:      cfg.RNG,
		cmdb:     cfg.CMDB,
		actions:  make(map[string][]Generator),
	}
}

// RunEnd returns the virtual time at which self-rescheduling producers stop.
func (r *ScenarioRunner) RunEnd() float64 { return r.runEnd }

// BindGenerator attaches a constructed generator to this run and indexes the
// action kinds it responds to. Bind order defines invocation order for
// generators sharing an action.
func (r *ScenarioRunner) BindGenerator(g Generator) {
	r.generators = append(r.generators, g)
	for _, action := range g.Actions() {
		r.actions[action] = append(r.actions[action], g)
	}
}

// BindConfiguredGenerators constructs and binds every generator variant named
// in the scenario's generators section, using the registry.
func (r *ScenarioRunner) BindConfiguredGenerators(feed, observer string) error {
	for _, binding := range r.scenario.Generators {
		g, err := NewGenerator(binding.Name, r.clock, r.bus, r.scenario.Name, GeneratorConfig{
			Feed:     feed,
			Observer: observer,
			RunEnd:   r.runEnd,
			RNG:      r.rng,
			CMDB:     r.cmdb,
			Isolate:  r.Isolate,
			Params:   binding.Params,
		})
		if err != nil {
			return fmt.Errorf("bind generator for scenario %s: %w", r.scenario.Name, err)
		}
		r.BindGenerator(g)
	}
	return nil
}

// AddNoise attaches a background noise channel to this run.
func (r *ScenarioRunner) AddNoise(ch NoiseChannel) {
	r.noise = append(r.noise, ch)
}

// Run schedules every timeline entry and noise channel on the clock, then
// drains the clock once. It returns when the queue is empty.
//
// Load- and schedule-time errors abort before the clock starts. A scheduled
// callback failing outright halts the run (run-fatal). Handler faults raised
// during bus dispatch are isolated per handler, collected across the whole
// run, and returned in aggregate after the run completes; they never abort
// the run on their own.
func (r *ScenarioRunner) Run() error {
	for _, g := range r.generators {
		if err := g.ScheduleEvents(); err != nil {
			return fmt.Errorf("generator %s: schedule events: %w", g.Name(), err)
		}
	}

	for _, entry := range r.scenario.Timeline {
		entry := entry
		_, err := r.clock.Schedule(entry.T, func(now float64) error {
			return r.dispatch(now, entry)
		})
		if err != nil {
			return fmt.Errorf("schedule timeline action %s at t=%v: %w", entry.Action, entry.T, err)
		}
	}

	for _, ch := range r.noise {
		if err := ch.Start(r.runEnd); err != nil {
			return fmt.Errorf("start noise channel %s: %w", ch.Name(), err)
		}
	}

	logrus.Infof("scenario %s: %d timeline entries, %d noise channels, run end t=%.3f",
		r.scenario.Name, len(r.scenario.Timeline), len(r.noise), r.runEnd)

	if err := r.clock.Run(); err != nil {
		return err
	}
	return errors.Join(r.dispatchFaults...)
}

// DispatchFaults returns the handler faults collected during the run, in
// occurrence order. Empty for a clean run.
func (r *ScenarioRunner) DispatchFaults() []error {
	return r.dispatchFaults
}

// dispatch is the single resolver for timeline actions. Actions claimed by a
// bound generator go to that generator; anything else is re-published as a
// generic scenario envelope so downstream consumers still see the step.
func (r *ScenarioRunner) dispatch(now float64, entry TimelineEntry) error {
	logrus.Debugf("[t %.3f] action %s", now, entry.Action)

	bound := r.actions[entry.Action]
	if len(bound) == 0 {
		return r.recordFaults(r.bus.Emit(Envelope{
			EventType:  "scenario." + entry.Action,
			Timestamp:  now,
			Source:     Source{Feed: "scenario", Observer: "simulator"},
			Attributes: entry.Payload,
			Scenario: ScenarioRef{
				Name:       r.scenario.Name,
				AttackStep: entry.Action,
			},
		}))
	}

	for _, g := range bound {
		if err := r.recordFaults(g.HandleAction(now, entry.Action, entry.Payload)); err != nil {
			return err
		}
	}
	return nil
}

// Isolate applies the runner's dispatch isolation policy to an error from
// bus-routed work scheduled outside the timeline (noise channels, generator
// self-scheduled callbacks): handler faults are collected and suppressed,
// anything else stays run-fatal.
func (r *ScenarioRunner) Isolate(err error) error {
	return r.recordFaults(err)
}

// recordFaults separates isolated handler faults from run-fatal errors.
// *DispatchError is collected and suppressed; anything else propagates.
func (r *ScenarioRunner) recordFaults(err error) error {
	if err == nil {
		return nil
	}
	var de *DispatchError
	if errors.As(err, &de) {
		logrus.Warnf("dispatch fault: %v", de)
		r.dispatchFaults = append(r.dispatchFaults, de)
		return nil
	}
	return err
}
