package sim

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator is a minimal timeline-driven generator for engine tests.
type fakeGenerator struct {
	name      string
	actions   []string
	clock     *SimulationClock
	bus       *EventBus
	scenario  string
	handleErr error

	handled []string
}

func (g *fakeGenerator) Name() string          { return g.name }
func (g *fakeGenerator) Actions() []string     { return g.actions }
func (g *fakeGenerator) ScheduleEvents() error { return nil }

func (g *fakeGenerator) HandleAction(now float64, action string, payload map[string]any) error {
	g.handled = append(g.handled, fmt.Sprintf("%s@%g", action, now))
	if g.handleErr != nil {
		return g.handleErr
	}
	return g.bus.Emit(Envelope{
		EventType:  "fake." + action,
		Timestamp:  now,
		Source:     Source{Feed: "fake", Observer: "test"},
		Attributes: payload,
		Scenario:   ScenarioRef{Name: g.scenario, AttackStep: action},
	})
}

// fixedNoise schedules one envelope per configured time, like a noise channel
// with a precomputed arrival sequence.
type fixedNoise struct {
	name  string
	clock *SimulationClock
	bus   *EventBus
	times []float64
}

func (n *fixedNoise) Name() string { return n.name }

func (n *fixedNoise) Start(runEnd float64) error {
	for _, at := range n.times {
		if at > runEnd {
			continue
		}
		at := at
		if _, err := n.clock.Schedule(at, func(now float64) error {
			return n.bus.Emit(Envelope{
				EventType: "noise.tick",
				Timestamp: now,
				Source:    Source{Feed: n.name, Observer: "test"},
			})
		}); err != nil {
			return err
		}
	}
	return nil
}

func mustParse(t *testing.T, yaml string) *Scenario {
	t.Helper()
	sc, err := ParseScenario([]byte(yaml))
	require.NoError(t, err)
	return sc
}

func collectEnvelopes(bus *EventBus) *[]Envelope {
	var seen []Envelope
	bus.Subscribe(TopicWildcard, func(ev Envelope) error {
		seen = append(seen, ev)
		return nil
	})
	return &seen
}

func TestRunner_DispatchesBoundGenerator(t *testing.T) {
	clock := NewSimulationClock()
	bus := NewEventBus()
	sc := mustParse(t, `
name: demo
timeline:
  - t: 5
    action: do_thing
    payload: {k: v}
  - t: 2
    action: do_thing
`)
	seen := collectEnvelopes(bus)

	runner := NewScenarioRunner(clock, bus, sc, RunnerConfig{})
	gen := &fakeGenerator{name: "fake", actions: []string{"do_thing"}, clock: clock, bus: bus, scenario: "demo"}
	runner.BindGenerator(gen)

	require.NoError(t, runner.Run())

	// Timeline entries fire in due-time order regardless of file order.
	assert.Equal(t, []string{"do_thing@2", "do_thing@5"}, gen.handled)
	require.Len(t, *seen, 2)
	assert.Equal(t, "fake.do_thing", (*seen)[0].EventType)
	assert.Equal(t, 2.0, (*seen)[0].Timestamp)
	assert.Equal(t, "v", (*seen)[1].Attributes["k"])
}

func TestRunner_UnboundActionRepublishedAsScenarioEvent(t *testing.T) {
	clock := NewSimulationClock()
	bus := NewEventBus()
	sc := mustParse(t, `
name: demo
timeline:
  - t: 1
    action: mystery_step
    payload: {prefix: 10.0.0.0/8}
`)
	seen := collectEnvelopes(bus)

	runner := NewScenarioRunner(clock, bus, sc, RunnerConfig{})
	require.NoError(t, runner.Run())

	require.Len(t, *seen, 1)
	ev := (*seen)[0]
	assert.Equal(t, "scenario.mystery_step", ev.EventType)
	assert.Equal(t, 1.0, ev.Timestamp)
	assert.Equal(t, "demo", ev.Scenario.Name)
	assert.Equal(t, "mystery_step", ev.Scenario.AttackStep)
	assert.Equal(t, "10.0.0.0/8", ev.Attributes["prefix"])
}

func TestRunner_DispatchFaultsCollectedNotFatal(t *testing.T) {
	clock := NewSimulationClock()
	bus := NewEventBus()
	sc := mustParse(t, `
name: demo
timeline:
  - t: 1
    action: step_one
  - t: 2
    action: step_two
`)
	failure := errors.New("subscriber broken")
	bus.Subscribe("scenario.step_one", func(Envelope) error { return failure })
	healthy := 0
	bus.Subscribe(TopicWildcard, func(Envelope) error { healthy++; return nil })

	runner := NewScenarioRunner(clock, bus, sc, RunnerConfig{})
	err := runner.Run()

	// The run completed: both entries dispatched, healthy handler saw both.
	assert.Equal(t, 2, healthy)
	// The fault is reported in aggregate after the run.
	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	require.Len(t, runner.DispatchFaults(), 1)
	var de *DispatchError
	require.ErrorAs(t, runner.DispatchFaults()[0], &de)
	assert.Equal(t, "scenario.step_one", de.EventType)
}

func TestRunner_GeneratorErrorIsRunFatal(t *testing.T) {
	clock := NewSimulationClock()
	bus := NewEventBus()
	sc := mustParse(t, `
name: demo
timeline:
  - t: 1
    action: do_thing
  - t: 2
    action: do_thing
`)
	boom := errors.New("generator bug")
	gen := &fakeGenerator{name: "fake", actions: []string{"do_thing"}, clock: clock, bus: bus, scenario: "demo", handleErr: boom}

	runner := NewScenarioRunner(clock, bus, sc, RunnerConfig{})
	runner.BindGenerator(gen)
	err := runner.Run()

	require.ErrorIs(t, err, boom)
	// The run halted at the first failure.
	assert.Equal(t, []string{"do_thing@1"}, gen.handled)
}

func TestRunner_NoiseAndTimelineInterleaveByDueTime(t *testing.T) {
	clock := NewSimulationClock()
	bus := NewEventBus()
	sc := mustParse(t, `
name: demo
timeline:
  - t: 10
    action: alpha
  - t: 30
    action: omega
`)
	seen := collectEnvelopes(bus)

	runner := NewScenarioRunner(clock, bus, sc, RunnerConfig{})
	runner.AddNoise(&fixedNoise{name: "churn", clock: clock, bus: bus, times: []float64{5, 10, 25, 31}})

	require.NoError(t, runner.Run())

	var sequence []string
	for _, ev := range *seen {
		sequence = append(sequence, fmt.Sprintf("%s@%g", ev.EventType, ev.Timestamp))
	}
	// t=31 noise is past the run end (30) and was never scheduled. At t=10
	// the timeline entry was scheduled before the noise channel started, so
	// sequence order puts it first.
	assert.Equal(t, []string{
		"noise.tick@5",
		"scenario.alpha@10",
		"noise.tick@10",
		"noise.tick@25",
		"scenario.omega@30",
	}, sequence)
}

func TestRunner_RunEndDefaultsToTimelineEnd(t *testing.T) {
	sc := mustParse(t, "name: x\ntimeline:\n  - t: 42\n    action: a\n")
	runner := NewScenarioRunner(NewSimulationClock(), NewEventBus(), sc, RunnerConfig{})
	assert.Equal(t, 42.0, runner.RunEnd())

	runner = NewScenarioRunner(NewSimulationClock(), NewEventBus(), sc, RunnerConfig{RunEnd: 100})
	assert.Equal(t, 100.0, runner.RunEnd())
}

func TestRunner_BindConfiguredGenerators_UnknownVariant(t *testing.T) {
	sc := mustParse(t, `
name: x
generators:
  - name: does_not_exist
timeline:
  - t: 0
    action: a
`)
	runner := NewScenarioRunner(NewSimulationClock(), NewEventBus(), sc, RunnerConfig{})
	err := runner.BindConfiguredGenerators("mock", "simulator")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does_not_exist")
}
