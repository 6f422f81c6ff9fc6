// sim/generator.go
package sim

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/redlantern/routesim/sim/feeds"
)

// Generator is the contract every telemetry and noise producer satisfies so
// the runner can manage them uniformly without knowing their internals.
//
// A generator registers future callbacks on the clock (ScheduleEvents) and
// responds to timeline actions (HandleAction). Each callback eventually
// builds an Envelope and emits it on the bus with Timestamp equal to the
// firing time supplied by the clock. Generators never read the clock's queue
// and never call Run.
type Generator interface {
	// Name returns the generator variant name, matching its registry key.
	Name() string

	// Actions returns the closed set of timeline action kinds this generator
	// responds to.
	Actions() []string

	// HandleAction reacts to one timeline action firing at virtual time now.
	// The payload is the timeline entry's payload, immutable by convention.
	HandleAction(now float64, action string, payload map[string]any) error

	// ScheduleEvents registers the generator's own future clock work, if any.
	// Called once by the runner before the run starts.
	ScheduleEvents() error
}

// GeneratorConfig is the explicit per-variant configuration passed to a
// factory. Variant-specific fields live in Params; the common fields are
// what every producer needs to stamp envelopes.
type GeneratorConfig struct {
	Feed     string         // source.feed value for emitted envelopes
	Observer string         // source.observer value for emitted envelopes
	RunEnd   float64        // virtual time after which no new work is scheduled
	RNG      *rand.Rand     // scenario-subsystem stream for generators that sample
	CMDB     *feeds.CMDB    // shared change database for correlation stamps
	Isolate  IsolateFunc    // dispatch isolation for self-scheduled emissions
	Params   map[string]any // variant-specific settings from the scenario file
}

// GeneratorFactory constructs one generator variant bound to a clock, a bus,
// and a scenario name.
type GeneratorFactory func(clock *SimulationClock, bus *EventBus, scenarioName string, cfg GeneratorConfig) (Generator, error)

// generatorFactories maps variant name to factory. Sub-packages register
// their implementations via init() (see sim/telemetry).
var generatorFactories = map[string]GeneratorFactory{}

// RegisterGenerator registers a generator variant under name. Registering the
// same name twice panics: it indicates two packages claiming one variant.
func RegisterGenerator(name string, f GeneratorFactory) {
	if _, dup := generatorFactories[name]; dup {
		panic(fmt.Sprintf("generator %q registered twice", name))
	}
	generatorFactories[name] = f
}

// NewGenerator constructs the named variant. Unknown names are an error, not
// a panic: scenario files choose variants at load time.
func NewGenerator(name string, clock *SimulationClock, bus *EventBus, scenarioName string, cfg GeneratorConfig) (Generator, error) {
	f, ok := generatorFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown generator %q (registered: %v)", name, RegisteredGenerators())
	}
	return f(clock, bus, scenarioName, cfg)
}

// RegisteredGenerators returns the sorted names of all registered variants.
func RegisteredGenerators() []string {
	names := make([]string, 0, len(generatorFactories))
	for name := range generatorFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
