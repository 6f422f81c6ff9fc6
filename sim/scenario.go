// sim/scenario.go
package sim

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// TimelineEntry is one (time, action, payload) tuple within a scenario.
// Entries are immutable once loaded.
type TimelineEntry struct {
	T       float64
	Action  string
	Payload map[string]any
}

// GeneratorBinding names a generator variant to bind to a scenario, plus its
// variant-specific parameters from the scenario file.
type GeneratorBinding struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

// Scenario is a named, declarative timeline of actions representing one
// incident narrative.
type Scenario struct {
	Name       string
	Difficulty string
	Generators []GeneratorBinding
	Timeline   []TimelineEntry
}

// rawScenario mirrors the YAML document. Pointer fields distinguish a missing
// value from a zero value during validation.
type rawScenario struct {
	Name       string             `yaml:"name"`
	Difficulty string             `yaml:"difficulty"`
	Generators []GeneratorBinding `yaml:"generators"`
	Timeline   []rawTimelineEntry `yaml:"timeline"`
}

type rawTimelineEntry struct {
	T       *float64       `yaml:"t"`
	Action  string         `yaml:"action"`
	Payload map[string]any `yaml:"payload"`
}

// LoadScenario reads and validates a scenario definition from a YAML file.
// Validation fails fast with *ScenarioLoadError; on failure no scheduling has
// happened and no partial scenario is returned.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ScenarioLoadError{Path: path, Detail: err.Error()}
	}
	sc, err := ParseScenario(data)
	if err != nil {
		if le, ok := err.(*ScenarioLoadError); ok {
			le.Path = path
		}
		return nil, err
	}
	return sc, nil
}

// ParseScenario validates a scenario definition held in memory.
func ParseScenario(data []byte) (*Scenario, error) {
	var raw rawScenario
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ScenarioLoadError{Detail: fmt.Sprintf("invalid YAML: %v", err)}
	}

	if raw.Name == "" {
		return nil, &ScenarioLoadError{Detail: "missing required field 'name'"}
	}
	if len(raw.Timeline) == 0 {
		return nil, &ScenarioLoadError{Detail: "missing or empty 'timeline' section"}
	}

	sc := &Scenario{
		Name:       raw.Name,
		Difficulty: raw.Difficulty,
		Generators: raw.Generators,
		Timeline:   make([]TimelineEntry, 0, len(raw.Timeline)),
	}
	for i, entry := range raw.Timeline {
		if entry.T == nil {
			return nil, &ScenarioLoadError{Detail: fmt.Sprintf("timeline[%d]: missing required field 't'", i)}
		}
		t := *entry.T
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return nil, &ScenarioLoadError{Detail: fmt.Sprintf("timeline[%d]: 't' must be a finite non-negative number, got %v", i, t)}
		}
		if entry.Action == "" {
			return nil, &ScenarioLoadError{Detail: fmt.Sprintf("timeline[%d]: missing required field 'action'", i)}
		}
		sc.Timeline = append(sc.Timeline, TimelineEntry{
			T:       t,
			Action:  entry.Action,
			Payload: entry.Payload,
		})
	}
	return sc, nil
}

// End returns the virtual time of the last timeline entry. Entries are not
// required to be sorted in the file, so End scans all of them.
func (s *Scenario) End() float64 {
	end := 0.0
	for _, e := range s.Timeline {
		if e.T > end {
			end = e.T
		}
	}
	return end
}
