// sim/envelope.go
package sim

import (
	"fmt"
	"hash/fnv"
)

// Source identifies where an envelope came from: the feed that produced it
// and the observer vantage point.
type Source struct {
	Feed     string `json:"feed"`
	Observer string `json:"observer"`
}

// ScenarioRef ties an envelope back to the incident narrative it belongs to.
// Noise envelopes carry an empty ScenarioRef.
type ScenarioRef struct {
	Name       string `json:"name,omitempty"`
	AttackStep string `json:"attack_step,omitempty"`
	IncidentID string `json:"incident_id,omitempty"`
}

// Envelope is the wire-level unit of output. Generators create envelopes,
// the bus delivers them, and downstream adapters own their disposition; the
// core never mutates an envelope after emission.
//
// Timestamp is virtual time (the clock's due time at the moment of emission),
// never wall-clock time.
type Envelope struct {
	EventType  string         `json:"event_type"`
	Timestamp  float64        `json:"timestamp"`
	Source     Source         `json:"source"`
	Attributes map[string]any `json:"attributes"`
	Scenario   ScenarioRef    `json:"scenario,omitzero"`
}

// IncidentID derives a stable incident identifier from the scenario name and
// the prefix under attack. The same (scenario, prefix) pair always yields the
// same ID, which is what lets downstream correlation group envelopes from one
// simulated incident across feeds.
func IncidentID(scenarioName, prefix string) string {
	h := fnv.New64a()
	h.Write([]byte(scenarioName))
	h.Write([]byte{'/'})
	h.Write([]byte(prefix))
	return fmt.Sprintf("INC-%016x", h.Sum64())
}
