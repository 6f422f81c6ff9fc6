package telemetry

import (
	"fmt"
	"strings"

	"github.com/redlantern/routesim/sim"
	"github.com/redlantern/routesim/sim/feeds"
)

// RPKIGenerator emits RPKI validation and ROA lifecycle envelopes. Validation
// state is derived from a ROA table feed: a prefix with a matching ROA origin
// validates "valid", a mismatched origin "invalid", and an uncovered prefix
// "not_found".
type RPKIGenerator struct {
	clock        *sim.SimulationClock
	bus          *sim.EventBus
	scenarioName string
	cfg          sim.GeneratorConfig
	roas         *feeds.BGPBaseline
	registry     string
}

// NewRPKIGenerator builds the "rpki" variant. Params: "roas" is a prefix →
// authorized origin AS mapping, "registry" the trust anchor name (default RIPE).
func NewRPKIGenerator(clock *sim.SimulationClock, bus *sim.EventBus, scenarioName string, cfg sim.GeneratorConfig) (sim.Generator, error) {
	roas := make(map[string]int)
	if raw, ok := cfg.Params["roas"].(map[string]any); ok {
		for prefix := range raw {
			as, ok := intField(raw, prefix)
			if !ok {
				return nil, fmt.Errorf("rpki generator: roa entry %q is not an AS number", prefix)
			}
			roas[prefix] = as
		}
	}
	registry := "RIPE"
	if r, ok := cfg.Params["registry"].(string); ok && r != "" {
		registry = r
	}
	if cfg.Feed == "" {
		cfg.Feed = "rpki"
	}
	if cfg.Observer == "" {
		cfg.Observer = strings.ToLower(registry) + "-rpki"
	}
	return &RPKIGenerator{
		clock:        clock,
		bus:          bus,
		scenarioName: scenarioName,
		cfg:          cfg,
		roas:         feeds.NewBGPBaseline(roas),
		registry:     registry,
	}, nil
}

func (g *RPKIGenerator) Name() string { return "rpki" }

func (g *RPKIGenerator) Actions() []string {
	return []string{"rpki_validation", "create_roa", "publish_roa"}
}

// ScheduleEvents is a no-op: RPKI output is purely timeline-driven.
func (g *RPKIGenerator) ScheduleEvents() error { return nil }

func (g *RPKIGenerator) HandleAction(now float64, action string, payload map[string]any) error {
	prefix := stringField(payload, "prefix")
	origin, _ := intField(payload, "origin_as")
	switch action {
	case "rpki_validation":
		return g.emit(now, "rpki.validation", action, prefix, map[string]any{
			"prefix":    prefix,
			"origin_as": origin,
			"state":     g.validationState(prefix, origin),
		})
	case "create_roa":
		maxLength, ok := intField(payload, "max_length")
		if !ok {
			maxLength = prefixLength(prefix)
		}
		return g.emit(now, "rpki.roa_creation", action, prefix, map[string]any{
			"prefix":     prefix,
			"origin_as":  origin,
			"max_length": maxLength,
			"registry":   g.registry,
			"actor":      stringField(payload, "actor"),
		})
	case "publish_roa":
		// Publication makes the ROA visible to validators, so later
		// rpki_validation actions see it.
		g.roas.SetOrigin(prefix, origin)
		return g.emit(now, "rpki.roa_published", action, prefix, map[string]any{
			"prefix":       prefix,
			"origin_as":    origin,
			"trust_anchor": strings.ToUpper(g.registry),
		})
	}
	return fmt.Errorf("rpki generator: unhandled action %q", action)
}

func (g *RPKIGenerator) validationState(prefix string, originAS int) string {
	authorized, ok := g.roas.ExpectedOriginAS(prefix)
	switch {
	case !ok:
		return "not_found"
	case authorized == originAS:
		return "valid"
	default:
		return "invalid"
	}
}

func (g *RPKIGenerator) emit(now float64, eventType, attackStep, prefix string, attrs map[string]any) error {
	return g.bus.Emit(sim.Envelope{
		EventType:  eventType,
		Timestamp:  now,
		Source:     sim.Source{Feed: g.cfg.Feed, Observer: g.cfg.Observer},
		Attributes: attrs,
		Scenario: sim.ScenarioRef{
			Name:       g.scenarioName,
			AttackStep: attackStep,
			IncidentID: sim.IncidentID(g.scenarioName, prefix),
		},
	})
}

// prefixLength parses the mask length from a CIDR prefix, defaulting to 24.
func prefixLength(prefix string) int {
	idx := strings.LastIndexByte(prefix, '/')
	if idx < 0 {
		return 24
	}
	length := 0
	for _, c := range prefix[idx+1:] {
		if c < '0' || c > '9' {
			return 24
		}
		length = length*10 + int(c-'0')
	}
	return length
}
