// Package telemetry holds the concrete generator variants that turn timeline
// actions into structured telemetry envelopes. Each variant registers itself
// with the sim generator registry in init().
//
// The generators do not model full protocol state machines. They emit just
// enough structure to support realistic detection signals and chained attack
// scenarios.
package telemetry

import (
	"fmt"

	"github.com/redlantern/routesim/sim"
	"github.com/redlantern/routesim/sim/feeds"
)

func init() {
	sim.RegisterGenerator("bgp", NewBGPGenerator)
	sim.RegisterGenerator("syslog", NewSyslogGenerator)
	sim.RegisterGenerator("rpki", NewRPKIGenerator)
	sim.RegisterGenerator("bmp", NewBMPGenerator)
	sim.RegisterGenerator("latency", NewLatencyGenerator)
}

// BGPGenerator emits BGP announce, update, and withdraw envelopes. It
// consults a routing baseline feed so update envelopes carry expected-origin
// context for downstream correlation.
type BGPGenerator struct {
	clock        *sim.SimulationClock
	bus          *sim.EventBus
	scenarioName string
	cfg          sim.GeneratorConfig
	baseline     *feeds.BGPBaseline
}

// NewBGPGenerator builds the "bgp" variant. The optional "baseline" param is
// a prefix → expected origin AS mapping from the scenario file.
func NewBGPGenerator(clock *sim.SimulationClock, bus *sim.EventBus, scenarioName string, cfg sim.GeneratorConfig) (sim.Generator, error) {
	origins := make(map[string]int)
	if raw, ok := cfg.Params["baseline"].(map[string]any); ok {
		for prefix := range raw {
			as, ok := intField(raw, prefix)
			if !ok {
				return nil, fmt.Errorf("bgp generator: baseline entry %q is not an AS number", prefix)
			}
			origins[prefix] = as
		}
	}
	if cfg.Feed == "" {
		cfg.Feed = "mock"
	}
	if cfg.Observer == "" {
		cfg.Observer = "simulator"
	}
	return &BGPGenerator{
		clock:        clock,
		bus:          bus,
		scenarioName: scenarioName,
		cfg:          cfg,
		baseline:     feeds.NewBGPBaseline(origins),
	}, nil
}

func (g *BGPGenerator) Name() string { return "bgp" }

func (g *BGPGenerator) Actions() []string {
	return []string{"announce_prefix", "emit_bgp_update", "withdraw_prefix"}
}

// ScheduleEvents is a no-op: the BGP generator is purely timeline-driven.
func (g *BGPGenerator) ScheduleEvents() error { return nil }

func (g *BGPGenerator) HandleAction(now float64, action string, payload map[string]any) error {
	prefix := stringField(payload, "prefix")
	switch action {
	case "announce_prefix":
		// The legitimate announcement defines the transit ASes the baseline
		// considers normal for this prefix.
		if path := intsField(payload, "as_path"); len(path) > 1 {
			g.baseline.SetUpstreams(prefix, path[:len(path)-1])
		}
		return g.emit(now, "bgp.announce", action, prefix, g.routeAttributes(payload))
	case "emit_bgp_update":
		attrs := g.routeAttributes(payload)
		if expected, ok := g.baseline.ExpectedOriginAS(prefix); ok {
			attrs["expected_origin_as"] = expected
			if origin, ok := intField(payload, "origin_as"); ok {
				attrs["origin_match"] = g.baseline.IsExpectedOrigin(prefix, origin)
			}
		}
		if path := intsField(payload, "as_path"); len(path) > 1 {
			if upstreams := g.baseline.Upstreams(prefix); len(upstreams) > 0 {
				attrs["known_upstream"] = sharesUpstream(path[:len(path)-1], upstreams)
			}
		}
		g.stampChangeCorrelation(attrs, prefix, now)
		return g.emit(now, "bgp.update", action, prefix, attrs)
	case "withdraw_prefix":
		attrs := map[string]any{"prefix": prefix}
		if as, ok := intField(payload, "withdrawn_by_as"); ok {
			attrs["withdrawn_by_as"] = as
		} else if as, ok := intField(payload, "origin_as"); ok {
			attrs["withdrawn_by_as"] = as
		}
		g.stampChangeCorrelation(attrs, prefix, now)
		return g.emit(now, "bgp.withdraw", action, prefix, attrs)
	}
	return fmt.Errorf("bgp generator: unhandled action %q", action)
}

// stampChangeCorrelation marks whether an approved change ticket covers the
// prefix at this virtual time. Routing changes without a covering ticket are
// the signal correlation rules key on.
func (g *BGPGenerator) stampChangeCorrelation(attrs map[string]any, prefix string, now float64) {
	if g.cfg.CMDB == nil {
		return
	}
	attrs["approved_change"] = g.cfg.CMDB.HasApprovedChange(prefix, now)
}

// sharesUpstream reports whether any transit AS of the observed path appears
// in the baseline's upstream set for the prefix.
func sharesUpstream(transit, upstreams []int) bool {
	for _, as := range transit {
		for _, up := range upstreams {
			if as == up {
				return true
			}
		}
	}
	return false
}

// routeAttributes extracts the standard UPDATE fields from a payload.
// Optional fields are only present when the timeline supplied them.
func (g *BGPGenerator) routeAttributes(payload map[string]any) map[string]any {
	attrs := map[string]any{
		"prefix": stringField(payload, "prefix"),
	}
	if as, ok := intField(payload, "origin_as"); ok {
		attrs["origin_as"] = as
	}
	if path := intsField(payload, "as_path"); path != nil {
		attrs["as_path"] = path
	}
	if hop := stringField(payload, "next_hop"); hop != "" {
		attrs["next_hop"] = hop
	}
	if pref, ok := intField(payload, "local_pref"); ok {
		attrs["local_pref"] = pref
	}
	if med, ok := intField(payload, "med"); ok {
		attrs["med"] = med
	}
	return attrs
}

func (g *BGPGenerator) emit(now float64, eventType, attackStep, prefix string, attrs map[string]any) error {
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
