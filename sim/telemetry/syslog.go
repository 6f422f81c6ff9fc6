package telemetry

import (
	"fmt"

	"github.com/redlantern/routesim/sim"
)

// SyslogGenerator emits router.syslog envelopes: intentionally human-shaped
// messages approximating what routers produce during routing incidents.
// Accuracy is sacrificed in favour of realism.
type SyslogGenerator struct {
	clock        *sim.SimulationClock
	bus          *sim.EventBus
	scenarioName string
	cfg          sim.GeneratorConfig
	router       string
}

// NewSyslogGenerator builds the "syslog" variant. The optional "router" param
// names the emitting device; default R1.
func NewSyslogGenerator(clock *sim.SimulationClock, bus *sim.EventBus, scenarioName string, cfg sim.GeneratorConfig) (sim.Generator, error) {
	router := "R1"
	if r, ok := cfg.Params["router"].(string); ok && r != "" {
		router = r
	}
	if cfg.Feed == "" {
		cfg.Feed = "router-syslog"
	}
	if cfg.Observer == "" {
		cfg.Observer = "router"
	}
	return &SyslogGenerator{
		clock:        clock,
		bus:          bus,
		scenarioName: scenarioName,
		cfg:          cfg,
		router:       router,
	}, nil
}

func (g *SyslogGenerator) Name() string { return "syslog" }

func (g *SyslogGenerator) Actions() []string {
	return []string{"bgp_neighbor_up", "bgp_neighbor_down", "bgp_session_reset", "duplicate_origin", "prefix_limit_exceeded"}
}

// ScheduleEvents is a no-op: syslog output is purely timeline-driven.
func (g *SyslogGenerator) ScheduleEvents() error { return nil }

func (g *SyslogGenerator) HandleAction(now float64, action string, payload map[string]any) error {
	peer := stringField(payload, "peer_ip")
	prefix := stringField(payload, "prefix")
	switch action {
	case "bgp_neighbor_up":
		return g.emit(now, action, prefix, "notice", peer,
			fmt.Sprintf("%%BGP-5-ADJCHANGE: neighbor %s Up", peer))
	case "bgp_neighbor_down":
		msg := fmt.Sprintf("%%BGP-5-ADJCHANGE: neighbor %s Down", peer)
		if reason := stringField(payload, "reason"); reason != "" {
			msg += ": " + reason
		}
		return g.emit(now, action, prefix, "warning", peer, msg)
	case "bgp_session_reset":
		return g.emit(now, action, prefix, "warning", peer,
			fmt.Sprintf("BGP session to %s reset: %s", peer, stringField(payload, "reason")))
	case "duplicate_origin":
		origin, _ := intField(payload, "origin_as")
		return g.emit(now, action, prefix, "warning", peer,
			fmt.Sprintf("BGP: duplicate origin for %s, AS%d also announcing", prefix, origin))
	case "prefix_limit_exceeded":
		limit, _ := intField(payload, "limit")
		return g.emit(now, action, prefix, "error", peer,
			fmt.Sprintf("Prefix limit %d exceeded from neighbour %s", limit, peer))
	}
	return fmt.Errorf("syslog generator: unhandled action %q", action)
}

func (g *SyslogGenerator) emit(now float64, attackStep, prefix, severity, peerIP, message string) error {
	attrs := map[string]any{
		"router":    g.router,
		"severity":  severity,
		"subsystem": "bgp",
		"message":   message,
	}
	if peerIP != "" {
		attrs["peer_ip"] = peerIP
	}
	ref := sim.ScenarioRef{Name: g.scenarioName, AttackStep: attackStep}
	if prefix != "" {
		ref.IncidentID = sim.IncidentID(g.scenarioName, prefix)
	}
	return g.bus.Emit(sim.Envelope{
		EventType:  "router.syslog",
		Timestamp:  now,
		Source:     sim.Source{Feed: g.cfg.Feed, Observer: g.cfg.Observer},
		Attributes: attrs,
		Scenario:   ref,
	})
}
