package telemetry

import (
	"fmt"
	"strings"

	"github.com/redlantern/routesim/sim"
)

// BMPGenerator mirrors routing actions as BMP (BGP Monitoring Protocol)
// route-monitoring messages: the collector-side view of the same updates the
// bgp generator emits. Scenarios that bind both variants see each routing
// action twice, once from the mock feed and once from the collector, which is
// what cross-feed correlation rules need.
type BMPGenerator struct {
	clock        *sim.SimulationClock
	bus          *sim.EventBus
	scenarioName string
	cfg          sim.GeneratorConfig
	collector    string
	router       string
	sequence     int
}

// NewBMPGenerator builds the "bmp" variant. Params: "collector" names the BMP
// station (default collector-01), "router" the monitored device (default
// edge-router-01).
func NewBMPGenerator(clock *sim.SimulationClock, bus *sim.EventBus, scenarioName string, cfg sim.GeneratorConfig) (sim.Generator, error) {
	collector := "collector-01"
	if c, ok := cfg.Params["collector"].(string); ok && c != "" {
		collector = c
	}
	router := "edge-router-01"
	if r, ok := cfg.Params["router"].(string); ok && r != "" {
		router = r
	}
	if cfg.Feed == "" {
		cfg.Feed = "bmp"
	}
	if cfg.Observer == "" {
		cfg.Observer = collector
	}
	return &BMPGenerator{
		clock:        clock,
		bus:          bus,
		scenarioName: scenarioName,
		cfg:          cfg,
		collector:    collector,
		router:       router,
	}, nil
}

func (g *BMPGenerator) Name() string { return "bmp" }

func (g *BMPGenerator) Actions() []string {
	return []string{"announce_prefix", "emit_bgp_update", "withdraw_prefix"}
}

// ScheduleEvents is a no-op: BMP messages mirror timeline actions.
func (g *BMPGenerator) ScheduleEvents() error { return nil }

func (g *BMPGenerator) HandleAction(now float64, action string, payload map[string]any) error {
	switch action {
	case "announce_prefix", "emit_bgp_update", "withdraw_prefix":
		return g.routeMonitoring(now, action, payload, action == "withdraw_prefix")
	}
	return fmt.Errorf("bmp generator: unhandled action %q", action)
}

// routeMonitoring renders one BMP v3 RouteMonitoring message. Sequence numbers
// count per generator instance, matching a collector session that starts with
// the run.
func (g *BMPGenerator) routeMonitoring(now float64, attackStep string, payload map[string]any, withdraw bool) error {
	g.sequence++
	prefix := stringField(payload, "prefix")
	afi := 1
	if strings.Contains(prefix, ":") {
		afi = 2
	}
	peer := stringField(payload, "peer_ip")
	if peer == "" {
		peer = "192.0.2.1"
	}
	peerAS, ok := intField(payload, "peer_as")
	if !ok {
		peerAS = 65001
	}
	hop := stringField(payload, "next_hop")
	if hop == "" {
		hop = "192.0.2.254"
	}

	attrs := map[string]any{
		"bmp_version":    3,
		"message_type":   "route_monitoring",
		"router":         g.router,
		"peer_address":   peer,
		"peer_as":        peerAS,
		"prefix":         prefix,
		"prefix_length":  prefixLength(prefix),
		"afi":            afi,
		"safi":           1,
		"is_withdraw":    withdraw,
		"next_hop":       hop,
		"event_sequence": g.sequence,
	}

	path := intsField(payload, "as_path")
	if len(path) > 0 {
		attrs["as_path"] = path
	}
	if origin, ok := intField(payload, "origin_as"); ok {
		attrs["origin_as"] = origin
	} else if len(path) > 0 {
		attrs["origin_as"] = path[len(path)-1]
	}
	for _, key := range []string{"local_pref", "med"} {
		if v, ok := intField(payload, key); ok {
			attrs[key] = v
		}
	}

	return g.bus.Emit(sim.Envelope{
		EventType:  "bmp.route_monitoring",
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
