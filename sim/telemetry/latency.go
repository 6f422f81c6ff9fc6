package telemetry

import (
	"fmt"
	"math/rand"

	"github.com/redlantern/routesim/sim"
)

// LatencyGenerator emits network.latency path measurements. Unlike the other
// variants it produces its own baseline: ScheduleEvents samples the configured
// path at a fixed interval until run end, with jitter drawn from the run's
// scenario RNG stream. Timeline actions inject explicit measurements on top,
// which is how scenarios model the latency shift of an interception.
type LatencyGenerator struct {
	clock        *sim.SimulationClock
	bus          *sim.EventBus
	scenarioName string
	cfg          sim.GeneratorConfig
	rng          *rand.Rand
	source       string
	target       string
	baseMs       float64
	interval     float64
}

// NewLatencyGenerator builds the "latency" variant. Params: "source_router"
// and "target_router" name the measured path (defaults R1/R2),
// "base_latency_ms" the quiet-network round trip (default 12),
// "interval_s" the sampling cadence (default 30, 0 disables sampling).
func NewLatencyGenerator(clock *sim.SimulationClock, bus *sim.EventBus, scenarioName string, cfg sim.GeneratorConfig) (sim.Generator, error) {
	source := "R1"
	if s, ok := cfg.Params["source_router"].(string); ok && s != "" {
		source = s
	}
	target := "R2"
	if t, ok := cfg.Params["target_router"].(string); ok && t != "" {
		target = t
	}
	baseMs := 12.0
	if v, ok := floatField(cfg.Params, "base_latency_ms"); ok {
		baseMs = v
	}
	interval := 30.0
	if v, ok := floatField(cfg.Params, "interval_s"); ok {
		interval = v
	}
	if cfg.Feed == "" {
		cfg.Feed = "latency-metrics"
	}
	if cfg.Observer == "" {
		cfg.Observer = "simulator"
	}
	rng := cfg.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(0))
	}
	return &LatencyGenerator{
		clock:        clock,
		bus:          bus,
		scenarioName: scenarioName,
		cfg:          cfg,
		rng:          rng,
		source:       source,
		target:       target,
		baseMs:       baseMs,
		interval:     interval,
	}, nil
}

func (g *LatencyGenerator) Name() string { return "latency" }

func (g *LatencyGenerator) Actions() []string {
	return []string{"emit_latency"}
}

// ScheduleEvents registers the baseline samples: one measurement per interval
// from the first interval up to run end. Jitter is drawn when each sample
// fires, so sample values depend only on the seed and the firing order.
func (g *LatencyGenerator) ScheduleEvents() error {
	if g.interval <= 0 || g.cfg.RunEnd <= 0 {
		return nil
	}
	for t := g.interval; t <= g.cfg.RunEnd; t += g.interval {
		if _, err := g.clock.Schedule(t, g.sample); err != nil {
			return fmt.Errorf("latency generator: schedule sample at t=%v: %w", t, err)
		}
	}
	return nil
}

func (g *LatencyGenerator) sample(now float64) error {
	// Jitter within ±10% of the base keeps quiet-network samples visibly
	// different from injected spikes.
	latency := g.baseMs * (0.9 + 0.2*g.rng.Float64())
	jitter := g.baseMs * 0.05 * g.rng.Float64()
	return g.isolate(g.emit(now, "baseline_sample", map[string]any{
		"source_router": g.source,
		"target_router": g.target,
		"latency_ms":    latency,
		"jitter_ms":     jitter,
	}))
}

func (g *LatencyGenerator) HandleAction(now float64, action string, payload map[string]any) error {
	if action != "emit_latency" {
		return fmt.Errorf("latency generator: unhandled action %q", action)
	}
	attrs := map[string]any{
		"source_router": g.source,
		"target_router": g.target,
	}
	if s := stringField(payload, "source_router"); s != "" {
		attrs["source_router"] = s
	}
	if t := stringField(payload, "target_router"); t != "" {
		attrs["target_router"] = t
	}
	latency := g.baseMs
	if v, ok := floatField(payload, "latency_ms"); ok {
		latency = v
	}
	attrs["latency_ms"] = latency
	if v, ok := floatField(payload, "jitter_ms"); ok {
		attrs["jitter_ms"] = v
	}
	if v, ok := floatField(payload, "packet_loss_pct"); ok {
		attrs["packet_loss_pct"] = v
	}
	return g.emit(now, action, attrs)
}

func (g *LatencyGenerator) emit(now float64, attackStep string, attrs map[string]any) error {
	return g.bus.Emit(sim.Envelope{
		EventType:  "network.latency",
		Timestamp:  now,
		Source:     sim.Source{Feed: g.cfg.Feed, Observer: g.cfg.Observer},
		Attributes: attrs,
		Scenario: sim.ScenarioRef{
			Name:       g.scenarioName,
			AttackStep: attackStep,
		},
	})
}

// isolate applies the run's dispatch isolation policy to self-scheduled
// emissions; without one, dispatch errors stay fatal.
func (g *LatencyGenerator) isolate(err error) error {
	if g.cfg.Isolate != nil {
		return g.cfg.Isolate(err)
	}
	return err
}
