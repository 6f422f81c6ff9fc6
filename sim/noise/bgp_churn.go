package noise

import (
	"fmt"
	"math/rand"

	"github.com/redlantern/routesim/sim"
)

// DefaultBGPChurnRate is the default ambient BGP update rate in events/sec.
const DefaultBGPChurnRate = 0.5

var (
	churnPrefixLengths = []int{24, 23, 22, 21, 20, 19, 16}
	churnUpdateTypes   = []string{"announce", "withdraw"}
	churnCollectors    = []string{"routeviews", "ris"}
)

// BGPChurn simulates normal Internet routing churn: unrelated prefixes being
// announced, withdrawn, and re-pathed while the scenario plays out.
type BGPChurn struct {
	*channel
}

// NewBGPChurn builds a churn channel. The RNG must come from the run's
// PartitionedRNG (subsystem sim.SubsystemNoise("bgp")) so churn draws never
// perturb other streams. A nil isolate keeps dispatch errors fatal.
func NewBGPChurn(clock *sim.SimulationClock, bus *sim.EventBus, rng *rand.Rand, rate float64, isolate sim.IsolateFunc) *BGPChurn {
	if isolate == nil {
		isolate = passthrough
	}
	ch := &BGPChurn{}
	ch.channel = &channel{
		name:    "bgp",
		clock:   clock,
		bus:     bus,
		rng:     rng,
		rate:    rate,
		isolate: isolate,
		build:   ch.envelope,
	}
	return ch
}

func (c *BGPChurn) envelope(now float64) sim.Envelope {
	return sim.Envelope{
		EventType: "bgp.update",
		Timestamp: now,
		Source: sim.Source{
			Feed:     "bgp_noise",
			Observer: churnCollectors[c.rng.Intn(len(churnCollectors))],
		},
		Attributes: map[string]any{
			"prefix":      c.randomPrefix(),
			"origin_as":   1000 + c.rng.Intn(64001),
			"as_path":     c.randomASPath(),
			"update_type": churnUpdateTypes[c.rng.Intn(len(churnUpdateTypes))],
		},
	}
}

func (c *BGPChurn) randomPrefix() string {
	return fmt.Sprintf("%d.%d.%d.0/%d",
		1+c.rng.Intn(223),
		c.rng.Intn(256),
		c.rng.Intn(256),
		churnPrefixLengths[c.rng.Intn(len(churnPrefixLengths))])
}

func (c *BGPChurn) randomASPath() []int {
	path := make([]int, 2+c.rng.Intn(5))
	for i := range path {
		path[i] = 1000 + c.rng.Intn(64001)
	}
	return path
}
