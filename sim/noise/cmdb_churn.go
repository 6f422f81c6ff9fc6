package noise

import (
	"fmt"
	"math/rand"

	"github.com/redlantern/routesim/sim"
	"github.com/redlantern/routesim/sim/feeds"
)

// DefaultCMDBChurnRate is the default ambient change-management rate in
// events/sec.
const DefaultCMDBChurnRate = 0.1

var (
	churnActors      = []string{"alice", "bob", "charlie", "automation"}
	churnChangeTypes = []string{"software_update", "config_change", "maintenance", "system_restart"}
)

// CMDBChurn simulates normal operational activity: maintenance windows,
// software updates, configuration changes, restarts. Most changes come with
// an approved ticket in the change database, which is what lets detection
// rules separate routine churn from unauthorized changes.
type CMDBChurn struct {
	*channel
	cmdb *feeds.CMDB
}

// NewCMDBChurn builds a change-management churn channel backed by the given
// change database. The RNG must come from the run's PartitionedRNG
// (subsystem sim.SubsystemNoise("cmdb")). A nil isolate keeps dispatch errors
// fatal.
func NewCMDBChurn(clock *sim.SimulationClock, bus *sim.EventBus, rng *rand.Rand, rate float64, cmdb *feeds.CMDB, isolate sim.IsolateFunc) *CMDBChurn {
	if isolate == nil {
		isolate = passthrough
	}
	if cmdb == nil {
		cmdb = feeds.NewCMDB()
	}
	ch := &CMDBChurn{cmdb: cmdb}
	ch.channel = &channel{
		name:    "cmdb",
		clock:   clock,
		bus:     bus,
		rng:     rng,
		rate:    rate,
		isolate: isolate,
		build:   ch.envelope,
	}
	return ch
}

func (c *CMDBChurn) envelope(now float64) sim.Envelope {
	actor := churnActors[c.rng.Intn(len(churnActors))]
	changeType := churnChangeTypes[c.rng.Intn(len(churnChangeTypes))]

	files := make([]string, 1+c.rng.Intn(5))
	for i := range files {
		files[i] = fmt.Sprintf("/etc/router/config_%d.conf", 1+c.rng.Intn(100))
	}

	attrs := map[string]any{
		"actor":         actor,
		"change_type":   changeType,
		"files_changed": files,
	}

	// Roughly 4 out of 5 routine changes went through change management.
	// Ticketless changes are the interesting minority for correlation rules.
	if c.rng.Intn(5) > 0 {
		id := c.cmdb.CreateTicket(feeds.ChangeTicket{
			ChangeType:  changeType,
			Description: fmt.Sprintf("%s by %s", changeType, actor),
			Requester:   actor,
			Start:       now,
			End:         now + 3600,
			Status:      "approved",
			Risk:        "low",
		})
		attrs["change_ticket"] = id
	}

	return sim.Envelope{
		EventType: "cmdb.change",
		Timestamp: now,
		Source: sim.Source{
			Feed:     "cmdb_noise",
			Observer: "change-mgmt",
		},
		Attributes: attrs,
	}
}
