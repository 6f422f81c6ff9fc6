package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redlantern/routesim/sim"
)

func TestSyslogGenerator_NeighborTransitions(t *testing.T) {
	clock, bus, seen := newRun(t)
	gen, err := NewSyslogGenerator(clock, bus, "demo", sim.GeneratorConfig{
		Params: map[string]any{"router": "edge-1"},
	})
	require.NoError(t, err)

	require.NoError(t, gen.HandleAction(5, "bgp_neighbor_up", map[string]any{
		"peer_ip": "192.0.2.1",
	}))
	require.NoError(t, gen.HandleAction(8, "bgp_neighbor_down", map[string]any{
		"peer_ip": "192.0.2.1",
		"reason":  "hold timer expired",
	}))

	require.Len(t, *seen, 2)
	up := (*seen)[0]
	assert.Equal(t, "router.syslog", up.EventType)
	assert.Equal(t, 5.0, up.Timestamp)
	assert.Equal(t, "edge-1", up.Attributes["router"])
	assert.Equal(t, "notice", up.Attributes["severity"])
	assert.Equal(t, "192.0.2.1", up.Attributes["peer_ip"])
	assert.Contains(t, up.Attributes["message"], "neighbor 192.0.2.1 Up")

	down := (*seen)[1]
	assert.Equal(t, "warning", down.Attributes["severity"])
	assert.Contains(t, down.Attributes["message"], "Down: hold timer expired")
}

func TestSyslogGenerator_DuplicateOriginCarriesIncidentID(t *testing.T) {
	clock, bus, seen := newRun(t)
	gen, err := NewSyslogGenerator(clock, bus, "hijack", sim.GeneratorConfig{})
	require.NoError(t, err)

	require.NoError(t, gen.HandleAction(12, "duplicate_origin", map[string]any{
		"prefix":    "203.0.113.0/24",
		"origin_as": 65002,
	}))

	ev := (*seen)[0]
	assert.Equal(t, sim.IncidentID("hijack", "203.0.113.0/24"), ev.Scenario.IncidentID)
	assert.Contains(t, ev.Attributes["message"], "duplicate origin for 203.0.113.0/24")
	assert.Contains(t, ev.Attributes["message"], "AS65002")
}

func TestSyslogGenerator_PrefixLimit(t *testing.T) {
	clock, bus, seen := newRun(t)
	gen, err := NewSyslogGenerator(clock, bus, "demo", sim.GeneratorConfig{})
	require.NoError(t, err)

	require.NoError(t, gen.HandleAction(3, "prefix_limit_exceeded", map[string]any{
		"peer_ip": "198.51.100.7",
		"limit":   5000,
	}))

	ev := (*seen)[0]
	assert.Equal(t, "error", ev.Attributes["severity"])
	assert.Equal(t, "R1", ev.Attributes["router"])
	assert.Contains(t, ev.Attributes["message"], "Prefix limit 5000 exceeded from neighbour 198.51.100.7")
}

func TestSyslogGenerator_DefaultFeedAndObserver(t *testing.T) {
	clock, bus, seen := newRun(t)
	gen, err := NewSyslogGenerator(clock, bus, "demo", sim.GeneratorConfig{})
	require.NoError(t, err)
	require.NoError(t, gen.HandleAction(0, "bgp_neighbor_up", map[string]any{"peer_ip": "10.0.0.1"}))

	assert.Equal(t, "router-syslog", (*seen)[0].Source.Feed)
	assert.Equal(t, "router", (*seen)[0].Source.Observer)
}
