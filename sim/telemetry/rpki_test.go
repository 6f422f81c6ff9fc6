package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redlantern/routesim/sim"
)

func newRPKI(t *testing.T) (sim.Generator, *[]sim.Envelope) {
	t.Helper()
	clock, bus, seen := newRun(t)
	gen, err := NewRPKIGenerator(clock, bus, "roa_poisoning", sim.GeneratorConfig{
		Params: map[string]any{
			"roas": map[string]any{"203.0.113.0/24": 65001},
		},
	})
	require.NoError(t, err)
	return gen, seen
}

func TestRPKIGenerator_ValidationStates(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		origin int
		state  string
	}{
		{"matching origin", "203.0.113.0/24", 65001, "valid"},
		{"wrong origin", "203.0.113.0/24", 65002, "invalid"},
		{"uncovered prefix", "198.51.100.0/24", 65001, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, seen := newRPKI(t)
			require.NoError(t, gen.HandleAction(7, "rpki_validation", map[string]any{
				"prefix":    tt.prefix,
				"origin_as": tt.origin,
			}))
			ev := (*seen)[0]
			assert.Equal(t, "rpki.validation", ev.EventType)
			assert.Equal(t, tt.state, ev.Attributes["state"])
			assert.Equal(t, 7.0, ev.Timestamp)
		})
	}
}

func TestRPKIGenerator_ROALifecycle(t *testing.T) {
	gen, seen := newRPKI(t)

	require.NoError(t, gen.HandleAction(100, "create_roa", map[string]any{
		"prefix":    "203.0.113.0/24",
		"origin_as": 65002,
		"actor":     "mallory",
	}))
	require.NoError(t, gen.HandleAction(160, "publish_roa", map[string]any{
		"prefix":    "203.0.113.0/24",
		"origin_as": 65002,
	}))

	require.Len(t, *seen, 2)
	created := (*seen)[0]
	assert.Equal(t, "rpki.roa_creation", created.EventType)
	assert.Equal(t, "mallory", created.Attributes["actor"])
	// max_length defaults to the prefix mask length
	assert.Equal(t, 24, created.Attributes["max_length"])
	assert.Equal(t, "RIPE", created.Attributes["registry"])

	published := (*seen)[1]
	assert.Equal(t, "rpki.roa_published", published.EventType)
	assert.Equal(t, "RIPE", published.Attributes["trust_anchor"])
	assert.Equal(t, "ripe-rpki", published.Source.Observer)

	// Publication replaces the authorized origin, so the attacker's ROA now
	// validates and the legitimate origin no longer does.
	require.NoError(t, gen.HandleAction(200, "rpki_validation", map[string]any{
		"prefix":    "203.0.113.0/24",
		"origin_as": 65002,
	}))
	require.NoError(t, gen.HandleAction(210, "rpki_validation", map[string]any{
		"prefix":    "203.0.113.0/24",
		"origin_as": 65001,
	}))
	assert.Equal(t, "valid", (*seen)[2].Attributes["state"])
	assert.Equal(t, "invalid", (*seen)[3].Attributes["state"])
}

func TestPrefixLength(t *testing.T) {
	assert.Equal(t, 24, prefixLength("203.0.113.0/24"))
	assert.Equal(t, 8, prefixLength("10.0.0.0/8"))
	assert.Equal(t, 24, prefixLength("no-mask"))
	assert.Equal(t, 24, prefixLength("bad/xx"))
}
