// Package feeds provides the passive, deterministic context sources that
// generators query while building telemetry. Feeds never emit events and
// never touch the clock; they change state only when a generator or noise
// channel explicitly updates them, so the same run always sees the same
// answers.
package feeds

// BGPBaseline answers "what does the routing table normally look like"
// questions: expected origin AS per prefix, known upstreams. It stands in for
// a RouteViews/RIS snapshot.
type BGPBaseline struct {
	origins   map[string]int
	upstreams map[string][]int
}

// NewBGPBaseline builds a baseline from a prefix → expected origin AS table.
func NewBGPBaseline(origins map[string]int) *BGPBaseline {
	b := &BGPBaseline{
		origins:   make(map[string]int, len(origins)),
		upstreams: make(map[string][]int),
	}
	for prefix, as := range origins {
		b.origins[prefix] = as
	}
	return b
}

// SetOrigin records (or replaces) the expected origin AS for prefix. The
// RPKI generator uses this when a ROA is published mid-scenario.
func (b *BGPBaseline) SetOrigin(prefix string, originAS int) {
	b.origins[prefix] = originAS
}

// SetUpstreams records the transit ASes normally seen on paths to prefix.
func (b *BGPBaseline) SetUpstreams(prefix string, upstreams []int) {
	b.upstreams[prefix] = append([]int(nil), upstreams...)
}

// ExpectedOriginAS returns the origin AS the baseline expects for prefix.
// The second return is false when the prefix is not in the baseline.
func (b *BGPBaseline) ExpectedOriginAS(prefix string) (int, bool) {
	as, ok := b.origins[prefix]
	return as, ok
}

// IsExpectedOrigin reports whether originAS matches the baseline for prefix.
// Unknown prefixes report true: absence of a baseline is not evidence of a
// hijack.
func (b *BGPBaseline) IsExpectedOrigin(prefix string, originAS int) bool {
	expected, ok := b.origins[prefix]
	if !ok {
		return true
	}
	return expected == originAS
}

// Upstreams returns the recorded transit ASes for prefix, nil when unknown.
func (b *BGPBaseline) Upstreams(prefix string) []int {
	return b.upstreams[prefix]
}

// Prefixes returns how many prefixes the baseline covers.
func (b *BGPBaseline) Prefixes() int {
	return len(b.origins)
}
