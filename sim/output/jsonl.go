package output

import (
	"encoding/json"

	"github.com/redlantern/routesim/sim"
)

// JSONLAdapter renders every envelope as one JSON object per line. This is
// the lossless format; ingestion pipelines that want raw envelopes use it.
type JSONLAdapter struct{}

// Transform marshals the envelope to a single JSON line.
func (JSONLAdapter) Transform(ev sim.Envelope) ([]string, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return []string{string(data)}, nil
}
