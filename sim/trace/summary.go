package trace

import "sort"

// RunSummary aggregates statistics from a RunTrace.
type RunSummary struct {
	TotalEvents  int
	EventTypes   int
	EndTime      float64          // virtual time of the last emission
	Distribution map[string]int   // event type → count
	Records      []EmissionRecord // sorted by event type
}

// Summarize computes aggregate statistics from a RunTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(rt *RunTrace) *RunSummary {
	summary := &RunSummary{Distribution: make(map[string]int)}
	if rt == nil {
		return summary
	}

	summary.TotalEvents = rt.total
	summary.EventTypes = len(rt.records)
	for _, rec := range rt.records {
		summary.Distribution[rec.EventType] = rec.Count
		summary.Records = append(summary.Records, *rec)
		if rec.Last > summary.EndTime {
			summary.EndTime = rec.Last
		}
	}
	sort.Slice(summary.Records, func(i, j int) bool {
		return summary.Records[i].EventType < summary.Records[j].EventType
	})
	return summary
}
