// Package sim provides the core discrete-event simulation engine for routesim.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - clock.go: virtual time and the (due, seq)-ordered work queue
//   - bus.go: synchronous publish/subscribe dispatch with per-handler fault isolation
//   - runner.go: turning a declarative timeline into scheduled clock work
//
// # Architecture
//
// The sim package defines interfaces and the engine; implementations live in
// sub-packages:
//   - sim/telemetry/: concrete generators (BGP updates, router syslog, RPKI, BMP, latency)
//   - sim/noise/: background noise channels (routing churn, change-management churn)
//   - sim/feeds/: deterministic read-only context feeds queried by generators
//   - sim/output/: bus subscribers that transform envelopes into log formats
//   - sim/trace/: per-event-type emission accounting for run reports
//
// Sub-packages register their generator variants via init() functions that
// call RegisterGenerator.
//
// # Determinism
//
// Everything runs on one logical thread of control. Ordering is decided only
// by the clock's (due time, sequence) pairs, and every random draw comes from
// a PartitionedRNG seeded from the run's SimulationKey. Two runs with the
// same scenario and seed produce identical envelope sequences.
package sim
