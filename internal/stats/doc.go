// Package stats aggregates connection lifecycle events into rolling
// counters and derived metrics.
//
// Every event produces one discrete point in the sink; independently, a
// periodic ticker emits a full summary snapshot per transport kind. Events
// give fine-grained traceability, summaries give cheap dashboards.
package stats
