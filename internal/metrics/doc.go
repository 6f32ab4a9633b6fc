// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Connection attempts, outcomes and the current connected state
//   - Inbound messages dispatched by kind, unknown messages dropped
//   - Exception router evictions and buffered early errors
//   - Writer batch flushes, rows written and write errors
//   - System state samples and sampling failures
//
// A nil *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics
