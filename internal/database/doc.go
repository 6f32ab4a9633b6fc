// Package database provides the PostgreSQL connection pool and schema for
// connection lifecycle events and sampled system state.
//
// Tables:
//   - connection_events: connect, disconnect, open and close per session
//   - state_samples: polled system state values
//
// Both tables are append-only.
package database
