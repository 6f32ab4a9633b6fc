// Package writer batches connection lifecycle events and sampled system
// state into PostgreSQL.
//
// Rows are appended with ON CONFLICT DO NOTHING so a replayed batch is
// harmless. Timestamps are stored as microseconds since the epoch.
package writer
