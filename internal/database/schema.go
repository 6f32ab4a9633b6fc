package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the tables written by the event writer.
const Schema = `
CREATE TABLE IF NOT EXISTS connection_events (
	id          UUID PRIMARY KEY,
	session_id  UUID NOT NULL,
	client      TEXT NOT NULL,
	event_type  TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT '',
	occurred_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS connection_events_client_occurred_at
	ON connection_events (client, occurred_at);

CREATE TABLE IF NOT EXISTS state_samples (
	session_id    UUID NOT NULL,
	client        TEXT NOT NULL,
	state         TEXT NOT NULL,
	integer_value INTEGER NOT NULL,
	float_value   REAL NOT NULL,
	string_value  TEXT NOT NULL,
	sampled_at    BIGINT NOT NULL,
	PRIMARY KEY (client, state, sampled_at)
);
`

// Execer is satisfied by *pgxpool.Pool and *pgx.Conn.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EnsureSchema creates missing tables and indexes.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
