package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rickgao/simlink/internal/config"
)

func TestPoolConfig(t *testing.T) {
	cfg := config.DBConfig{
		Host:     "localhost",
		Port:     5432,
		Name:     "simlink",
		User:     "sim",
		Password: "secret",
		SSLMode:  "disable",
		MaxConns: 8,
		MinConns: 1,
	}

	poolCfg, err := PoolConfig(cfg)
	if err != nil {
		t.Fatalf("PoolConfig() error = %v", err)
	}
	if poolCfg.MaxConns != 8 {
		t.Errorf("MaxConns = %d, want 8", poolCfg.MaxConns)
	}
	if poolCfg.MinConns != 1 {
		t.Errorf("MinConns = %d, want 1", poolCfg.MinConns)
	}
	if poolCfg.ConnConfig.Database != "simlink" {
		t.Errorf("Database = %q, want %q", poolCfg.ConnConfig.Database, "simlink")
	}
	if got := poolCfg.ConnConfig.RuntimeParams["application_name"]; got != ApplicationName {
		t.Errorf("application_name = %q, want %q", got, ApplicationName)
	}
}

type recordingExecer struct {
	sql []string
	err error
}

func (r *recordingExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.sql = append(r.sql, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), r.err
}

func TestEnsureSchema(t *testing.T) {
	db := &recordingExecer{}
	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if len(db.sql) != 1 {
		t.Fatalf("Exec calls = %d, want 1", len(db.sql))
	}
	for _, table := range []string{"connection_events", "state_samples"} {
		if !strings.Contains(db.sql[0], table) {
			t.Errorf("schema does not create %s", table)
		}
	}
}

func TestEnsureSchema_Error(t *testing.T) {
	boom := errors.New("permission denied")
	err := EnsureSchema(context.Background(), &recordingExecer{err: boom})
	if !errors.Is(err, boom) {
		t.Errorf("EnsureSchema() error = %v, want wrapped %v", err, boom)
	}
}
