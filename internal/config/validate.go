package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rickgao/simlink/internal/model"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Client.Name) == "" {
		return errors.New("client.name is required")
	}
	if c.Client.AutoConnectRetryPeriod <= 0 {
		return errors.New("client.auto_connect_retry_period must be > 0")
	}
	if c.Client.MessagePollerRetryPeriod <= 0 {
		return errors.New("client.message_poller_retry_period must be > 0")
	}
	switch strings.ToLower(c.Client.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("client.log_level %q is not one of debug, info, warn, error", c.Client.LogLevel)
	}

	u, err := url.Parse(c.Transport.URL)
	if err != nil {
		return fmt.Errorf("transport.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("transport.url scheme must be ws or wss, got %q", u.Scheme)
	}
	if c.Transport.BufferSize < 1 {
		return errors.New("transport.buffer_size must be >= 1")
	}

	if c.Router.MaxHandlers < 1 {
		return errors.New("router.max_handlers must be >= 1")
	}
	if c.Router.MaxEarlyErrors < 1 {
		return errors.New("router.max_early_errors must be >= 1")
	}

	if c.Poller.Interval <= 0 {
		return errors.New("poller.interval must be > 0")
	}
	if c.Poller.Timeout <= 0 {
		return errors.New("poller.timeout must be > 0")
	}
	for _, name := range c.Poller.States {
		if _, ok := model.ParseSystemState(name); !ok {
			return fmt.Errorf("poller.states: unknown system state %q", name)
		}
	}

	if c.Database.Enabled() {
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	}

	if c.Writers.BatchSize < 1 {
		return errors.New("writers.batch_size must be >= 1")
	}
	if c.Writers.BufferSize < 1 {
		return errors.New("writers.buffer_size must be >= 1")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
