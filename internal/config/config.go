package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/rickgao/simlink/internal/connection"
	"github.com/rickgao/simlink/internal/router"
)

// Config is the root configuration for a simlink daemon.
type Config struct {
	Client    ClientConfig    `yaml:"client"`
	Transport TransportConfig `yaml:"transport"`
	Router    RouterConfig    `yaml:"router"`
	Poller    PollerConfig    `yaml:"poller"`
	Database  DatabaseConfig  `yaml:"database"`
	Writers   WritersConfig   `yaml:"writers"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ClientConfig holds connection manager settings.
type ClientConfig struct {
	Name                     string        `yaml:"name"`
	AutoConnect              *bool         `yaml:"auto_connect"`  // Defaults to true
	StartRunning             *bool         `yaml:"start_running"` // Defaults to true
	StopOnDisconnect         bool          `yaml:"stop_on_disconnect"`
	AutoConnectRetryPeriod   time.Duration `yaml:"auto_connect_retry_period"`
	MessagePollerRetryPeriod time.Duration `yaml:"message_poller_retry_period"`
	LogLevel                 string        `yaml:"log_level"` // debug, info, warn, error
}

// TransportConfig holds WebSocket bridge settings.
type TransportConfig struct {
	URL              string        `yaml:"url"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	BufferSize       int           `yaml:"buffer_size"`
}

// RouterConfig bounds the exception router queues.
type RouterConfig struct {
	MaxHandlers    int `yaml:"max_handlers"`
	MaxEarlyErrors int `yaml:"max_early_errors"`
}

// PollerConfig holds system state sampler settings.
type PollerConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
	States   []string      `yaml:"states"`
}

// DatabaseConfig holds the PostgreSQL connection for lifecycle events and samples.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Postgres.Host != ""
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WritersConfig holds batch writer settings.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// ConnectionConfig converts the client and router sections for connection.NewManager.
func (c *Config) ConnectionConfig() connection.Config {
	return connection.Config{
		Name:                     c.Client.Name,
		StartRunning:             boolOr(c.Client.StartRunning, true),
		AutoConnect:              boolOr(c.Client.AutoConnect, true),
		StopOnDisconnect:         c.Client.StopOnDisconnect,
		AutoConnectRetryPeriod:   c.Client.AutoConnectRetryPeriod,
		MessagePollerRetryPeriod: c.Client.MessagePollerRetryPeriod,
		Router: router.Config{
			MaxHandlers:    c.Router.MaxHandlers,
			MaxEarlyErrors: c.Router.MaxEarlyErrors,
		},
	}
}

// TransportConfig converts the transport section for connection.NewWSTransport.
func (c *Config) TransportConfig() connection.TransportConfig {
	return connection.TransportConfig{
		URL:              c.Transport.URL,
		HandshakeTimeout: c.Transport.HandshakeTimeout,
		PingInterval:     c.Transport.PingInterval,
		PingTimeout:      c.Transport.PingTimeout,
		WriteTimeout:     c.Transport.WriteTimeout,
		BufferSize:       c.Transport.BufferSize,
	}
}

// Level parses the client log level. Unknown values map to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.Client.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
