package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultClientName               = "simlink"
	DefaultAutoConnectRetryPeriod   = 5 * time.Second
	DefaultMessagePollerRetryPeriod = 100 * time.Millisecond
	DefaultLogLevel                 = "info"
	DefaultTransportURL             = "ws://localhost:8500/simconnect"
	DefaultHandshakeTimeout         = 10 * time.Second
	DefaultPingInterval             = 30 * time.Second
	DefaultPingTimeout              = 60 * time.Second
	DefaultWriteTimeout             = 5 * time.Second
	DefaultTransportBufferSize      = 1024
	DefaultMaxHandlers              = 16
	DefaultMaxEarlyErrors           = 64
	DefaultPollInterval             = 5 * time.Second
	DefaultPollTimeout              = 2 * time.Second
	DefaultDBPort                   = 5432
	DefaultDBSSLMode                = "prefer"
	DefaultMaxConns                 = 10
	DefaultMinConns                 = 2
	DefaultBatchSize                = 500
	DefaultFlushInterval            = 1 * time.Second
	DefaultBufferSize               = 10000
	DefaultMetricsPort              = 9090
	DefaultMetricsPath              = "/metrics"
)

// DefaultPollStates are sampled when poller.states is empty.
var DefaultPollStates = []string{"Sim", "FlightLoaded", "AircraftLoaded"}

func (c *Config) applyDefaults() {
	// Client defaults
	if c.Client.Name == "" {
		c.Client.Name = DefaultClientName
	}
	if c.Client.AutoConnectRetryPeriod == 0 {
		c.Client.AutoConnectRetryPeriod = DefaultAutoConnectRetryPeriod
	}
	if c.Client.MessagePollerRetryPeriod == 0 {
		c.Client.MessagePollerRetryPeriod = DefaultMessagePollerRetryPeriod
	}
	if c.Client.LogLevel == "" {
		c.Client.LogLevel = DefaultLogLevel
	}

	// Transport defaults
	if c.Transport.URL == "" {
		c.Transport.URL = DefaultTransportURL
	}
	if c.Transport.HandshakeTimeout == 0 {
		c.Transport.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Transport.PingInterval == 0 {
		c.Transport.PingInterval = DefaultPingInterval
	}
	if c.Transport.PingTimeout == 0 {
		c.Transport.PingTimeout = DefaultPingTimeout
	}
	if c.Transport.WriteTimeout == 0 {
		c.Transport.WriteTimeout = DefaultWriteTimeout
	}
	if c.Transport.BufferSize == 0 {
		c.Transport.BufferSize = DefaultTransportBufferSize
	}

	// Router defaults
	if c.Router.MaxHandlers == 0 {
		c.Router.MaxHandlers = DefaultMaxHandlers
	}
	if c.Router.MaxEarlyErrors == 0 {
		c.Router.MaxEarlyErrors = DefaultMaxEarlyErrors
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.Timeout == 0 {
		c.Poller.Timeout = DefaultPollTimeout
	}
	if len(c.Poller.States) == 0 {
		c.Poller.States = append([]string(nil), DefaultPollStates...)
	}

	// Database defaults
	if c.Database.Enabled() {
		applyDBDefaults(&c.Database.Postgres)
	}

	// Writers defaults
	if c.Writers.BatchSize == 0 {
		c.Writers.BatchSize = DefaultBatchSize
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}
	if c.Writers.BufferSize == 0 {
		c.Writers.BufferSize = DefaultBufferSize
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
