package config

import (
	"time"

	"github.com/google/uuid"
)

// Default values for optional configuration fields.
const (
	DefaultMethod        = "GET"
	DefaultReplicas      = 1
	DefaultMode          = ModeInstant
	DefaultRatePerSecond = 10
	DefaultRetryDelay    = 5 * time.Second
	DefaultListKey       = "connstorm:rows"
	DefaultCountKey      = "connstorm:rowcount"
	DefaultDBPort        = 5432
	DefaultDBSSLMode     = "prefer"
	DefaultMaxConns      = 10
	DefaultMinConns      = 2
	DefaultBatchSize     = 500
	DefaultFlushInterval = 1 * time.Second
	DefaultLogLevel      = "info"
)

func (c *Config) applyDefaults() {
	// Run defaults
	if c.Run.ID == "" {
		c.Run.ID = uuid.NewString()
	}

	// Target defaults
	if c.Target.Method == "" {
		c.Target.Method = DefaultMethod
	}

	// Population defaults
	if c.Population.Replicas == 0 {
		c.Population.Replicas = DefaultReplicas
	}
	if c.Population.Mode == "" {
		c.Population.Mode = DefaultMode
	}
	if c.Population.RatePerSecond == 0 {
		c.Population.RatePerSecond = DefaultRatePerSecond
	}
	if c.Population.RetryDelay == 0 {
		c.Population.RetryDelay = Duration(DefaultRetryDelay)
	}

	// Feed defaults
	if c.Feed.Redis.ListKey == "" {
		c.Feed.Redis.ListKey = DefaultListKey
	}
	if c.Feed.Redis.CountKey == "" {
		c.Feed.Redis.CountKey = DefaultCountKey
	}

	// Sink defaults
	applyDBDefaults(&c.Sink.Postgres)
	if c.Sink.BatchSize == 0 {
		c.Sink.BatchSize = DefaultBatchSize
	}
	if c.Sink.FlushInterval == 0 {
		c.Sink.FlushInterval = Duration(DefaultFlushInterval)
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
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
