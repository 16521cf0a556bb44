package config

import (
	"errors"
	"fmt"
	"strings"
)

var validMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true,
	"PATCH": true, "DELETE": true, "OPTIONS": true,
}

// MutatingMethods are the HTTP methods that carry a request body.
var MutatingMethods = map[string]bool{
	"POST": true, "PUT": true, "PATCH": true,
}

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Target.URL == "" {
		return errors.New("target.url is required")
	}
	switch scheme(c.Target.URL) {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("target.url scheme must be ws, wss, http, or https, got %q", scheme(c.Target.URL))
	}
	if !validMethods[strings.ToUpper(c.Target.Method)] {
		return fmt.Errorf("target.method %q is not a valid HTTP method", c.Target.Method)
	}

	if c.Population.Count < 1 {
		return errors.New("population.count must be >= 1")
	}
	if c.Population.Replicas < 1 {
		return errors.New("population.replicas must be >= 1")
	}
	switch c.Population.Mode {
	case ModeInstant, ModeProgressive:
	default:
		return fmt.Errorf("population.mode must be %q or %q, got %q", ModeInstant, ModeProgressive, c.Population.Mode)
	}
	if c.Population.Mode == ModeProgressive && c.Population.RatePerSecond < 1 {
		return errors.New("population.rate_per_second must be >= 1 in progressive mode")
	}
	if c.Population.RetryDelay <= 0 {
		return errors.New("population.retry_delay must be > 0")
	}

	if c.Feed.Redis.Addr == "" {
		return errors.New("feed.redis.addr is required")
	}

	if err := c.Sink.Postgres.validate("sink.postgres"); err != nil {
		return err
	}
	if c.Sink.BatchSize < 1 {
		return errors.New("sink.batch_size must be >= 1")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level)
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
