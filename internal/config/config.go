package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/connstorm/connstorm/internal/model"
)

// Duration is a time.Duration that unmarshals from YAML strings like "5s".
// Bare integers are taken as nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" {
		var n int64
		if err := value.Decode(&n); err != nil {
			return err
		}
		*d = Duration(n)
		return nil
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Creation modes.
const (
	ModeInstant     = "instant"
	ModeProgressive = "progressive"
)

// Config is the root configuration for a runner instance.
type Config struct {
	Run        RunConfig        `yaml:"run"`
	Target     TargetConfig     `yaml:"target"`
	Population PopulationConfig `yaml:"population"`
	Feed       FeedConfig       `yaml:"feed"`
	Sink       SinkConfig       `yaml:"sink"`
	Log        LogConfig        `yaml:"log"`
}

// RunConfig identifies this run.
type RunConfig struct {
	ID string `yaml:"id"` // generated when empty
}

// TargetConfig describes the endpoint under load.
type TargetConfig struct {
	// URL is the target template; @{name} tokens are resolved per connection.
	// The scheme decides the transport: ws/wss or http/https.
	URL                string `yaml:"url"`
	Method             string `yaml:"method"` // HTTP only
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// Transport returns the transport kind implied by the target URL scheme.
// Only valid after Validate.
func (t TargetConfig) Transport() model.TransportKind {
	switch scheme(t.URL) {
	case "ws", "wss":
		return model.KindWebSocket
	default:
		return model.KindHTTP
	}
}

// scheme extracts the URL scheme without parsing the full URL, which may
// contain unresolved template tokens.
func scheme(rawURL string) string {
	idx := strings.Index(rawURL, "://")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(rawURL[:idx])
}

// PopulationConfig holds connection population settings.
type PopulationConfig struct {
	Count         int           `yaml:"count"`    // static fallback count
	Replicas      int           `yaml:"replicas"` // runner instances sharing the feed
	Mode          string        `yaml:"mode"`     // instant or progressive
	RatePerSecond int           `yaml:"rate_per_second"`
	RetryDelay    Duration      `yaml:"retry_delay"`
}

// FeedConfig holds the data feed settings.
type FeedConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds the Redis queue store connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	ListKey  string `yaml:"list_key"`  // list of JSON-encoded rows
	CountKey string `yaml:"count_key"` // scalar original row count
}

// SinkConfig holds the metrics sink settings.
type SinkConfig struct {
	Postgres      DBConfig      `yaml:"postgres"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval Duration      `yaml:"flush_interval"`
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

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
