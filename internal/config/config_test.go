package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/connstorm/connstorm/internal/model"
)

func TestLoad(t *testing.T) {
	yaml := `
target:
  url: wss://game.example.com/ws?id=@{id}
population:
  count: 50
  mode: progressive
  rate_per_second: 25
  retry_delay: 2s
feed:
  redis:
    addr: localhost:6379
sink:
  postgres:
    host: localhost
    name: connstorm
    user: tester
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Target.URL != "wss://game.example.com/ws?id=@{id}" {
		t.Errorf("Target.URL = %q, want %q", cfg.Target.URL, "wss://game.example.com/ws?id=@{id}")
	}
	if cfg.Population.Count != 50 {
		t.Errorf("Population.Count = %d, want 50", cfg.Population.Count)
	}
	if cfg.Population.Mode != ModeProgressive {
		t.Errorf("Population.Mode = %q, want %q", cfg.Population.Mode, ModeProgressive)
	}
	if cfg.Population.RetryDelay.Std() != 2*time.Second {
		t.Errorf("Population.RetryDelay = %v, want 2s", cfg.Population.RetryDelay.Std())
	}
	if cfg.Feed.Redis.Addr != "localhost:6379" {
		t.Errorf("Feed.Redis.Addr = %q, want %q", cfg.Feed.Redis.Addr, "localhost:6379")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_SINK_PASSWORD", "secret123")

	yaml := `
target:
  url: https://api.example.com/hit
sink:
  postgres:
    host: localhost
    name: connstorm
    user: tester
    password: ${TEST_SINK_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Sink.Postgres.Password != "secret123" {
		t.Errorf("Sink.Postgres.Password = %q, want %q", cfg.Sink.Postgres.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
target:
  url: ws://localhost:4000/ws
population:
  count: 10
feed:
  redis:
    addr: localhost:6379
sink:
  postgres:
    host: localhost
    name: connstorm
    user: tester
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Run.ID == "" {
		t.Error("Run.ID should be generated when empty")
	}
	if cfg.Target.Method != DefaultMethod {
		t.Errorf("Target.Method = %q, want default %q", cfg.Target.Method, DefaultMethod)
	}
	if cfg.Population.Mode != DefaultMode {
		t.Errorf("Population.Mode = %q, want default %q", cfg.Population.Mode, DefaultMode)
	}
	if cfg.Population.RetryDelay.Std() != DefaultRetryDelay {
		t.Errorf("Population.RetryDelay = %v, want default %v", cfg.Population.RetryDelay.Std(), DefaultRetryDelay)
	}
	if cfg.Feed.Redis.ListKey != DefaultListKey {
		t.Errorf("Feed.Redis.ListKey = %q, want default %q", cfg.Feed.Redis.ListKey, DefaultListKey)
	}
	if cfg.Sink.Postgres.Port != DefaultDBPort {
		t.Errorf("Sink.Postgres.Port = %d, want default %d", cfg.Sink.Postgres.Port, DefaultDBPort)
	}
	if cfg.Sink.BatchSize != DefaultBatchSize {
		t.Errorf("Sink.BatchSize = %d, want default %d", cfg.Sink.BatchSize, DefaultBatchSize)
	}
}

func TestTransport(t *testing.T) {
	tests := []struct {
		url  string
		want model.TransportKind
	}{
		{"ws://h/ws", model.KindWebSocket},
		{"wss://h/ws?id=@{id}", model.KindWebSocket},
		{"http://h/hit", model.KindHTTP},
		{"https://h/hit", model.KindHTTP},
	}
	for _, tt := range tests {
		got := TargetConfig{URL: tt.url}.Transport()
		if got != tt.want {
			t.Errorf("Transport(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Target: TargetConfig{URL: "wss://h/ws", Method: "GET"},
			Population: PopulationConfig{
				Count:         10,
				Replicas:      1,
				Mode:          ModeInstant,
				RatePerSecond: 10,
				RetryDelay:    Duration(5 * time.Second),
			},
			Feed: FeedConfig{Redis: RedisConfig{Addr: "localhost:6379"}},
			Sink: SinkConfig{
				Postgres: DBConfig{
					Host: "localhost", Name: "db", User: "u", Password: "p",
					MaxConns: 10, MinConns: 2,
				},
				BatchSize: 500,
			},
			Log: LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "missing target url",
			mutate:  func(c *Config) { c.Target.URL = "" },
			wantErr: "target.url is required",
		},
		{
			name:    "bad scheme",
			mutate:  func(c *Config) { c.Target.URL = "ftp://h/file" },
			wantErr: `target.url scheme must be ws, wss, http, or https, got "ftp"`,
		},
		{
			name:    "bad method",
			mutate:  func(c *Config) { c.Target.Method = "FETCH" },
			wantErr: `target.method "FETCH" is not a valid HTTP method`,
		},
		{
			name:    "zero count",
			mutate:  func(c *Config) { c.Population.Count = 0 },
			wantErr: "population.count must be >= 1",
		},
		{
			name:    "bad mode",
			mutate:  func(c *Config) { c.Population.Mode = "burst" },
			wantErr: `population.mode must be "instant" or "progressive", got "burst"`,
		},
		{
			name: "progressive needs rate",
			mutate: func(c *Config) {
				c.Population.Mode = ModeProgressive
				c.Population.RatePerSecond = 0
			},
			wantErr: "population.rate_per_second must be >= 1 in progressive mode",
		},
		{
			name:    "missing redis addr",
			mutate:  func(c *Config) { c.Feed.Redis.Addr = "" },
			wantErr: "feed.redis.addr is required",
		},
		{
			name:    "missing sink password",
			mutate:  func(c *Config) { c.Sink.Postgres.Password = "" },
			wantErr: "sink.postgres.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Sink.Postgres.MinConns = 10
				c.Sink.Postgres.MaxConns = 5
			},
			wantErr: "sink.postgres.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "trace" },
			wantErr: `log.level must be debug, info, warn, or error, got "trace"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
