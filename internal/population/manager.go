package population

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/connstorm/connstorm/internal/config"
	"github.com/connstorm/connstorm/internal/conn"
	"github.com/connstorm/connstorm/internal/feed"
	"github.com/connstorm/connstorm/internal/model"
	"github.com/connstorm/connstorm/internal/stats"
	"github.com/connstorm/connstorm/internal/urltmpl"
)

// Creation pacing in instant mode: a short pause after every chunk to
// avoid a create-storm.
const (
	instantChunk = 100
	instantPause = 100 * time.Millisecond
)

// DefaultGracePeriod is how long shutdown waits for in-flight stat events
// to land before tearing down the aggregator and feed.
const DefaultGracePeriod = time.Second

// Config holds population manager settings.
type Config struct {
	Kind        model.TransportKind
	URLTemplate string
	Method      string

	Mode          string // config.ModeInstant or config.ModeProgressive
	StaticCount   int
	Replicas      int
	RatePerSecond int
	RetryDelay    time.Duration
	GracePeriod   time.Duration

	TLS *tls.Config
}

// Snapshot is a point-in-time view of the population.
type Snapshot struct {
	Total  int // connections ever created
	Active int // connections currently reporting connected
}

// Manager decides how many connections to run, creates them under the
// configured pacing policy, owns the live set, and orchestrates shutdown.
type Manager struct {
	cfg        Config
	feed       feed.Feed
	aggregator *stats.Aggregator
	resolver   *urltmpl.Resolver
	httpClient *http.Client
	logger     *slog.Logger

	mu           sync.Mutex
	conns        []*conn.Connection
	created      int
	shuttingDown bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Manager. The TLS config in cfg is shared by reference with
// every connection it creates.
func New(cfg Config, dataFeed feed.Feed, aggregator *stats.Aggregator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Replicas < 1 {
		cfg.Replicas = 1
	}
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	return &Manager{
		cfg:        cfg,
		feed:       dataFeed,
		aggregator: aggregator,
		resolver:   urltmpl.New(logger),
		httpClient: conn.NewHTTPClient(cfg.TLS),
		logger:     logger,
	}
}

// Start computes the target population and begins creating connections
// under the configured policy. Creation runs in the background; Start
// returns immediately.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	target := m.targetCount(m.ctx)

	m.logger.Info("population manager started",
		"mode", m.cfg.Mode,
		"target", target,
		"transport", m.cfg.Kind,
	)

	m.wg.Add(1)
	switch m.cfg.Mode {
	case config.ModeProgressive:
		go m.createProgressive(target)
	default:
		go m.createInstant(target)
	}
	return nil
}

// targetCount sizes the population: ceil(rows/replicas) when the feed has
// rows, otherwise the static configured count. Feed errors fall back to the
// static count.
func (m *Manager) targetCount(ctx context.Context) int {
	rows, err := m.feed.Count(ctx)
	if err != nil {
		m.logger.Warn("feed count unavailable, using static count",
			"error", err,
			"count", m.cfg.StaticCount,
		)
		return m.cfg.StaticCount
	}
	if rows <= 0 {
		return m.cfg.StaticCount
	}
	return (rows + m.cfg.Replicas - 1) / m.cfg.Replicas
}

// createInstant creates all connections back-to-back with a short pacing
// pause after every chunk.
func (m *Manager) createInstant(target int) {
	defer m.wg.Done()

	for i := 0; i < target; i++ {
		if m.ctx.Err() != nil {
			return
		}
		m.createOne(i + 1)

		if (i+1)%instantChunk == 0 {
			select {
			case <-m.ctx.Done():
				return
			case <-time.After(instantPause):
			}
		}
	}
}

// createProgressive creates one connection per tick until the target is
// reached or shutdown is requested.
func (m *Manager) createProgressive(target int) {
	defer m.wg.Done()

	interval := time.Second / time.Duration(m.cfg.RatePerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for created := 0; created < target; {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			created++
			m.createOne(created)
		}
	}
}

// createOne pops one row if available, resolves the target URL, constructs
// the connection, registers it in the live set, and starts it. Feed errors
// are isolated: the connection is created unbound.
func (m *Manager) createOne(id int) {
	var row model.DataRow
	if m.feed.HasData(m.ctx) {
		popped, ok, err := m.feed.PopOne(m.ctx)
		if err != nil {
			m.logger.Warn("feed pop failed, creating unbound connection",
				"conn_id", id,
				"error", err,
			)
		} else if ok {
			row = popped
		}
	}

	target := m.resolver.Resolve(m.cfg.URLTemplate, row)

	var body []byte
	if row != nil {
		body, _ = json.Marshal(row)
	}

	c := conn.New(conn.Config{
		ID:         id,
		Kind:       m.cfg.Kind,
		URL:        target,
		Method:     m.cfg.Method,
		Body:       body,
		RetryDelay: m.cfg.RetryDelay,
		TLS:        m.cfg.TLS,
		HTTPClient: m.httpClient,
	}, m.aggregator.Events(), m.logger.With("conn_id", id))

	m.mu.Lock()
	if m.shuttingDown {
		m.mu.Unlock()
		return
	}
	m.conns = append(m.conns, c)
	m.created++
	m.mu.Unlock()

	c.Connect()
}

// Snapshot returns the current population counts.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	conns := make([]*conn.Connection, len(m.conns))
	copy(conns, m.conns)
	created := m.created
	m.mu.Unlock()

	active := 0
	for _, c := range conns {
		if c.IsConnected() {
			active++
		}
	}
	return Snapshot{Total: created, Active: active}
}

// Shutdown tears the population down: stops creation, closes every live
// connection, waits the grace period for in-flight stat events, then closes
// the aggregator and the feed, in that order. Repeated or concurrent calls
// perform teardown exactly once.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.shuttingDown {
		m.mu.Unlock()
		return nil
	}
	m.shuttingDown = true
	conns := make([]*conn.Connection, len(m.conns))
	copy(conns, m.conns)
	m.mu.Unlock()

	m.logger.Info("shutting down population", "connections", len(conns))

	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()

	for _, c := range conns {
		c.Close()
	}

	// Let in-flight stat events land before tearing the aggregator down.
	select {
	case <-time.After(m.cfg.GracePeriod):
	case <-ctx.Done():
		m.logger.Warn("shutdown grace period cut short")
	}

	if err := m.aggregator.Close(ctx); err != nil {
		m.logger.Error("stats aggregator close failed", "error", err)
	}
	if err := m.feed.Close(); err != nil {
		m.logger.Error("feed close failed", "error", err)
	}

	m.logger.Info("population manager stopped")
	return nil
}
