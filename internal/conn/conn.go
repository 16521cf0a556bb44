package conn

import (
	"crypto/tls"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/connstorm/connstorm/internal/model"
)

// State of a connection.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateError
	StateShutDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	case StateShutDown:
		return "shutdown"
	}
	return "unknown"
}

// Config configures a single simulated connection.
type Config struct {
	ID     int
	Kind   model.TransportKind
	URL    string // resolved target, fixed for the connection's lifetime
	Method string // HTTP only
	Body   []byte // bound row as JSON; sent only for mutating methods

	RetryDelay       time.Duration
	HandshakeTimeout time.Duration // WebSocket dial

	// Shared resources, built once at startup.
	TLS        *tls.Config
	HTTPClient *http.Client
}

// Connection is one simulated client. It owns a state machine and a retry
// timer, and publishes lifecycle events on the events channel. A connection
// is reused across reconnect attempts; the only terminal state is ShutDown,
// entered via Close.
type Connection struct {
	cfg    Config
	logger *slog.Logger
	events chan<- model.Event

	mu               sync.Mutex
	state            State
	ws               wsConn
	retryTimer       *time.Timer
	closing          bool
	lastStatus       int // HTTP: status of last completed cycle
	attemptStartedAt time.Time
	cycleDone        bool // HTTP: close recorded for the current cycle
}

// New creates a Connection. Events are published non-blocking on the given
// channel.
func New(cfg Config, events chan<- model.Event, logger *slog.Logger) *Connection {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Method == "" {
		cfg.Method = "GET"
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = NewHTTPClient(cfg.TLS)
	}
	return &Connection{
		cfg:    cfg,
		logger: logger,
		events: events,
		state:  StateIdle,
	}
}

// Connect starts one connection attempt. The outcome arrives asynchronously
// through the events channel. No-op once the connection is shut down.
func (c *Connection) Connect() {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.attemptStartedAt = time.Now()
	c.cycleDone = false
	c.mu.Unlock()

	c.emit(model.EventAttempt, 0, nil)

	switch c.cfg.Kind {
	case model.KindWebSocket:
		go c.dialWebSocket()
	case model.KindHTTP:
		go c.runHTTPCycle()
	}
}

// Close marks the connection as intentionally closing, cancels any pending
// retry, and forcibly terminates the transport without waiting for a close
// handshake. Idempotent.
func (c *Connection) Close() {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return
	}
	c.closing = true
	timer := c.retryTimer
	c.retryTimer = nil
	ws := c.ws
	c.ws = nil

	emitClose := false
	switch c.cfg.Kind {
	case model.KindWebSocket:
		emitClose = c.state == StateOpen
	case model.KindHTTP:
		// A cycle still in flight gets its close recorded here; the late
		// completion sees cycleDone and stays silent.
		emitClose = !c.cycleDone
		c.cycleDone = true
	}
	c.state = StateShutDown
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if ws != nil {
		ws.Close()
	}
	if emitClose {
		c.emit(model.EventClose, 0, nil)
	}
}

// IsConnected reports whether the connection is currently healthy:
// WebSocket when the transport is open, HTTP when the last completed cycle
// ended in the 2xx range.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.cfg.Kind {
	case model.KindWebSocket:
		return c.state == StateOpen
	case model.KindHTTP:
		return c.lastStatus >= 200 && c.lastStatus < 300
	}
	return false
}

// State returns the current state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Target returns the resolved URL this connection dials.
func (c *Connection) Target() string {
	return c.cfg.URL
}

// scheduleRetry arms the retry timer, replacing any pending one. Never
// schedules once the connection is closing.
func (c *Connection) scheduleRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return
	}
	if c.retryTimer != nil {
		c.retryTimer.Stop()
	}
	c.retryTimer = time.AfterFunc(c.cfg.RetryDelay, c.Connect)
}

// emit publishes one lifecycle event without blocking.
func (c *Connection) emit(t model.EventType, latencyMs float64, err error) {
	ev := model.Event{
		ConnID:    c.cfg.ID,
		Kind:      c.cfg.Kind,
		Type:      t,
		LatencyMs: latencyMs,
		Err:       err,
		At:        time.Now(),
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event buffer full, dropping event", "type", t)
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
