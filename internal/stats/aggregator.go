package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/connstorm/connstorm/internal/model"
	"github.com/connstorm/connstorm/internal/sink"
)

// Defaults for optional aggregator settings.
const (
	DefaultSummaryInterval = 5 * time.Second
	DefaultLatencyWindow   = 1000
	DefaultEventBuffer     = 4096
)

// Config holds aggregator settings.
type Config struct {
	RunID           string
	SummaryInterval time.Duration
	LatencyWindow   int
	EventBuffer     int
}

// Counters is a point-in-time copy of one transport kind's rolling counters.
type Counters struct {
	Attempted       int64
	Errors          int64
	CurrentOpen     int64 // WebSocket only
	TotalClosed     int64 // WebSocket only
	TotalSuccessful int64 // HTTP only
}

// kindState tracks one transport kind.
type kindState struct {
	Counters
	latency *Ring
}

// Aggregator consumes connection lifecycle events, maintains rolling
// counters and a bounded latency window per transport kind, and emits one
// discrete point per event plus a periodic summary point.
type Aggregator struct {
	cfg    Config
	sink   sink.Sink
	logger *slog.Logger

	events chan model.Event

	mu    sync.Mutex
	kinds map[model.TransportKind]*kindState

	summaryTicker *time.Ticker
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	closeOnce     sync.Once
}

// New creates an Aggregator writing to the given sink.
func New(cfg Config, snk sink.Sink, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SummaryInterval == 0 {
		cfg.SummaryInterval = DefaultSummaryInterval
	}
	if cfg.LatencyWindow == 0 {
		cfg.LatencyWindow = DefaultLatencyWindow
	}
	if cfg.EventBuffer == 0 {
		cfg.EventBuffer = DefaultEventBuffer
	}
	return &Aggregator{
		cfg:    cfg,
		sink:   snk,
		logger: logger,
		events: make(chan model.Event, cfg.EventBuffer),
		kinds:  make(map[model.TransportKind]*kindState),
	}
}

// Events returns the channel connections publish lifecycle events on.
func (a *Aggregator) Events() chan<- model.Event {
	return a.events
}

// Start begins consuming events and emitting periodic summaries.
func (a *Aggregator) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.summaryTicker = time.NewTicker(a.cfg.SummaryInterval)

	a.wg.Add(1)
	go a.consumeLoop()

	a.wg.Add(1)
	go a.summaryLoop()

	a.logger.Info("stats aggregator started",
		"run_id", a.cfg.RunID,
		"summary_interval", a.cfg.SummaryInterval,
	)
	return nil
}

// Close stops the loops, drains buffered events, emits one final summary,
// and closes the sink. Safe to call more than once.
func (a *Aggregator) Close(ctx context.Context) error {
	var err error
	a.closeOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		if a.summaryTicker != nil {
			a.summaryTicker.Stop()
		}
		a.wg.Wait()

		// Drain anything still buffered so no event is lost.
		for {
			select {
			case ev := <-a.events:
				a.Record(ev)
			default:
				a.emitSummary()
				err = a.sink.Close(ctx)
				return
			}
		}
	})
	return err
}

// Record applies one lifecycle event: updates counters and writes one
// discrete point to the sink.
func (a *Aggregator) Record(ev model.Event) {
	a.mu.Lock()
	st := a.state(ev.Kind)

	switch ev.Type {
	case model.EventAttempt:
		st.Attempted++

	case model.EventOpen:
		switch ev.Kind {
		case model.KindWebSocket:
			st.CurrentOpen++
		case model.KindHTTP:
			st.TotalSuccessful++
		}
		st.latency.Push(ev.LatencyMs)

	case model.EventClose:
		if ev.Kind == model.KindWebSocket {
			st.CurrentOpen--
			if st.CurrentOpen < 0 {
				a.logger.Warn("open connection count underflow, clamping",
					"conn_id", ev.ConnID,
				)
				st.CurrentOpen = 0
			}
			st.TotalClosed++
		}

	case model.EventError:
		st.Errors++
	}

	fields := map[string]interface{}{
		"conn_id": ev.ConnID,
	}
	if ev.Type == model.EventOpen {
		fields["latency_ms"] = ev.LatencyMs
	}
	if ev.Err != nil {
		fields["error"] = ev.Err.Error()
	}
	a.mu.Unlock()

	a.sink.Write(sink.Point{
		Measurement: ev.Kind.Measurement(),
		Tags: map[string]string{
			"run_id":     a.cfg.RunID,
			"event_type": string(ev.Type),
		},
		Fields:    fields,
		Timestamp: ev.At,
	})
}

// SuccessRate returns the current success percentage for a kind, 0 when no
// attempt has been made. Always within [0, 100].
func (a *Aggregator) SuccessRate(kind model.TransportKind) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state(kind).successRate(kind)
}

// AvgLatencyMs returns the mean latency over the bounded sample window.
func (a *Aggregator) AvgLatencyMs(kind model.TransportKind) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state(kind).latency.Mean()
}

// Snapshot returns a copy of the rolling counters for a kind.
func (a *Aggregator) Snapshot(kind model.TransportKind) Counters {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state(kind).Counters
}

// state returns the kind state, creating it lazily. Caller holds a.mu.
func (a *Aggregator) state(kind model.TransportKind) *kindState {
	st, ok := a.kinds[kind]
	if !ok {
		st = &kindState{latency: NewRing(a.cfg.LatencyWindow)}
		a.kinds[kind] = st
	}
	return st
}

func (st *kindState) successRate(kind model.TransportKind) float64 {
	if st.Attempted == 0 {
		return 0
	}
	var successes int64
	switch kind {
	case model.KindWebSocket:
		successes = st.CurrentOpen + st.TotalClosed
	case model.KindHTTP:
		successes = st.TotalSuccessful
	}
	rate := float64(successes) / float64(st.Attempted) * 100
	if rate > 100 {
		rate = 100
	}
	return rate
}

func (a *Aggregator) consumeLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case ev := <-a.events:
			a.Record(ev)
		}
	}
}

func (a *Aggregator) summaryLoop() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.summaryTicker.C:
			a.emitSummary()
		}
	}
}

// emitSummary writes one full-state point per active transport kind.
func (a *Aggregator) emitSummary() {
	a.mu.Lock()
	points := make([]sink.Point, 0, len(a.kinds))
	now := time.Now()
	for kind, st := range a.kinds {
		fields := map[string]interface{}{
			"attempted":      st.Attempted,
			"errors":         st.Errors,
			"success_rate":   st.successRate(kind),
			"avg_latency_ms": st.latency.Mean(),
		}
		switch kind {
		case model.KindWebSocket:
			fields["current_open"] = st.CurrentOpen
			fields["total_closed"] = st.TotalClosed
		case model.KindHTTP:
			fields["total_successful"] = st.TotalSuccessful
		}
		points = append(points, sink.Point{
			Measurement: kind.Measurement(),
			Tags: map[string]string{
				"run_id":     a.cfg.RunID,
				"event_type": string(model.EventSummary),
			},
			Fields:    fields,
			Timestamp: now,
		})
	}
	a.mu.Unlock()

	for _, p := range points {
		a.sink.Write(p)
	}
}
