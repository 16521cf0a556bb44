package stats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/connstorm/connstorm/internal/model"
	"github.com/connstorm/connstorm/internal/sink"
)

// captureSink records every point for assertions.
type captureSink struct {
	mu     sync.Mutex
	points []sink.Point
	closed bool
}

func (s *captureSink) Write(p sink.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = append(s.points, p)
}

func (s *captureSink) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) byEventType(et string) []sink.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sink.Point
	for _, p := range s.points {
		if p.Tags["event_type"] == et {
			out = append(out, p)
		}
	}
	return out
}

func event(kind model.TransportKind, typ model.EventType) model.Event {
	return model.Event{ConnID: 1, Kind: kind, Type: typ, At: time.Now()}
}

func TestWebSocketCounters(t *testing.T) {
	a := New(Config{RunID: "test"}, &captureSink{}, nil)

	a.Record(event(model.KindWebSocket, model.EventAttempt))
	a.Record(event(model.KindWebSocket, model.EventAttempt))
	a.Record(model.Event{Kind: model.KindWebSocket, Type: model.EventOpen, LatencyMs: 12, At: time.Now()})
	a.Record(event(model.KindWebSocket, model.EventClose))
	a.Record(model.Event{Kind: model.KindWebSocket, Type: model.EventError, Err: errors.New("dial refused"), At: time.Now()})

	c := a.Snapshot(model.KindWebSocket)
	if c.Attempted != 2 {
		t.Errorf("Attempted = %d, want 2", c.Attempted)
	}
	if c.CurrentOpen != 0 {
		t.Errorf("CurrentOpen = %d, want 0", c.CurrentOpen)
	}
	if c.TotalClosed != 1 {
		t.Errorf("TotalClosed = %d, want 1", c.TotalClosed)
	}
	if c.Errors != 1 {
		t.Errorf("Errors = %d, want 1", c.Errors)
	}

	// (currentOpen + totalClosed) / attempted * 100 = (0+1)/2*100
	if got := a.SuccessRate(model.KindWebSocket); got != 50 {
		t.Errorf("SuccessRate = %v, want 50", got)
	}
	if got := a.AvgLatencyMs(model.KindWebSocket); got != 12 {
		t.Errorf("AvgLatencyMs = %v, want 12", got)
	}
}

func TestCurrentOpenNeverNegative(t *testing.T) {
	a := New(Config{RunID: "test"}, &captureSink{}, nil)

	// Closes arriving before or without opens must clamp, never go negative.
	a.Record(event(model.KindWebSocket, model.EventClose))
	a.Record(event(model.KindWebSocket, model.EventClose))
	a.Record(model.Event{Kind: model.KindWebSocket, Type: model.EventOpen, LatencyMs: 5, At: time.Now()})
	a.Record(event(model.KindWebSocket, model.EventClose))
	a.Record(event(model.KindWebSocket, model.EventClose))

	if c := a.Snapshot(model.KindWebSocket); c.CurrentOpen != 0 {
		t.Errorf("CurrentOpen = %d, want 0", c.CurrentOpen)
	}
}

func TestSuccessRateBounds(t *testing.T) {
	a := New(Config{RunID: "test"}, &captureSink{}, nil)

	if got := a.SuccessRate(model.KindWebSocket); got != 0 {
		t.Errorf("SuccessRate with no attempts = %v, want 0", got)
	}
	if got := a.SuccessRate(model.KindHTTP); got != 0 {
		t.Errorf("SuccessRate with no attempts = %v, want 0", got)
	}

	// More closes than attempts must still cap at 100.
	a.Record(event(model.KindWebSocket, model.EventAttempt))
	a.Record(event(model.KindWebSocket, model.EventClose))
	a.Record(event(model.KindWebSocket, model.EventClose))
	got := a.SuccessRate(model.KindWebSocket)
	if got < 0 || got > 100 {
		t.Errorf("SuccessRate = %v, want within [0, 100]", got)
	}
}

func TestHTTPCounters(t *testing.T) {
	a := New(Config{RunID: "test"}, &captureSink{}, nil)

	a.Record(event(model.KindHTTP, model.EventAttempt))
	a.Record(event(model.KindHTTP, model.EventAttempt))
	a.Record(model.Event{Kind: model.KindHTTP, Type: model.EventOpen, LatencyMs: 40, At: time.Now()})
	a.Record(event(model.KindHTTP, model.EventClose))
	a.Record(model.Event{Kind: model.KindHTTP, Type: model.EventError, Err: errors.New("http status 500"), At: time.Now()})
	a.Record(event(model.KindHTTP, model.EventClose))

	c := a.Snapshot(model.KindHTTP)
	if c.TotalSuccessful != 1 {
		t.Errorf("TotalSuccessful = %d, want 1", c.TotalSuccessful)
	}
	if c.Errors != 1 {
		t.Errorf("Errors = %d, want 1", c.Errors)
	}
	if got := a.SuccessRate(model.KindHTTP); got != 50 {
		t.Errorf("SuccessRate = %v, want 50", got)
	}
}

func TestEventPointEmission(t *testing.T) {
	cs := &captureSink{}
	a := New(Config{RunID: "run-1"}, cs, nil)

	a.Record(event(model.KindWebSocket, model.EventAttempt))
	a.Record(model.Event{ConnID: 7, Kind: model.KindWebSocket, Type: model.EventOpen, LatencyMs: 3.5, At: time.Now()})

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if len(cs.points) != 2 {
		t.Fatalf("got %d points, want 2", len(cs.points))
	}
	p := cs.points[1]
	if p.Measurement != "websocket_connections" {
		t.Errorf("Measurement = %q, want websocket_connections", p.Measurement)
	}
	if p.Tags["run_id"] != "run-1" {
		t.Errorf("run_id tag = %q, want run-1", p.Tags["run_id"])
	}
	if p.Tags["event_type"] != "open" {
		t.Errorf("event_type tag = %q, want open", p.Tags["event_type"])
	}
	if p.Fields["latency_ms"] != 3.5 {
		t.Errorf("latency_ms field = %v, want 3.5", p.Fields["latency_ms"])
	}
}

func TestSummaryEmission(t *testing.T) {
	cs := &captureSink{}
	a := New(Config{RunID: "run-1", SummaryInterval: 20 * time.Millisecond}, cs, nil)

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	a.Events() <- event(model.KindWebSocket, model.EventAttempt)
	a.Events() <- model.Event{Kind: model.KindWebSocket, Type: model.EventOpen, LatencyMs: 8, At: time.Now()}

	time.Sleep(80 * time.Millisecond)

	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	summaries := cs.byEventType("summary")
	if len(summaries) == 0 {
		t.Fatal("expected at least one summary point")
	}
	last := summaries[len(summaries)-1]
	if last.Measurement != "websocket_connections" {
		t.Errorf("Measurement = %q, want websocket_connections", last.Measurement)
	}
	for _, field := range []string{"attempted", "errors", "current_open", "total_closed", "success_rate", "avg_latency_ms"} {
		if _, ok := last.Fields[field]; !ok {
			t.Errorf("summary missing field %q", field)
		}
	}
	if last.Fields["attempted"] != int64(1) {
		t.Errorf("attempted field = %v, want 1", last.Fields["attempted"])
	}

	cs.mu.Lock()
	closed := cs.closed
	cs.mu.Unlock()
	if !closed {
		t.Error("expected sink to be closed")
	}
}

func TestCloseDrainsBufferedEvents(t *testing.T) {
	cs := &captureSink{}
	a := New(Config{RunID: "run-1", SummaryInterval: time.Hour}, cs, nil)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		a.Events() <- event(model.KindHTTP, model.EventAttempt)
	}
	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if c := a.Snapshot(model.KindHTTP); c.Attempted != 10 {
		t.Errorf("Attempted = %d, want 10 (buffered events must not be lost)", c.Attempted)
	}
}

func TestCloseIdempotent(t *testing.T) {
	a := New(Config{RunID: "run-1"}, &captureSink{}, nil)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := a.Close(context.Background()); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := a.Close(context.Background()); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
