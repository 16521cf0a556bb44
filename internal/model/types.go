package model

import "time"

// TransportKind selects how a simulated connection talks to the target.
type TransportKind string

const (
	KindWebSocket TransportKind = "websocket"
	KindHTTP      TransportKind = "http"
)

// Measurement returns the metrics measurement name for this kind.
func (k TransportKind) Measurement() string {
	switch k {
	case KindWebSocket:
		return "websocket_connections"
	case KindHTTP:
		return "http_connections"
	}
	return string(k)
}

// RequiredRowField must be present in every data row.
const RequiredRowField = "level"

// DataRow is one record of template variables sourced from bulk test data.
// Immutable once read; each row is bound to exactly one connection for the
// lifetime of the run.
type DataRow map[string]string

// EventType classifies a connection lifecycle event.
type EventType string

const (
	EventAttempt EventType = "attempt"
	EventOpen    EventType = "open"
	EventClose   EventType = "close"
	EventError   EventType = "error"
	EventSummary EventType = "summary"
)

// Event is one connection lifecycle event, published by a connection and
// consumed by the stats aggregator.
type Event struct {
	ConnID    int
	Kind      TransportKind
	Type      EventType
	LatencyMs float64 // populated for open events
	Err       error   // populated for error events
	At        time.Time
}
