package sink

import (
	"context"
	"time"
)

// Point is one time-stamped metrics record.
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]interface{}
	Timestamp   time.Time
}

// Sink receives metrics points. Write enqueues without blocking the caller
// on the underlying store; batching and flushing are the sink's concern.
type Sink interface {
	// Write enqueues one point.
	Write(p Point)

	// Close flushes pending points and releases the store connection.
	Close(ctx context.Context) error
}

// Nop is a Sink that discards everything.
type Nop struct{}

func (Nop) Write(Point)                  {}
func (Nop) Close(context.Context) error { return nil }
