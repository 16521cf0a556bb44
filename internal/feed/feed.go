package feed

import (
	"context"
	"errors"

	"github.com/connstorm/connstorm/internal/model"
)

// ErrMalformedRow indicates a stored row could not be decoded.
var ErrMalformedRow = errors.New("malformed data row")

// Feed is a depletable, shared, at-most-once-per-item queue of data rows.
//
// PopOne removes an item from the shared store; each item is delivered to
// exactly one connection for the lifetime of the run. Count reports the
// original total row count, not the remaining depth.
type Feed interface {
	// HasData reports whether any rows remain.
	HasData(ctx context.Context) bool

	// Count returns the original total row count.
	Count(ctx context.Context) (int, error)

	// PopOne removes and returns the next row. The second return is false
	// when the feed is empty.
	PopOne(ctx context.Context) (model.DataRow, bool, error)

	// Close releases the underlying store connection.
	Close() error
}
