// Package sink delivers metrics points to durable storage.
//
// The Postgres sink batches points with pgx and flushes on batch size or a
// fixed interval. Expected schema:
//
//	CREATE TABLE connection_events (
//	    measurement TEXT        NOT NULL,
//	    run_id      TEXT        NOT NULL,
//	    event_type  TEXT        NOT NULL,
//	    fields      JSONB       NOT NULL,
//	    recorded_at TIMESTAMPTZ NOT NULL
//	);
//
// Flush failures are logged and retried on the next interval; they never
// block connection traffic.
package sink
