package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/connstorm/connstorm/internal/config"
)

// maxPending bounds the in-memory queue when the store is unreachable.
// Older points are dropped first.
const maxPending = 100000

// Postgres is a Sink that batches points into the connection_events table.
// A failed flush keeps the batch and retries on the next interval.
type Postgres struct {
	cfg    config.SinkConfig
	db     *pgxpool.Pool
	logger *slog.Logger

	batchMu sync.Mutex
	batch   []Point

	flushTicker *time.Ticker
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	// Counters, guarded by batchMu.
	inserts int64
	errors  int64
	dropped int64
}

// NewPostgres connects a pool, pings it, and returns the sink.
func NewPostgres(ctx context.Context, cfg config.SinkConfig, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(buildConnString(cfg.Postgres))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolCfg.MinConns = int32(cfg.Postgres.MinConns)
	poolCfg.MaxConns = int32(cfg.Postgres.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Postgres{
		cfg:    cfg,
		db:     pool,
		logger: logger,
		batch:  make([]Point, 0, cfg.BatchSize),
	}, nil
}

// Start begins the periodic flush loop.
func (s *Postgres) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.flushTicker = time.NewTicker(s.cfg.FlushInterval.Std())

	s.wg.Add(1)
	go s.flushLoop()

	s.logger.Info("metrics sink started",
		"batch_size", s.cfg.BatchSize,
		"flush_interval", s.cfg.FlushInterval.Std(),
	)
	return nil
}

// Write enqueues one point. Flushes synchronously when the batch is full.
func (s *Postgres) Write(p Point) {
	s.batchMu.Lock()
	if len(s.batch) >= maxPending {
		s.batch = s.batch[1:]
		s.dropped++
	}
	s.batch = append(s.batch, p)
	shouldFlush := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()

	if shouldFlush {
		s.flush()
	}
}

// Close stops the flush loop, performs a final flush, and closes the pool.
func (s *Postgres) Close(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.flushTicker != nil {
		s.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("metrics sink close timed out")
	}

	s.flush()
	s.db.Close()

	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	s.logger.Info("metrics sink closed",
		"inserts", s.inserts,
		"errors", s.errors,
		"dropped", s.dropped,
	)
	return nil
}

func (s *Postgres) flushLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.flushTicker.C:
			s.flush()
		}
	}
}

// flush writes the current batch. On failure the batch is requeued so the
// next interval retries it; flush failures never propagate to callers.
func (s *Postgres) flush() {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	batch := s.batch
	s.batch = make([]Point, 0, s.cfg.BatchSize)
	s.batchMu.Unlock()

	start := time.Now()

	if err := s.batchInsert(batch); err != nil {
		s.logger.Error("point batch insert failed", "error", err, "count", len(batch))
		s.batchMu.Lock()
		s.errors++
		s.batch = append(batch, s.batch...)
		if len(s.batch) > maxPending {
			s.dropped += int64(len(s.batch) - maxPending)
			s.batch = s.batch[len(s.batch)-maxPending:]
		}
		s.batchMu.Unlock()
		return
	}

	s.batchMu.Lock()
	s.inserts += int64(len(batch))
	s.batchMu.Unlock()

	s.logger.Debug("flushed points",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// batchInsert inserts points using pgx.Batch.
func (s *Postgres) batchInsert(points []Point) error {
	batch := &pgx.Batch{}
	for _, p := range points {
		fields, err := json.Marshal(p.Fields)
		if err != nil {
			s.logger.Warn("skipping unencodable point", "measurement", p.Measurement, "error", err)
			continue
		}
		batch.Queue(`
			INSERT INTO connection_events (measurement, run_id, event_type, fields, recorded_at)
			VALUES ($1, $2, $3, $4, $5)
		`, p.Measurement, p.Tags["run_id"], p.Tags["event_type"], fields, p.Timestamp)
	}

	// Detached context so the final flush still lands after Close cancels
	// the flush loop.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
