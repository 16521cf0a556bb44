package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/connstorm/connstorm/internal/config"
	"github.com/connstorm/connstorm/internal/model"
)

// Redis is a Feed backed by a Redis list of JSON-encoded rows plus a
// scalar key holding the original row count.
type Redis struct {
	client   *redis.Client
	listKey  string
	countKey string
	logger   *slog.Logger
}

// NewRedis creates a Redis feed. It does not dial; call Ping to verify the
// store is reachable.
func NewRedis(cfg config.RedisConfig, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		listKey:  cfg.ListKey,
		countKey: cfg.CountKey,
		logger:   logger,
	}
}

// Ping verifies the store is reachable.
func (f *Redis) Ping(ctx context.Context) error {
	if err := f.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// HasData reports whether any rows remain in the list. Store errors are
// logged and reported as no data.
func (f *Redis) HasData(ctx context.Context) bool {
	n, err := f.client.LLen(ctx, f.listKey).Result()
	if err != nil {
		f.logger.Warn("feed length check failed", "error", err)
		return false
	}
	return n > 0
}

// Count returns the original total row count. A missing count key means an
// unseeded feed and reports zero rows.
func (f *Redis) Count(ctx context.Context) (int, error) {
	n, err := f.client.Get(ctx, f.countKey).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read row count: %w", err)
	}
	return n, nil
}

// PopOne removes and decodes the next row from the front of the list.
func (f *Redis) PopOne(ctx context.Context) (model.DataRow, bool, error) {
	raw, err := f.client.LPop(ctx, f.listKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pop row: %w", err)
	}

	var row model.DataRow
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	if _, ok := row[model.RequiredRowField]; !ok {
		f.logger.Warn("data row missing required field", "field", model.RequiredRowField)
	}
	return row, true, nil
}

// Close closes the Redis client.
func (f *Redis) Close() error {
	return f.client.Close()
}

// Reset deletes the rows list and count key.
func (f *Redis) Reset(ctx context.Context) error {
	if err := f.client.Del(ctx, f.listKey, f.countKey).Err(); err != nil {
		return fmt.Errorf("reset feed: %w", err)
	}
	return nil
}

// Push appends encoded rows to the back of the list.
func (f *Redis) Push(ctx context.Context, rows []model.DataRow) error {
	if len(rows) == 0 {
		return nil
	}
	encoded := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
		encoded = append(encoded, data)
	}
	if err := f.client.RPush(ctx, f.listKey, encoded...).Err(); err != nil {
		return fmt.Errorf("push rows: %w", err)
	}
	return nil
}

// SetCount records the original total row count.
func (f *Redis) SetCount(ctx context.Context, n int) error {
	if err := f.client.Set(ctx, f.countKey, n, 0).Err(); err != nil {
		return fmt.Errorf("set row count: %w", err)
	}
	return nil
}
