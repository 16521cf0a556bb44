package feed

import (
	"context"
	"sync"

	"github.com/connstorm/connstorm/internal/model"
)

// Memory is an in-process Feed, used in tests and for runs without a
// shared queue store.
type Memory struct {
	mu    sync.Mutex
	rows  []model.DataRow
	total int
}

// NewMemory creates a Memory feed holding the given rows.
func NewMemory(rows []model.DataRow) *Memory {
	return &Memory{rows: rows, total: len(rows)}
}

func (f *Memory) HasData(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows) > 0
}

func (f *Memory) Count(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total, nil
}

func (f *Memory) PopOne(ctx context.Context) (model.DataRow, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rows) == 0 {
		return nil, false, nil
	}
	row := f.rows[0]
	f.rows = f.rows[1:]
	return row, true, nil
}

func (f *Memory) Close() error {
	return nil
}
