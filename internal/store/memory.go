package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRunStore 为进程内实现，用于不落盘的场景与测试。
type MemoryRunStore struct {
	mu     sync.RWMutex
	runs   map[string]RunRecord
	trades map[string][]TradeRecord
}

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{
		runs:   make(map[string]RunRecord),
		trades: make(map[string][]TradeRecord),
	}
}

func (m *MemoryRunStore) InsertRun(_ context.Context, run RunRecord, trades []TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	m.trades[run.ID] = append([]TradeRecord(nil), trades...)
	return nil
}

func (m *MemoryRunStore) ListRuns(_ context.Context, filter RunFilter) ([]RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RunRecord, 0, len(m.runs))
	for _, r := range m.runs {
		if filter.Symbol != "" && !strings.EqualFold(r.Symbol, filter.Symbol) {
			continue
		}
		if filter.Strategy != "" && r.Strategy != filter.Strategy {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	if limit := NormalizeLimit(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRunStore) GetRun(_ context.Context, id string) (RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return RunRecord{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryRunStore) ListTrades(_ context.Context, runID string) ([]TradeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.runs[runID]; !ok {
		return nil, ErrNotFound
	}
	return append([]TradeRecord(nil), m.trades[runID]...), nil
}

func (m *MemoryRunStore) Close() error { return nil }
