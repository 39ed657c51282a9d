package gormstore

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbt/internal/store"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewGormStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun(id, symbol string, created int64) store.RunRecord {
	return store.RunRecord{
		ID:        id,
		Symbol:    symbol,
		Interval:  "1d",
		Strategy:  "golden_cross",
		Source:    "yahoo",
		Start:     "2010-01-01",
		End:       "2020-01-01",
		Bars:      2500,
		Trades:    2,
		NetProfit: 12.5,
		Metrics:   json.RawMessage(`{"total trades":2,"sharpe ratio":null}`),
		Status:    store.RunStatusDone,
		CreatedAt: created,
	}
}

func TestInsertAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	trades := []store.TradeRecord{
		{Seq: 1, Direction: "long", EntryBar: 3, ExitBar: 8, EntryPrice: 10, ExitPrice: 12, PnL: 2, ReturnRate: 20, Reason: "signal"},
		{Seq: 2, Direction: "short", EntryBar: 8, ExitBar: 9, EntryPrice: 12, ExitPrice: 13, PnL: -1, ReturnRate: -8.33, Reason: "stop_loss"},
	}
	require.NoError(t, s.InsertRun(ctx, sampleRun("r1", "9983.T", 100), trades))

	got, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "9983.T", got.Symbol)
	assert.Equal(t, "2010-01-01", got.Start)
	assert.JSONEq(t, `{"total trades":2,"sharpe ratio":null}`, string(got.Metrics))
	assert.JSONEq(t, `null`, string(got.Params))

	list, err := s.ListTrades(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r1", list[0].RunID)
	assert.Equal(t, "stop_loss", list[1].Reason)
}

func TestMissingRun(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.ListTrades(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListRunsFilterAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		sym := "AAPL"
		if i%2 == 1 {
			sym = "MSFT"
		}
		require.NoError(t, s.InsertRun(ctx, sampleRun(fmt.Sprintf("r%d", i), sym, int64(i)), nil))
	}
	all, err := s.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "r4", all[0].ID)

	aapl, err := s.ListRuns(ctx, store.RunFilter{Symbol: "aapl", Limit: 2})
	require.NoError(t, err)
	require.Len(t, aapl, 2)
	assert.Equal(t, []string{"r4", "r2"}, []string{aapl[0].ID, aapl[1].ID})
}

func TestInsertRequiresID(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.InsertRun(context.Background(), store.RunRecord{}, nil))
}
