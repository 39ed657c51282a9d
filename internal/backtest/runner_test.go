package backtest

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbt/internal/cache"
	"stockbt/internal/config"
	"stockbt/internal/market"
	"stockbt/internal/metrics"
	"stockbt/internal/report"
	"stockbt/internal/store"
	"stockbt/internal/strategy"
)

type fakeLoader struct {
	mu      sync.Mutex
	candles market.Candles
	err     error
	queries []cache.Query
}

func (f *fakeLoader) Load(_ context.Context, q cache.Query) (market.Candles, cache.Range, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.err != nil {
		return nil, cache.Range{}, f.err
	}
	return f.candles, cache.Range{Start: q.Start, End: q.End}, nil
}

// vShape 先跌后涨，SMA5 会在底部上穿 SMA25。
func vShape() market.Candles {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	day := int64(24 * time.Hour / time.Millisecond)
	var out market.Candles
	price := 130.0
	for i := 0; i < 60; i++ {
		if i < 30 {
			price--
		} else {
			price++
		}
		out = append(out, market.Candle{
			OpenTime: base + int64(i)*day,
			Open:     price,
			High:     price + 0.5,
			Low:      price - 0.5,
			Close:    price,
			AdjClose: price,
			Volume:   1000,
		})
	}
	return out
}

func testDefaults() config.BacktestConfig {
	return config.BacktestConfig{
		Symbol:        "AAPL",
		Interval:      "1d",
		Start:         "2024-01-01",
		End:           "2024-03-01",
		Strategy:      "golden_cross",
		Shares:        1,
		MaxConcurrent: 2,
	}
}

func newTestRunner(t *testing.T, loader CandleLoader, writer *report.Writer, runs store.RunStore) *Runner {
	t.Helper()
	reg, err := strategy.NewRegistry("", nil)
	require.NoError(t, err)
	r, err := NewRunner(RunnerParams{
		Loader:   loader,
		Registry: reg,
		Writer:   writer,
		Runs:     runs,
		Source:   "fake",
		Defaults: testDefaults(),
	})
	require.NoError(t, err)
	return r
}

func TestRunnerRunStoresRunAndTrades(t *testing.T) {
	ctx := context.Background()
	loader := &fakeLoader{candles: vShape()}
	runs := store.NewMemoryRunStore()
	r := newTestRunner(t, loader, nil, runs)

	out, err := r.Run(ctx, RunRequest{})
	require.NoError(t, err)

	require.Len(t, loader.queries, 1)
	assert.Equal(t, cache.Query{Symbol: "AAPL", Interval: "1d", Start: "2024-01-01", End: "2024-03-01"}, loader.queries[0])

	assert.Equal(t, store.RunStatusDone, out.Run.Status)
	assert.Equal(t, "golden_cross", out.Run.Strategy)
	assert.Equal(t, "fake", out.Run.Source)
	assert.Equal(t, 60, out.Run.Bars)
	assert.NotEmpty(t, out.Run.ID)
	assert.NotEmpty(t, out.Run.Metrics)
	require.NotEmpty(t, out.Trades)
	assert.Equal(t, out.Summary.Trades, out.Run.Trades)

	candles := vShape()
	first := out.Trades[0]
	assert.Equal(t, "long", first.Direction)
	assert.Equal(t, candles[first.EntryBar].OpenTime, first.EntryTime)
	assert.Equal(t, candles[first.ExitBar].OpenTime, first.ExitTime)
	assert.Equal(t, out.Run.ID, first.RunID)
	assert.Equal(t, 1, first.Seq)

	saved, err := runs.GetRun(ctx, out.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Run.ID, saved.ID)
	trades, err := runs.ListTrades(ctx, out.Run.ID)
	require.NoError(t, err)
	assert.Len(t, trades, len(out.Trades))
}

func TestRunnerOverridesReachPlan(t *testing.T) {
	loader := &fakeLoader{candles: vShape()}
	r := newTestRunner(t, loader, nil, nil)

	out, err := r.Run(context.Background(), RunRequest{Symbol: "MSFT", Direction: "short"})
	require.NoError(t, err)
	assert.Equal(t, "MSFT", out.Run.Symbol)
	for _, tr := range out.Trades {
		assert.Equal(t, "short", tr.Direction)
	}
	assert.Contains(t, string(out.Run.Params), `"direction":"short"`)
}

func TestRunnerUnknownStrategyRecordsFailure(t *testing.T) {
	ctx := context.Background()
	runs := store.NewMemoryRunStore()
	r := newTestRunner(t, &fakeLoader{candles: vShape()}, nil, runs)

	out, err := r.Run(ctx, RunRequest{Strategy: "nope"})
	require.Error(t, err)
	assert.Equal(t, store.RunStatusFailed, out.Run.Status)
	assert.Contains(t, out.Run.Error, "unknown strategy")

	saved, err := runs.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, store.RunStatusFailed, saved[0].Status)
}

func TestRunnerTooFewBarsFails(t *testing.T) {
	r := newTestRunner(t, &fakeLoader{candles: vShape()[:1]}, nil, nil)
	_, err := r.Run(context.Background(), RunRequest{})
	require.Error(t, err)
}

func TestRunnerLoadErrorIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	runs := store.NewMemoryRunStore()
	r := newTestRunner(t, &fakeLoader{err: errors.New("offline")}, nil, runs)

	_, err := r.Run(ctx, RunRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")

	saved, err := runs.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestRunnerWritesReport(t *testing.T) {
	dir := t.TempDir()
	writer := report.NewWriter(report.Options{Dir: dir, Format: "yaml"})
	r := newTestRunner(t, &fakeLoader{candles: vShape()}, writer, nil)

	out, err := r.Run(context.Background(), RunRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, out.Artifacts.HTML)
	require.NotEmpty(t, out.Artifacts.Record)
	assert.True(t, strings.HasSuffix(out.Artifacts.Record, ".yaml"))
	_, err = os.Stat(out.Artifacts.HTML)
	assert.NoError(t, err)
	assert.Contains(t, string(out.Run.Artifacts), "html")

	out, err = r.Run(context.Background(), RunRequest{NoReport: true})
	require.NoError(t, err)
	assert.Empty(t, out.Artifacts.HTML)
}

func TestRunnerRunAll(t *testing.T) {
	ctx := context.Background()
	runs := store.NewMemoryRunStore()
	r := newTestRunner(t, &fakeLoader{candles: vShape()}, nil, runs)

	reqs := []RunRequest{{Symbol: "AAPL"}, {Symbol: "MSFT"}, {Symbol: "7203.T"}}
	outs, err := r.RunAll(ctx, reqs)
	require.NoError(t, err)
	require.Len(t, outs, 3)
	for i, out := range outs {
		assert.Equal(t, reqs[i].Symbol, out.Run.Symbol)
	}
	saved, err := runs.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, saved, 3)
}

func TestRunnerRunAllStopsOnError(t *testing.T) {
	r := newTestRunner(t, &fakeLoader{candles: vShape()}, nil, nil)
	_, err := r.RunAll(context.Background(), []RunRequest{{Symbol: "AAPL"}, {Symbol: "AAPL", Strategy: "nope"}})
	require.Error(t, err)
}

func TestRunnerRequestsFromConfig(t *testing.T) {
	r := newTestRunner(t, &fakeLoader{}, nil, nil)
	cfg := testDefaults()
	cfg.Symbols = []string{"msft", "AAPL"}
	r.SetDefaults(cfg)
	reqs := r.Requests()
	require.NotEmpty(t, reqs)
	assert.Equal(t, "AAPL", reqs[0].Symbol)
}

func TestFormatSummary(t *testing.T) {
	text := FormatSummary(metrics.Summary{})
	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, len(metrics.RecordKeys))
	assert.True(t, strings.HasPrefix(lines[0], metrics.KeyTotalProfit))
	assert.Contains(t, text, "n/a")
}

func TestRunnerRejectsInvalidRequest(t *testing.T) {
	loader := &fakeLoader{candles: vShape()}
	r := newTestRunner(t, loader, nil, nil)

	for _, req := range []RunRequest{
		{Interval: "7d"},
		{Start: "2024/01/01"},
		{Shares: -1},
	} {
		_, err := r.Run(context.Background(), req)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
	assert.Empty(t, loader.queries)
}
