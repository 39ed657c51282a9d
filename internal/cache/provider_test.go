package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"stockbt/internal/datasource"
	"stockbt/internal/market"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) Fetch(ctx context.Context, req datasource.FetchRequest) ([]market.Candle, error) {
	args := m.Called(ctx, req)
	bars, _ := args.Get(0).([]market.Candle)
	return bars, args.Error(1)
}

func dayMs(s string) int64 {
	t, _ := time.ParseInLocation(DateLayout, s, time.UTC)
	return t.UnixMilli()
}

func newProvider(t *testing.T, src datasource.CandleSource, now *time.Time) *Provider {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "candles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	p, err := NewProvider(store, src, 24*time.Hour)
	require.NoError(t, err)
	p.now = func() time.Time { return *now }
	return p
}

func sampleBars() []market.Candle {
	return []market.Candle{
		{OpenTime: dayMs("2020-01-02"), Open: 1, High: 2, Low: 0.5, Close: 1.5, AdjClose: 1.4, Volume: 10},
		{OpenTime: dayMs("2020-01-03"), Open: 1.5, High: 2.5, Low: 1, Close: 2, AdjClose: 1.9, Volume: 12},
	}
}

func TestProviderFetchesOnceWithinFreshness(t *testing.T) {
	src := &mockSource{}
	src.On("Fetch", mock.Anything, datasource.FetchRequest{
		Symbol:   "9983.T",
		Interval: "1d",
		Start:    dayMs("2020-01-01"),
		End:      dayMs("2020-02-01"),
	}).Return(sampleBars(), nil).Once()

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	p := newProvider(t, src, &now)
	q := Query{Symbol: "9983.T", Interval: "1d", Start: "2020-01-01", End: "2020-02-01"}

	bars, rg, err := p.Load(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 1.9, bars[1].AdjClose)
	assert.Equal(t, "2020-01-01", rg.Start)

	now = now.Add(23 * time.Hour)
	bars, _, err = p.Load(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	src.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestProviderRefetchesWhenStale(t *testing.T) {
	src := &mockSource{}
	src.On("Fetch", mock.Anything, mock.Anything).Return(sampleBars(), nil)

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	p := newProvider(t, src, &now)
	q := Query{Symbol: "AAPL", Interval: "1d", Start: "2020-01-01", End: "2020-02-01"}

	_, _, err := p.Load(context.Background(), q)
	require.NoError(t, err)
	now = now.Add(25 * time.Hour)
	_, _, err = p.Load(context.Background(), q)
	require.NoError(t, err)
	src.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestProviderDefaultsDates(t *testing.T) {
	src := &mockSource{}
	src.On("Fetch", mock.Anything, mock.MatchedBy(func(req datasource.FetchRequest) bool {
		return req.Start == dayMs("1985-01-01") && req.End == dayMs("2024-05-01")
	})).Return(sampleBars(), nil).Once()

	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	p := newProvider(t, src, &now)
	_, rg, err := p.Load(context.Background(), Query{Symbol: "AAPL", Interval: "1d"})
	require.NoError(t, err)
	assert.Equal(t, "1985-01-01", rg.Start)
	assert.Equal(t, "2024-05-01", rg.End)
	src.AssertExpectations(t)
}

func TestProviderErrors(t *testing.T) {
	src := &mockSource{}
	src.On("Fetch", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	p := newProvider(t, src, &now)

	_, _, err := p.Load(context.Background(), Query{Symbol: "AAPL", Interval: "1d", Start: "2020-01-01", End: "2020-02-01"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, _, err = p.Load(context.Background(), Query{Symbol: "AAPL", Interval: "4h"})
	assert.Error(t, err)
	_, _, err = p.Load(context.Background(), Query{Symbol: "AAPL", Interval: "1d", Start: "2020-02-01", End: "2020-01-01"})
	assert.Error(t, err)
	_, _, err = p.Load(context.Background(), Query{Interval: "1d"})
	assert.Error(t, err)

	_, ok, err := p.store.Manifest(context.Background(), "AAPL", "1d", "2020-01-01", "2020-02-01")
	require.NoError(t, err)
	assert.False(t, ok, "failed fetch must not mark the range synced")
}

func TestStoreUpsertAndRange(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "c.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	n, err := store.InsertCandles(ctx, "X", "1d", sampleBars())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	updated := sampleBars()[:1]
	updated[0].Close = 9
	_, err = store.InsertCandles(ctx, "X", "1d", updated)
	require.NoError(t, err)

	bars, err := store.RangeCandles(ctx, "X", "1d", 0, 0)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 9.0, bars[0].Close)

	bars, err = store.RangeCandles(ctx, "X", "1d", 0, dayMs("2020-01-03"))
	require.NoError(t, err)
	assert.Len(t, bars, 1)

	bars, err = store.RangeCandles(ctx, "Y", "1d", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, bars)
}
