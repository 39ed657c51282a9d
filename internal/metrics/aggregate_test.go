package metrics

import (
	"encoding/json"
	"errors"
	"testing"

	"stockbt/internal/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateMixedTrades(t *testing.T) {
	res := engine.Result{
		LongPnL:         []float64{0, 10, 0, -5, 0},
		ShortPnL:        []float64{0, 0, 4, 0, -2},
		LongReturns:     []float64{10, -5},
		ShortReturns:    []float64{4, -2},
		LongEvents:      4,
		ShortEvents:     4,
		StopLossCount:   2,
		TakeProfitCount: 1,
	}
	s := Aggregate(res)

	assert.Equal(t, 4, s.Trades)
	assert.Equal(t, 2, s.WinTrades)
	assert.Equal(t, 2, s.LoseTrades)
	assert.Equal(t, 14.0, s.GrossProfit)
	assert.Equal(t, -7.0, s.GrossLoss)
	assert.Equal(t, 7.0, s.NetProfit)
	assert.Equal(t, []float64{0, 10, 14, 9, 7}, s.EquityCurve)
	assert.Equal(t, 7.0, s.MaxDrawdown)
	assert.Equal(t, Defined(50), s.WinRate)
	assert.Equal(t, Defined(2), s.ProfitFactor)
	assert.Equal(t, Defined(1), s.RecoveryFactor)
	assert.Equal(t, Defined(2), s.RiskRewardRatio)
	assert.Equal(t, Defined(1.75), s.AverageReturn)
	assert.Equal(t, Defined(0.263), s.SharpeRatio)
	assert.Equal(t, 2, s.StopLossCount)
	assert.Equal(t, 1, s.TakeProfitCount)
	assert.Empty(t, s.Undefined())
}

func TestAggregateNoTrades(t *testing.T) {
	res, err := engine.Simulate(engine.Prices{
		Open:  []float64{10, 11, 12},
		High:  []float64{10, 11, 12},
		Low:   []float64{10, 11, 12},
		Close: []float64{10, 11, 12},
	}, engine.NewSignals(3), engine.RiskParams{Shares: 1})
	require.NoError(t, err)

	s := Aggregate(res)
	assert.Zero(t, s.Trades)
	assert.Zero(t, s.WinTrades)
	assert.Zero(t, s.LoseTrades)
	assert.Equal(t, []float64{0, 0, 0}, s.EquityCurve)
	assert.False(t, s.WinRate.Valid)
	assert.False(t, s.ProfitFactor.Valid)
	assert.False(t, s.RecoveryFactor.Valid)
	assert.False(t, s.RiskRewardRatio.Valid)
	assert.False(t, s.AverageReturn.Valid)
	assert.False(t, s.SharpeRatio.Valid)

	_, err = s.Ratio(KeyWinRate)
	assert.True(t, errors.Is(err, ErrDegenerate))
	var degErr *DegenerateMetricError
	require.True(t, errors.As(err, &degErr))
	assert.Equal(t, KeyWinRate, degErr.Field)
}

func TestAggregateTwoBarScenario(t *testing.T) {
	sig := engine.NewSignals(2)
	sig.BuyEntry[0] = true
	res, err := engine.Simulate(engine.Prices{
		Open:  []float64{10, 10},
		High:  []float64{10, 10},
		Low:   []float64{10, 10},
		Close: []float64{10, 10},
	}, sig, engine.RiskParams{Shares: 1})
	require.NoError(t, err)

	s := Aggregate(res)
	assert.Equal(t, 1, s.Trades)
	assert.Equal(t, []float64{0, 0}, s.EquityCurve)
	assert.Zero(t, s.NetProfit)
	assert.Equal(t, Defined(0), s.WinRate)
	assert.False(t, s.ProfitFactor.Valid)
	assert.False(t, s.RecoveryFactor.Valid)
	assert.False(t, s.RiskRewardRatio.Valid)
	assert.Equal(t, Defined(0), s.AverageReturn)
	assert.False(t, s.SharpeRatio.Valid)
	assert.ElementsMatch(t, []string{KeyProfitFactor, KeyRecoveryFactor, KeyRiskRewardRatio, KeySharpeRatio}, s.Undefined())
}

func TestAggregateOnlyWinners(t *testing.T) {
	res := engine.Result{
		LongPnL:     []float64{0, 3, 0, 6},
		ShortPnL:    []float64{0, 0, 0, 0},
		LongReturns: []float64{3, 6},
		LongEvents:  4,
	}
	s := Aggregate(res)
	assert.Equal(t, Defined(100), s.WinRate)
	assert.False(t, s.ProfitFactor.Valid)
	assert.False(t, s.RiskRewardRatio.Valid)
	assert.Zero(t, s.MaxDrawdown)
	assert.False(t, s.RecoveryFactor.Valid)
	assert.Equal(t, Defined(4.5), s.AverageReturn)
	assert.True(t, s.SharpeRatio.Valid)
}

func TestAggregateZeroDeviationSharpe(t *testing.T) {
	res := engine.Result{
		LongPnL:     []float64{0, 1, -1, 1},
		ShortPnL:    []float64{0, 0, 0, 0},
		LongReturns: []float64{2, 2, 2},
		LongEvents:  6,
	}
	s := Aggregate(res)
	assert.Equal(t, Defined(2), s.AverageReturn)
	assert.False(t, s.SharpeRatio.Valid)
}

func TestMaxDrawdown(t *testing.T) {
	assert.Zero(t, MaxDrawdown(nil))
	assert.Equal(t, 5.0, MaxDrawdown([]float64{0, -5, -2}))
	assert.Equal(t, 8.0, MaxDrawdown([]float64{0, 10, 4, 12, 4, 20}))
}

func TestRecordUndefinedAsNil(t *testing.T) {
	s := Summary{WinRate: Defined(33.333), NetProfit: 1.23456, MaxDrawdown: 2}
	rec := s.Record()
	assert.Len(t, rec, len(RecordKeys))
	assert.Equal(t, 33.333, rec[KeyWinRate])
	assert.Equal(t, 1.235, rec[KeyTotalProfit])
	assert.Nil(t, rec[KeySharpeRatio])

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"sharpe ratio":null`)
}

func TestMetricJSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		A Metric `json:"a"`
		B Metric `json:"b"`
	}{A: Defined(1.5), B: Undefined()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null}`, string(raw))

	var back struct {
		A Metric `json:"a"`
		B Metric `json:"b"`
	}
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, Defined(1.5), back.A)
	assert.False(t, back.B.Valid)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.263, Round(0.2630769, 3))
	assert.Equal(t, 1.235, Round(1.2345, 3))
	assert.Equal(t, -1.235, Round(-1.2345, 3))
}
