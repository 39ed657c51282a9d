package engine

import "stockbt/internal/market"

// Direction 表示持仓方向。
type Direction int

const (
	Flat Direction = iota
	Long
	Short
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

// ExitReason 标记一次平仓的触发来源。
type ExitReason string

const (
	ExitSignal     ExitReason = "signal"
	ExitReversal   ExitReason = "reversal"
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitEndOfData  ExitReason = "end_of_data"
)

// Prices 为按 bar 对齐的 OHLC 序列。
type Prices struct {
	Open  []float64
	High  []float64
	Low   []float64
	Close []float64
}

// PricesFromCandles 拆出 OHLC 列。
func PricesFromCandles(candles []market.Candle) Prices {
	cs := market.Candles(candles)
	return Prices{
		Open:  cs.Opens(),
		High:  cs.Highs(),
		Low:   cs.Lows(),
		Close: cs.Closes(),
	}
}

// Signals 是策略输出的四条布尔序列，下标 i 表示“在 bar i 收盘时做出的决定”。
type Signals struct {
	BuyEntry  []bool
	BuyExit   []bool
	SellEntry []bool
	SellExit  []bool
}

// NewSignals 返回长度为 n 的全 false 信号集。
func NewSignals(n int) Signals {
	return Signals{
		BuyEntry:  make([]bool, n),
		BuyExit:   make([]bool, n),
		SellEntry: make([]bool, n),
		SellExit:  make([]bool, n),
	}
}

// RiskParams 描述止损/止盈距离（绝对价差，0 表示关闭）与持仓倍数。
type RiskParams struct {
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Shares     float64 `json:"shares"`
}

// Trade 记录一次完整的开平仓。
type Trade struct {
	Direction  Direction  `json:"direction"`
	EntryBar   int        `json:"entry_bar"`
	ExitBar    int        `json:"exit_bar"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	PnL        float64    `json:"pnl"`
	ReturnRate float64    `json:"return_rate"`
	Reason     ExitReason `json:"reason"`
}

// Result 是一次模拟的不可变输出。LongPnL/ShortPnL 与输入等长，未平仓的 bar 为 0。
type Result struct {
	LongPnL         []float64
	ShortPnL        []float64
	LongReturns     []float64
	ShortReturns    []float64
	Trades          []Trade
	Positions       []Direction
	LongEvents      int
	ShortEvents     int
	StopLossCount   int
	TakeProfitCount int
}

// Bars 返回模拟覆盖的 bar 数。
func (r Result) Bars() int { return len(r.LongPnL) }

// BarPnL 返回多空合并后的逐 bar 已实现盈亏。
func (r Result) BarPnL() []float64 {
	out := make([]float64, len(r.LongPnL))
	for i := range out {
		out[i] = r.LongPnL[i] + r.ShortPnL[i]
	}
	return out
}

// EquityCurve 为逐 bar 已实现盈亏的累计和。
func (r Result) EquityCurve() []float64 {
	out := r.BarPnL()
	sum := 0.0
	for i, v := range out {
		sum += v
		out[i] = sum
	}
	return out
}

// ReturnRates 返回合并后的收益率列表（空头在前，多头在后）。
func (r Result) ReturnRates() []float64 {
	out := make([]float64, 0, len(r.ShortReturns)+len(r.LongReturns))
	out = append(out, r.ShortReturns...)
	return append(out, r.LongReturns...)
}
