// Package indicator 封装回测策略所需的技术指标。
//
// 所有函数返回与输入等长的序列；指标预热期（talib lookback）内的值为 NaN，
// 由调用方（交叉判定等）自行跳过。
package indicator

import (
	"math"

	"github.com/markcheno/go-talib"
)

// 默认参数，与常见行情软件一致。
const (
	DefaultBBandsPeriod = 20
	DefaultBBandsWidth  = 2.0
	DefaultMACDFast     = 12
	DefaultMACDSlow     = 26
	DefaultMACDSignal   = 9
	DefaultStochK       = 5
	DefaultStochD       = 3
	DefaultRSIPeriod    = 14
	DefaultATRPeriod    = 14
)

// SMA 简单移动平均。
func SMA(src []float64, period int) []float64 {
	if !enough(len(src), period, period-1) {
		return nanSeries(len(src))
	}
	return warmup(talib.Sma(src, period), period-1)
}

// EMA 指数移动平均。
func EMA(src []float64, period int) []float64 {
	if !enough(len(src), period, period-1) {
		return nanSeries(len(src))
	}
	return warmup(talib.Ema(src, period), period-1)
}

// BBands 布林带，返回 upper/middle/lower。
func BBands(src []float64, period int, width float64) (upper, middle, lower []float64) {
	n := len(src)
	if !enough(n, period, period-1) || width <= 0 {
		return nanSeries(n), nanSeries(n), nanSeries(n)
	}
	u, m, l := talib.BBands(src, period, width, width, talib.SMA)
	return warmup(u, period-1), warmup(m, period-1), warmup(l, period-1)
}

// MACD 返回 macd 线、信号线与柱。
func MACD(src []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	n := len(src)
	lookback := slow - 1 + signal - 1
	if fast <= 0 || fast >= slow || !enough(n, signal, lookback) {
		return nanSeries(n), nanSeries(n), nanSeries(n)
	}
	m, s, h := talib.Macd(src, fast, slow, signal)
	return warmup(m, lookback), warmup(s, lookback), warmup(h, lookback)
}

// Stoch 返回未平滑的 %K（kPeriod 区间位置）与其 dPeriod 均线 %D。
func Stoch(high, low, closes []float64, kPeriod, dPeriod int) (k, d []float64) {
	n := len(closes)
	lookback := kPeriod - 1 + dPeriod - 1
	if len(high) != n || len(low) != n || kPeriod <= 0 || !enough(n, dPeriod, lookback) {
		return nanSeries(n), nanSeries(n)
	}
	sk, sd := talib.Stoch(high, low, closes, kPeriod, 1, talib.SMA, dPeriod, talib.SMA)
	return warmup(sk, lookback), warmup(sd, lookback)
}

// RSI 相对强弱指数（Wilder）。
func RSI(src []float64, period int) []float64 {
	if !enough(len(src), period, period) {
		return nanSeries(len(src))
	}
	return warmup(talib.Rsi(src, period), period)
}

// ATR 平均真实波幅。
func ATR(high, low, closes []float64, period int) []float64 {
	n := len(closes)
	if len(high) != n || len(low) != n || !enough(n, period, period) {
		return nanSeries(n)
	}
	return warmup(talib.Atr(high, low, closes, period), period)
}

// Last 返回序列中最后一个有效值，不存在时 ok=false。
func Last(series []float64) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if valid(series[i]) {
			return series[i], true
		}
	}
	return 0, false
}

func enough(n, period, lookback int) bool {
	return period > 0 && n > lookback
}

func warmup(series []float64, lookback int) []float64 {
	out := make([]float64, len(series))
	for i, v := range series {
		if i < lookback || !valid(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = v
	}
	return out
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
