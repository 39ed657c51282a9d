package metrics

import (
	"math"

	"stockbt/internal/engine"
)

// RatioPlaces 为比率类指标输出时保留的小数位。
const RatioPlaces = 3

// Summary 汇总一次回测的交易统计。
type Summary struct {
	Trades          int       `json:"trades"`
	WinTrades       int       `json:"win_trades"`
	LoseTrades      int       `json:"lose_trades"`
	GrossProfit     float64   `json:"gross_profit"`
	GrossLoss       float64   `json:"gross_loss"`
	NetProfit       float64   `json:"net_profit"`
	MaxDrawdown     float64   `json:"max_drawdown"`
	WinRate         Metric    `json:"win_rate"`
	ProfitFactor    Metric    `json:"profit_factor"`
	RecoveryFactor  Metric    `json:"recovery_factor"`
	RiskRewardRatio Metric    `json:"risk_reward_ratio"`
	AverageReturn   Metric    `json:"average_return"`
	SharpeRatio     Metric    `json:"sharpe_ratio"`
	StopLossCount   int       `json:"stop_loss_count"`
	TakeProfitCount int       `json:"take_profit_count"`
	EquityCurve     []float64 `json:"equity_curve"`
	ReturnRates     []float64 `json:"return_rates"`
}

// Aggregate 将引擎输出归约为汇总指标，是纯函数。
func Aggregate(res engine.Result) Summary {
	s := Summary{
		Trades:          res.LongEvents/2 + res.ShortEvents/2,
		StopLossCount:   res.StopLossCount,
		TakeProfitCount: res.TakeProfitCount,
		EquityCurve:     res.EquityCurve(),
		ReturnRates:     res.ReturnRates(),
	}
	for _, series := range [][]float64{res.LongPnL, res.ShortPnL} {
		for _, v := range series {
			switch {
			case v > 0:
				s.WinTrades++
				s.GrossProfit += v
			case v < 0:
				s.LoseTrades++
				s.GrossLoss += v
			}
		}
	}
	s.NetProfit = s.GrossProfit + s.GrossLoss
	s.MaxDrawdown = MaxDrawdown(s.EquityCurve)

	s.WinRate = ratio(float64(s.WinTrades)*100, float64(s.Trades))
	s.ProfitFactor = ratio(-s.GrossProfit, s.GrossLoss)
	s.RecoveryFactor = ratio(s.NetProfit, s.MaxDrawdown)
	if s.WinTrades > 0 && s.LoseTrades > 0 {
		avgWin := s.GrossProfit / float64(s.WinTrades)
		avgLoss := s.GrossLoss / float64(s.LoseTrades)
		s.RiskRewardRatio = ratio(-avgWin, avgLoss)
	}
	mean, std := meanStd(s.ReturnRates)
	s.AverageReturn = mean
	if mean.Valid && std.Valid {
		s.SharpeRatio = ratio(mean.Value, std.Value)
	}
	s.roundRatios()
	return s
}

func (s *Summary) roundRatios() {
	for _, m := range []*Metric{
		&s.WinRate, &s.ProfitFactor, &s.RecoveryFactor,
		&s.RiskRewardRatio, &s.AverageReturn, &s.SharpeRatio,
	} {
		*m = m.Rounded(RatioPlaces)
	}
}

// MaxDrawdown 返回 max(历史最高权益 - 当前权益)。
func MaxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	mdd := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if dd := peak - v; dd > mdd {
			mdd = dd
		}
	}
	return mdd
}

// meanStd 返回均值与样本标准差（ddof=1）。
func meanStd(xs []float64) (Metric, Metric) {
	if len(xs) == 0 {
		return Undefined(), Undefined()
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	if len(xs) < 2 {
		return Defined(mean), Undefined()
	}
	sq := 0.0
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return Defined(mean), Defined(math.Sqrt(sq / float64(len(xs)-1)))
}
