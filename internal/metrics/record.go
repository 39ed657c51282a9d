package metrics

const (
	KeyTotalProfit     = "total profit"
	KeyTotalTrades     = "total trades"
	KeyWinRate         = "win rate"
	KeyProfitFactor    = "profit factor"
	KeyMaxDrawdown     = "maximum drawdown"
	KeyRecoveryFactor  = "recovery factor"
	KeyRiskRewardRatio = "riskreward ratio"
	KeySharpeRatio     = "sharpe ratio"
	KeyAverageReturn   = "average return"
	KeyStopLoss        = "stop loss"
	KeyTakeProfit      = "take profit"
)

// RecordKeys 是指标记录的固定输出顺序。
var RecordKeys = []string{
	KeyTotalProfit,
	KeyTotalTrades,
	KeyWinRate,
	KeyProfitFactor,
	KeyMaxDrawdown,
	KeyRecoveryFactor,
	KeyRiskRewardRatio,
	KeySharpeRatio,
	KeyAverageReturn,
	KeyStopLoss,
	KeyTakeProfit,
}

// Record 返回扁平的 key→value 指标记录；无定义的指标为 nil。
func (s Summary) Record() map[string]any {
	return map[string]any{
		KeyTotalProfit:     Round(s.NetProfit, RatioPlaces),
		KeyTotalTrades:     s.Trades,
		KeyWinRate:         s.WinRate.Any(),
		KeyProfitFactor:    s.ProfitFactor.Any(),
		KeyMaxDrawdown:     Round(s.MaxDrawdown, RatioPlaces),
		KeyRecoveryFactor:  s.RecoveryFactor.Any(),
		KeyRiskRewardRatio: s.RiskRewardRatio.Any(),
		KeySharpeRatio:     s.SharpeRatio.Any(),
		KeyAverageReturn:   s.AverageReturn.Any(),
		KeyStopLoss:        s.StopLossCount,
		KeyTakeProfit:      s.TakeProfitCount,
	}
}

// Ratio 按名称取比率指标；名称未知或无定义时返回错误。
func (s Summary) Ratio(name string) (float64, error) {
	var m Metric
	switch name {
	case KeyWinRate:
		m = s.WinRate
	case KeyProfitFactor:
		m = s.ProfitFactor
	case KeyRecoveryFactor:
		m = s.RecoveryFactor
	case KeyRiskRewardRatio:
		m = s.RiskRewardRatio
	case KeySharpeRatio:
		m = s.SharpeRatio
	case KeyAverageReturn:
		m = s.AverageReturn
	default:
		return 0, &DegenerateMetricError{Field: name}
	}
	if !m.Valid {
		return 0, &DegenerateMetricError{Field: name}
	}
	return m.Value, nil
}

// Undefined 列出本次结果中无定义的指标名称。
func (s Summary) Undefined() []string {
	var out []string
	for _, item := range []struct {
		key string
		m   Metric
	}{
		{KeyWinRate, s.WinRate},
		{KeyProfitFactor, s.ProfitFactor},
		{KeyRecoveryFactor, s.RecoveryFactor},
		{KeyRiskRewardRatio, s.RiskRewardRatio},
		{KeySharpeRatio, s.SharpeRatio},
		{KeyAverageReturn, s.AverageReturn},
	} {
		if !item.m.Valid {
			out = append(out, item.key)
		}
	}
	return out
}
