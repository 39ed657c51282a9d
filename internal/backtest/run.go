package backtest

import (
	"stockbt/internal/engine"
	"stockbt/internal/metrics"
	"stockbt/internal/report"
	"stockbt/internal/store"
)

// RunRequest 为一次回测的输入；空字段沿用配置中的默认值。
type RunRequest struct {
	Symbol     string         `json:"symbol"`
	Interval   string         `json:"interval"`
	Start      string         `json:"start"`
	End        string         `json:"end"`
	Strategy   string         `json:"strategy"`
	Params     map[string]any `json:"params"`
	Direction  string         `json:"direction"`
	Shares     float64        `json:"shares"`
	StopLoss   *float64       `json:"stop_loss"`
	TakeProfit *float64       `json:"take_profit"`
	NoReport   bool           `json:"no_report"`
}

// Outcome 汇总一次运行的全部产出。
type Outcome struct {
	Run       store.RunRecord     `json:"run"`
	Summary   metrics.Summary     `json:"summary"`
	Record    map[string]any      `json:"record"`
	Trades    []store.TradeRecord `json:"trades"`
	Artifacts report.Artifacts    `json:"artifacts"`
	Result    engine.Result       `json:"-"`
}
