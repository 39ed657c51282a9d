// Package store 保存回测运行历史及其成交明细。
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound 表示指定运行不存在。
var ErrNotFound = errors.New("run not found")

// 运行状态。
const (
	RunStatusDone   = "done"
	RunStatusFailed = "failed"
)

// RunRecord 为一次回测运行的摘要。
type RunRecord struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	Interval    string          `json:"interval"`
	Strategy    string          `json:"strategy"`
	Source      string          `json:"source"`
	Start       string          `json:"start"`
	End         string          `json:"end"`
	Bars        int             `json:"bars"`
	Trades      int             `json:"trades"`
	NetProfit   float64         `json:"net_profit"`
	MaxDrawdown float64         `json:"max_drawdown"`
	Metrics     json.RawMessage `json:"metrics,omitempty"`
	Params      json.RawMessage `json:"params,omitempty"`
	Artifacts   json.RawMessage `json:"artifacts,omitempty"`
	Status      string          `json:"status"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
	CreatedAt   int64           `json:"created_at"`
}

// TradeRecord 为一笔已平仓交易。
type TradeRecord struct {
	RunID      string  `json:"run_id"`
	Seq        int     `json:"seq"`
	Direction  string  `json:"direction"`
	EntryBar   int     `json:"entry_bar"`
	ExitBar    int     `json:"exit_bar"`
	EntryTime  int64   `json:"entry_time"`
	ExitTime   int64   `json:"exit_time"`
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	PnL        float64 `json:"pnl"`
	ReturnRate float64 `json:"return_rate"`
	Reason     string  `json:"reason"`
}

// RunFilter 为列表查询条件；零值表示不过滤。
type RunFilter struct {
	Symbol   string
	Strategy string
	Limit    int
}

// RunStore 定义运行历史的持久化接口。
type RunStore interface {
	InsertRun(ctx context.Context, run RunRecord, trades []TradeRecord) error
	ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error)
	GetRun(ctx context.Context, id string) (RunRecord, error)
	ListTrades(ctx context.Context, runID string) ([]TradeRecord, error)
	Close() error
}

// NormalizeLimit 把 limit 限制在 [1, 500]，默认 50。
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return 50
	case limit > 500:
		return 500
	default:
		return limit
	}
}
