package model

import "gorm.io/datatypes"

type RunModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	Symbol        string         `gorm:"column:symbol;index"`
	Interval      string         `gorm:"column:interval"`
	Strategy      string         `gorm:"column:strategy;index"`
	Source        string         `gorm:"column:source"`
	RangeStart    string         `gorm:"column:range_start"`
	RangeEnd      string         `gorm:"column:range_end"`
	Bars          int            `gorm:"column:bars"`
	Trades        int            `gorm:"column:trades"`
	NetProfit     float64        `gorm:"column:net_profit"`
	MaxDrawdown   float64        `gorm:"column:max_drawdown"`
	Metrics       datatypes.JSON `gorm:"column:metrics;type:TEXT"`
	Params        datatypes.JSON `gorm:"column:params;type:TEXT"`
	Artifacts     datatypes.JSON `gorm:"column:artifacts;type:TEXT"`
	Status        string         `gorm:"column:status"`
	Error         string         `gorm:"column:error"`
	DurationMs    int64          `gorm:"column:duration_ms"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
}

func (RunModel) TableName() string { return "backtest_runs" }

type TradeModel struct {
	ID         int64   `gorm:"column:id;primaryKey;autoIncrement"`
	RunID      string  `gorm:"column:run_id;index"`
	Seq        int     `gorm:"column:seq"`
	Direction  string  `gorm:"column:direction"`
	EntryBar   int     `gorm:"column:entry_bar"`
	ExitBar    int     `gorm:"column:exit_bar"`
	EntryTime  int64   `gorm:"column:entry_time"`
	ExitTime   int64   `gorm:"column:exit_time"`
	EntryPrice float64 `gorm:"column:entry_price"`
	ExitPrice  float64 `gorm:"column:exit_price"`
	PnL        float64 `gorm:"column:pnl"`
	ReturnRate float64 `gorm:"column:return_rate"`
	Reason     string  `gorm:"column:reason"`
}

func (TradeModel) TableName() string { return "backtest_trades" }
