// Package datasource 拉取远端历史 K 线（Binance 合约 / Yahoo chart）。
package datasource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockbt/internal/market"
)

// FetchRequest 描述一次远端 K 线请求，区间为 [Start, End)。
type FetchRequest struct {
	Symbol   string
	Interval string
	Start    int64 // Unix ms
	End      int64 // Unix ms（0 表示不限制）
}

// CandleSource 统一不同数据源的拉取行为；返回按 OpenTime 升序的已收盘 K 线。
type CandleSource interface {
	Fetch(ctx context.Context, req FetchRequest) ([]market.Candle, error)
	Name() string
}

// Options 构造数据源所需参数。
type Options struct {
	Source          string
	BinanceREST     string
	YahooBase       string
	RateLimitPerMin int
	HTTPTimeout     time.Duration
}

// New 按名称构造数据源。
func New(opts Options) (CandleSource, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Source)) {
	case "", "yahoo":
		return NewYahooSource(opts.YahooBase, opts.HTTPTimeout), nil
	case "binance":
		return NewBinanceSource(opts.BinanceREST, opts.HTTPTimeout, opts.RateLimitPerMin), nil
	default:
		return nil, fmt.Errorf("未知数据源: %s", opts.Source)
	}
}

func (r FetchRequest) validate() error {
	if strings.TrimSpace(r.Symbol) == "" || strings.TrimSpace(r.Interval) == "" {
		return fmt.Errorf("symbol/interval 不能为空")
	}
	if r.End > 0 && r.End <= r.Start {
		return fmt.Errorf("end 需晚于 start")
	}
	return nil
}
