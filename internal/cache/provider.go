package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockbt/internal/datasource"
	"stockbt/internal/logger"
	"stockbt/internal/market"
)

// DateLayout 为 start/end 的日期格式。
const DateLayout = "2006-01-02"

// DefaultStart 为未指定 start 时的起始日期。
const DefaultStart = "1985-01-01"

// Query 描述一次行情读取；End 为不含当日的截止日期。
type Query struct {
	Symbol   string
	Interval string
	Start    string
	End      string
}

// Range 为解析后的查询区间。
type Range struct {
	Start   string
	End     string
	StartMs int64
	EndMs   int64
}

// Provider 在本地缓存与远端数据源之间选择：新鲜度窗口内直接读缓存，否则重新拉取并写回。
type Provider struct {
	store     *Store
	source    datasource.CandleSource
	freshness time.Duration
	now       func() time.Time
	log       logger.Component
}

func NewProvider(store *Store, source datasource.CandleSource, freshness time.Duration) (*Provider, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store 不能为空")
	}
	if source == nil {
		return nil, fmt.Errorf("数据源不能为空")
	}
	return &Provider{
		store:     store,
		source:    source,
		freshness: freshness,
		now:       time.Now,
		log:       logger.Named("cache"),
	}, nil
}

// Resolve 补全默认日期并换算为毫秒区间。
func (p *Provider) Resolve(q Query) (Range, error) {
	start := strings.TrimSpace(q.Start)
	if start == "" {
		start = DefaultStart
	}
	end := strings.TrimSpace(q.End)
	if end == "" {
		end = p.now().UTC().Format(DateLayout)
	}
	st, err := time.ParseInLocation(DateLayout, start, time.UTC)
	if err != nil {
		return Range{}, fmt.Errorf("invalid start %q: %w", start, err)
	}
	et, err := time.ParseInLocation(DateLayout, end, time.UTC)
	if err != nil {
		return Range{}, fmt.Errorf("invalid end %q: %w", end, err)
	}
	if !et.After(st) {
		return Range{}, fmt.Errorf("end %s 需晚于 start %s", end, start)
	}
	return Range{Start: start, End: end, StartMs: st.UnixMilli(), EndMs: et.UnixMilli()}, nil
}

// Load 返回查询区间内的 K 线。
func (p *Provider) Load(ctx context.Context, q Query) (market.Candles, Range, error) {
	symbol := strings.TrimSpace(q.Symbol)
	if symbol == "" {
		return nil, Range{}, fmt.Errorf("symbol 不能为空")
	}
	iv, err := datasource.ParseInterval(q.Interval)
	if err != nil {
		return nil, Range{}, err
	}
	rg, err := p.Resolve(q)
	if err != nil {
		return nil, Range{}, err
	}
	m, ok, err := p.store.Manifest(ctx, symbol, iv.Key, rg.Start, rg.End)
	if err != nil {
		return nil, rg, fmt.Errorf("read manifest: %w", err)
	}
	if ok && p.fresh(m) {
		bars, err := p.store.RangeCandles(ctx, symbol, iv.Key, rg.StartMs, rg.EndMs)
		if err != nil {
			return nil, rg, err
		}
		p.log.Debugf("hit %s %s [%s,%s) bars=%d", symbol, iv.Key, rg.Start, rg.End, len(bars))
		return bars, rg, nil
	}

	p.log.Infof("fetch %s %s [%s,%s) from %s", symbol, iv.Key, rg.Start, rg.End, p.source.Name())
	fetched, err := p.source.Fetch(ctx, datasource.FetchRequest{
		Symbol:   symbol,
		Interval: iv.Key,
		Start:    rg.StartMs,
		End:      rg.EndMs,
	})
	if err != nil {
		return nil, rg, fmt.Errorf("%s 拉取失败: %w", p.source.Name(), err)
	}
	if _, err := p.store.InsertCandles(ctx, symbol, iv.Key, fetched); err != nil {
		return nil, rg, fmt.Errorf("写入缓存失败: %w", err)
	}
	if err := p.store.MarkSynced(ctx, Manifest{
		Symbol:   symbol,
		Interval: iv.Key,
		Start:    rg.Start,
		End:      rg.End,
		Rows:     int64(len(fetched)),
		SyncedAt: p.now().UnixMilli(),
	}); err != nil {
		return nil, rg, err
	}
	bars, err := p.store.RangeCandles(ctx, symbol, iv.Key, rg.StartMs, rg.EndMs)
	if err != nil {
		return nil, rg, err
	}
	p.log.Infof("synced %s %s", symbol, market.Candles(bars).Snapshot(iv.Key))
	return bars, rg, nil
}

func (p *Provider) fresh(m Manifest) bool {
	if p.freshness <= 0 {
		return false
	}
	age := p.now().Sub(time.UnixMilli(m.SyncedAt))
	return age < p.freshness
}
