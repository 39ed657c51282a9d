package datasource

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"golang.org/x/time/rate"

	"stockbt/internal/logger"
	"stockbt/internal/market"
)

const binanceMaxBatch = 1500

// BinanceSource 基于 go-binance 合约 klines 接口，按 limit 分页拉取整个区间。
type BinanceSource struct {
	client  *futures.Client
	limiter *rate.Limiter
	now     func() time.Time
}

func NewBinanceSource(base string, timeout time.Duration, ratePerMin int) *BinanceSource {
	client := futures.NewClient("", "")
	if base = strings.TrimSpace(base); base != "" {
		client.BaseURL = base
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client.HTTPClient = &http.Client{Timeout: timeout}
	ratePerSec := rate.Limit(float64(ratePerMin) / 60.0)
	if ratePerMin <= 0 {
		ratePerSec = 8
	}
	return &BinanceSource{
		client:  client,
		limiter: rate.NewLimiter(ratePerSec, 1),
		now:     time.Now,
	}
}

func (b *BinanceSource) Name() string { return "binance" }

func (b *BinanceSource) Fetch(ctx context.Context, req FetchRequest) ([]market.Candle, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	iv, err := ParseInterval(req.Interval)
	if err != nil {
		return nil, err
	}
	interval, err := iv.For(b.Name())
	if err != nil {
		return nil, err
	}
	symbol := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(req.Symbol), "/", ""))
	nowMs := b.now().UnixMilli()

	var out []market.Candle
	cursor := req.Start
	for page := 0; ; page++ {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		svc := b.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(binanceMaxBatch)
		if cursor > 0 {
			svc = svc.StartTime(cursor)
		}
		if req.End > 0 {
			svc = svc.EndTime(req.End - 1)
		}
		kls, err := svc.Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, err)
		}
		last := cursor
		for _, kl := range kls {
			if kl == nil || kl.OpenTime < cursor {
				continue
			}
			last = kl.OpenTime
			// 未收盘的 K 线不参与回测
			if kl.CloseTime >= nowMs {
				continue
			}
			out = append(out, market.Candle{
				OpenTime: kl.OpenTime,
				Open:     parseFloat(kl.Open),
				High:     parseFloat(kl.High),
				Low:      parseFloat(kl.Low),
				Close:    parseFloat(kl.Close),
				AdjClose: parseFloat(kl.Close),
				Volume:   parseFloat(kl.Volume),
			})
		}
		if len(kls) < binanceMaxBatch || last < cursor || (req.End > 0 && last >= req.End) {
			break
		}
		cursor = last + 1
		logger.Debugf("[datasource] binance %s %s page=%d next=%d", symbol, interval, page, cursor)
	}
	return out, nil
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}
