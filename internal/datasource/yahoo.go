package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"stockbt/internal/market"
)

const defaultYahooBase = "https://query1.finance.yahoo.com"

// YahooSource 读取 Yahoo Finance chart 接口（v8），包含复权收盘价。
type YahooSource struct {
	baseURL string
	client  *http.Client
}

func NewYahooSource(base string, timeout time.Duration) *YahooSource {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = defaultYahooBase
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &YahooSource{
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
	}
}

func (y *YahooSource) Name() string { return "yahoo" }

func (y *YahooSource) Fetch(ctx context.Context, req FetchRequest) ([]market.Candle, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	iv, err := ParseInterval(req.Interval)
	if err != nil {
		return nil, err
	}
	interval, err := iv.For(y.Name())
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(y.baseURL + "/v8/finance/chart/" + url.PathEscape(strings.TrimSpace(req.Symbol)))
	if err != nil {
		return nil, err
	}
	end := req.End
	if end <= 0 {
		end = time.Now().UnixMilli()
	}
	q := u.Query()
	q.Set("period1", strconv.FormatInt(req.Start/1000, 10))
	q.Set("period2", strconv.FormatInt(end/1000, 10))
	q.Set("interval", interval)
	q.Set("includeAdjustedClose", "true")
	q.Set("events", "div,splits")
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (stockbt)")
	resp, err := y.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		msg := gjson.GetBytes(body, "chart.error.description").String()
		return nil, fmt.Errorf("yahoo 返回状态码 %d: %s", resp.StatusCode, msg)
	}
	return parseChart(body, req.Start, end)
}

// parseChart 解析 chart.result[0]；停牌等缺失行（close 为 null）被跳过。
func parseChart(body []byte, start, end int64) ([]market.Candle, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("yahoo 响应不是合法 JSON")
	}
	root := gjson.ParseBytes(body)
	if e := root.Get("chart.error"); e.Exists() && e.Type != gjson.Null {
		return nil, fmt.Errorf("yahoo 错误: %s", e.Get("description").String())
	}
	result := root.Get("chart.result.0")
	if !result.Exists() {
		return nil, fmt.Errorf("yahoo 响应缺少 chart.result")
	}
	stamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()
	adj := result.Get("indicators.adjclose.0.adjclose").Array()

	out := make([]market.Candle, 0, len(stamps))
	for i, ts := range stamps {
		if i >= len(closes) || closes[i].Type == gjson.Null {
			continue
		}
		openTime := ts.Int() * 1000
		if openTime < start || (end > 0 && openTime >= end) {
			continue
		}
		c := market.Candle{
			OpenTime: openTime,
			Open:     at(opens, i),
			High:     at(highs, i),
			Low:      at(lows, i),
			Close:    closes[i].Float(),
			Volume:   at(volumes, i),
		}
		c.AdjClose = c.Close
		if i < len(adj) && adj[i].Type != gjson.Null {
			c.AdjClose = adj[i].Float()
		}
		out = append(out, c)
	}
	return out, nil
}

func at(vals []gjson.Result, i int) float64 {
	if i >= len(vals) {
		return 0
	}
	return vals[i].Float()
}
