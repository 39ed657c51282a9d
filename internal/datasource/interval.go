package datasource

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Interval 描述一个 K 线周期及其在各数据源中的写法；空字符串表示该源不支持。
type Interval struct {
	Key      string
	Duration time.Duration
	Yahoo    string
	Binance  string
}

const day = 24 * time.Hour

var supportedIntervals = map[string]Interval{
	"1m":  {Key: "1m", Duration: time.Minute, Yahoo: "1m", Binance: "1m"},
	"2m":  {Key: "2m", Duration: 2 * time.Minute, Yahoo: "2m"},
	"5m":  {Key: "5m", Duration: 5 * time.Minute, Yahoo: "5m", Binance: "5m"},
	"15m": {Key: "15m", Duration: 15 * time.Minute, Yahoo: "15m", Binance: "15m"},
	"30m": {Key: "30m", Duration: 30 * time.Minute, Yahoo: "30m", Binance: "30m"},
	"60m": {Key: "60m", Duration: time.Hour, Yahoo: "60m", Binance: "1h"},
	"90m": {Key: "90m", Duration: 90 * time.Minute, Yahoo: "90m"},
	"1h":  {Key: "1h", Duration: time.Hour, Yahoo: "1h", Binance: "1h"},
	"1d":  {Key: "1d", Duration: day, Yahoo: "1d", Binance: "1d"},
	"5d":  {Key: "5d", Duration: 5 * day, Yahoo: "5d"},
	"1wk": {Key: "1wk", Duration: 7 * day, Yahoo: "1wk", Binance: "1w"},
	"1mo": {Key: "1mo", Duration: 30 * day, Yahoo: "1mo", Binance: "1M"},
	"3mo": {Key: "3mo", Duration: 90 * day, Yahoo: "3mo"},
}

// ParseInterval 返回标准化周期定义。
func ParseInterval(input string) (Interval, error) {
	key := strings.ToLower(strings.TrimSpace(input))
	iv, ok := supportedIntervals[key]
	if !ok {
		return Interval{}, fmt.Errorf("不支持的周期: %s", input)
	}
	return iv, nil
}

// SupportedIntervals 返回所有支持的 key（按周期长短排序）。
func SupportedIntervals() []string {
	keys := make([]string, 0, len(supportedIntervals))
	for k := range supportedIntervals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := supportedIntervals[keys[i]], supportedIntervals[keys[j]]
		if a.Duration != b.Duration {
			return a.Duration < b.Duration
		}
		return keys[i] < keys[j]
	})
	return keys
}

// For 返回指定数据源使用的 interval 写法。
func (iv Interval) For(source string) (string, error) {
	var out string
	switch source {
	case "binance":
		out = iv.Binance
	default:
		out = iv.Yahoo
	}
	if out == "" {
		return "", fmt.Errorf("%s 不支持周期 %s", source, iv.Key)
	}
	return out, nil
}
