package market

import (
	"fmt"
	"math"
	"strings"
)

type Candles []Candle

// TimeString 用于日志与图表坐标轴。
func (c Candle) TimeString() string {
	if c.OpenTime <= 0 {
		return "-"
	}
	return c.Time().Format("2006-01-02 15:04")
}

// Closes 抽取收盘价序列，供指标计算使用。
func (cs Candles) Closes() []float64 { return cs.column(func(c Candle) float64 { return c.Close }) }

func (cs Candles) Opens() []float64 { return cs.column(func(c Candle) float64 { return c.Open }) }

func (cs Candles) Highs() []float64 { return cs.column(func(c Candle) float64 { return c.High }) }

func (cs Candles) Lows() []float64 { return cs.column(func(c Candle) float64 { return c.Low }) }

func (cs Candles) Volumes() []float64 { return cs.column(func(c Candle) float64 { return c.Volume }) }

// Column 按名称取序列：O/H/L/C/AC/V（大小写不敏感），未知名称回退到收盘价。
func (cs Candles) Column(name string) []float64 {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "O", "OPEN":
		return cs.Opens()
	case "H", "HIGH":
		return cs.Highs()
	case "L", "LOW":
		return cs.Lows()
	case "AC", "ADJ_CLOSE", "ADJCLOSE":
		return cs.column(func(c Candle) float64 { return c.AdjClose })
	case "V", "VOLUME":
		return cs.Volumes()
	default:
		return cs.Closes()
	}
}

func (cs Candles) column(pick func(Candle) float64) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = pick(c)
	}
	return out
}

// Snapshot 生成一行简要描述（首尾时间、区间涨跌与高低点）。
func (cs Candles) Snapshot(interval string) string {
	if len(cs) == 0 {
		return ""
	}
	first := cs[0]
	last := cs[len(cs)-1]
	base := first.Close
	if base == 0 {
		base = first.Open
	}
	low := math.MaxFloat64
	high := -math.MaxFloat64
	for _, bar := range cs {
		if bar.Low < low {
			low = bar.Low
		}
		if bar.High > high {
			high = bar.High
		}
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("bars=%d %s→%s close=%.4f", len(cs), first.TimeString(), last.TimeString(), last.Close))
	iv := strings.TrimSpace(interval)
	if iv == "" {
		iv = "window"
	}
	if base != 0 {
		sb.WriteString(fmt.Sprintf(" (%+.2f%%/%s)", (last.Close-base)/base*100, iv))
	}
	sb.WriteString(fmt.Sprintf(" range=%.4f–%.4f", low, high))
	return sb.String()
}
