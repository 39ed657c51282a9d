package report

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"stockbt/internal/engine"
	"stockbt/internal/market"
	"stockbt/internal/metrics"
)

// HistogramBins 为收益率直方图的分箱数。
const HistogramBins = 50

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorClose         = "#3b82f6"
	colorEquity        = "#34d399"
	colorHist          = "#a78bfa"
	colorAverage       = "#f87171"
	colorLong          = "#34d399"
	colorShort         = "#f87171"

	chartWidthPx  = 1400
	chartHeightPx = 360
)

// Input 为一次回测的图表与记录输入。
type Input struct {
	Symbol   string
	Interval string
	Start    string
	End      string
	Strategy string
	Candles  market.Candles
	Result   engine.Result
	Summary  metrics.Summary
}

// RenderHTML 生成三段式页面：收盘价、权益曲线、收益率分布。
func RenderHTML(in Input) ([]byte, error) {
	if len(in.Candles) == 0 {
		return nil, fmt.Errorf("no candles for %s", in.Symbol)
	}
	xAxis := make([]string, len(in.Candles))
	for i, c := range in.Candles {
		xAxis[i] = c.TimeString()
	}
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("%s %s backtest", strings.ToUpper(in.Symbol), in.Interval)
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(
		closeChart(in, xAxis),
		equityChart(in, xAxis),
		returnHistogram(in.Summary),
	)
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func initOpts() opts.Initialization {
	return opts.Initialization{
		Theme:           types.ThemeWesteros,
		Width:           fmt.Sprintf("%dpx", chartWidthPx),
		Height:          fmt.Sprintf("%dpx", chartHeightPx),
		BackgroundColor: colorBackground,
	}
}

func axisOpts() (opts.XAxis, opts.YAxis) {
	return opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}, opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}
}

func title(text, sub string) opts.Title {
	return opts.Title{
		Title:         text,
		Subtitle:      sub,
		Left:          "left",
		TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 16},
		SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
	}
}

func closeChart(in Input, xAxis []string) *charts.Line {
	x, y := axisOpts()
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(title(
			fmt.Sprintf("%s %s close", strings.ToUpper(in.Symbol), in.Interval),
			fmt.Sprintf("%s | %s ~ %s", in.Strategy, in.Start, in.End),
		)),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(x),
		charts.WithYAxisOpts(y),
	)
	closes := in.Candles.Closes()
	line.SetXAxis(xAxis)
	line.AddSeries("Close", toLineData(closes),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorClose, Width: 1}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithMarkPointNameCoordItemOpts(entryMarks(in.Result.Trades, xAxis)...),
	)
	return line
}

// entryMarks 在开仓 bar 标注多空方向。
func entryMarks(trades []engine.Trade, xAxis []string) []opts.MarkPointNameCoordItem {
	out := make([]opts.MarkPointNameCoordItem, 0, len(trades))
	for _, tr := range trades {
		if tr.EntryBar < 0 || tr.EntryBar >= len(xAxis) {
			continue
		}
		color, symbol := colorLong, "triangle"
		if tr.Direction == engine.Short {
			color, symbol = colorShort, "pin"
		}
		out = append(out, opts.MarkPointNameCoordItem{
			Name:       tr.Direction.String(),
			Coordinate: []interface{}{xAxis[tr.EntryBar], tr.EntryPrice},
			Symbol:     symbol,
			SymbolSize: 10,
			ItemStyle:  &opts.ItemStyle{Color: color},
		})
	}
	return out
}

func equityChart(in Input, xAxis []string) *charts.Line {
	x, y := axisOpts()
	s := in.Summary
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(title("Equity", fmt.Sprintf("profit %.3f | trades %d | mdd %.3f | sharpe %s",
			s.NetProfit, s.Trades, s.MaxDrawdown, s.SharpeRatio))),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(x),
		charts.WithYAxisOpts(y),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("Equity", toLineData(s.EquityCurve),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.15)}),
	)
	return line
}

// returnHistogram 为逐笔收益率（%）的分布，并以竖线标出平均值。
func returnHistogram(s metrics.Summary) *charts.Bar {
	x, y := axisOpts()
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(title("Return rate (%)", fmt.Sprintf("average %s", s.AverageReturn))),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(x),
		charts.WithYAxisOpts(y),
	)
	bins := Histogram(s.ReturnRates, HistogramBins)
	labels := make([]string, len(bins))
	data := make([]opts.BarData, len(bins))
	for i, b := range bins {
		labels[i] = fmt.Sprintf("%.2f", (b.Lo+b.Hi)/2)
		data[i] = opts.BarData{Value: b.Count}
	}
	bar.SetXAxis(labels)
	seriesOpts := []charts.SeriesOpts{
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorHist}),
		charts.WithBarChartOpts(opts.BarChart{BarCategoryGap: "0%"}),
	}
	if avg, err := s.AverageReturn.Get(); err == nil && len(bins) > 0 {
		idx := averageBin(bins, avg)
		seriesOpts = append(seriesOpts,
			charts.WithMarkLineNameXAxisItemOpts(opts.MarkLineNameXAxisItem{Name: "average", XAxis: labels[idx]}),
			charts.WithMarkLineStyleOpts(opts.MarkLineStyle{Symbol: []string{"none", "none"}, LineStyle: &opts.LineStyle{Color: colorAverage, Width: 2}}),
		)
	}
	bar.AddSeries("Trades", data, seriesOpts...)
	return bar
}

func averageBin(bins []Bin, avg float64) int {
	for i, b := range bins {
		if avg < b.Hi {
			return i
		}
	}
	return len(bins) - 1
}

func toLineData(series []float64) []opts.LineData {
	out := make([]opts.LineData, len(series))
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = opts.LineData{Value: nil}
			continue
		}
		out[i] = opts.LineData{Value: metrics.Round(v, 4)}
	}
	return out
}
