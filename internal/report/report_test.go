package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"stockbt/internal/engine"
	"stockbt/internal/market"
	"stockbt/internal/metrics"
)

func sampleInput(t *testing.T) Input {
	t.Helper()
	candles := market.Candles{}
	closes := []float64{10, 11, 12, 11, 13, 12, 14}
	for i, c := range closes {
		candles = append(candles, market.Candle{OpenTime: int64(i+1) * 86_400_000, Open: c, High: c, Low: c, Close: c})
	}
	p := engine.PricesFromCandles(candles)
	sig := engine.NewSignals(len(candles))
	sig.BuyEntry[0] = true
	sig.SellEntry[3] = true
	res, err := engine.Simulate(p, sig, engine.RiskParams{Shares: 1})
	require.NoError(t, err)
	return Input{
		Symbol:   "9983.T",
		Interval: "1d",
		Start:    "2020-01-01",
		End:      "2020-02-01",
		Strategy: "golden_cross",
		Candles:  candles,
		Result:   res,
		Summary:  metrics.Aggregate(res),
	}
}

func TestHistogram(t *testing.T) {
	bins := Histogram([]float64{0, 1, 2, 3, 4}, 2)
	require.Len(t, bins, 2)
	assert.Equal(t, 2, bins[0].Count)
	assert.Equal(t, 3, bins[1].Count, "upper edge is inclusive")
	assert.Equal(t, 4.0, bins[1].Hi)

	flat := Histogram([]float64{5, 5}, 4)
	require.Len(t, flat, 4)
	assert.Equal(t, 4.5, flat[0].Lo)
	assert.Equal(t, 5.5, flat[3].Hi)
	total := 0
	for _, b := range flat {
		total += b.Count
	}
	assert.Equal(t, 2, total)

	assert.Nil(t, Histogram(nil, 50))
}

func TestEncodeRecordKeepsKeyOrder(t *testing.T) {
	in := sampleInput(t)

	raw, err := EncodeRecord(in.Summary, "json")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Len(t, decoded, len(metrics.RecordKeys))
	text := string(raw)
	prev := -1
	for _, key := range metrics.RecordKeys {
		pos := strings.Index(text, `"`+key+`"`)
		require.GreaterOrEqual(t, pos, 0, key)
		assert.Greater(t, pos, prev, key)
		prev = pos
	}

	raw, err = EncodeRecord(in.Summary, "yaml")
	require.NoError(t, err)
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal(raw, &node))
	mapping := node.Content[0]
	require.Len(t, mapping.Content, 2*len(metrics.RecordKeys))
	for i, key := range metrics.RecordKeys {
		assert.Equal(t, key, mapping.Content[2*i].Value)
	}

	_, err = EncodeRecord(in.Summary, "xml")
	assert.Error(t, err)
}

func TestEncodeRecordUndefinedIsNull(t *testing.T) {
	raw, err := EncodeRecord(metrics.Aggregate(engine.Result{}), "json")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Nil(t, decoded[metrics.KeySharpeRatio])
	assert.Equal(t, 0.0, decoded[metrics.KeyTotalTrades])
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(sampleInput(t))
	require.NoError(t, err)
	body := string(html)
	assert.Contains(t, body, "echarts")
	assert.Contains(t, body, "Equity")
	assert.Contains(t, body, "Return rate")

	_, err = RenderHTML(Input{Symbol: "X"})
	assert.Error(t, err)
}

func TestWriterArtifacts(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(Options{Dir: dir, Format: "YAML"})
	out, err := w.Write(context.Background(), sampleInput(t))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "9983.T-2020-01-01-2020-02-01.yaml"), out.Record)
	assert.Equal(t, filepath.Join(dir, "9983.T-2020-01-01-2020-02-01.html"), out.HTML)
	assert.Empty(t, out.PNG)
	for _, p := range []string{out.Record, out.HTML} {
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
}

func TestSanitizeSymbol(t *testing.T) {
	assert.Equal(t, "BTC_USDT", sanitize(" BTC/USDT "))
}
