package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartBody = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "9983.T"},
      "timestamp": [1262563200, 1262649600, 1262736000],
      "indicators": {
        "quote": [{
          "open":   [100, null, 102],
          "high":   [105, null, 106],
          "low":    [99, null, 101],
          "close":  [104, null, 105],
          "volume": [1000, null, 1200]
        }],
        "adjclose": [{"adjclose": [52, null, 52.5]}]
      }
    }],
    "error": null
  }
}`

func TestYahooFetch(t *testing.T) {
	var gotPath, gotInterval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		_, _ = w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	src := NewYahooSource(srv.URL, time.Second)
	bars, err := src.Fetch(context.Background(), FetchRequest{
		Symbol:   "9983.T",
		Interval: "1d",
		Start:    1262304000000,
		End:      1262822400000,
	})
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/9983.T", gotPath)
	assert.Equal(t, "1d", gotInterval)
	require.Len(t, bars, 2)
	assert.Equal(t, int64(1262563200000), bars[0].OpenTime)
	assert.Equal(t, 104.0, bars[0].Close)
	assert.Equal(t, 52.0, bars[0].AdjClose)
	assert.Equal(t, 1200.0, bars[1].Volume)
}

func TestYahooErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	_, err := NewYahooSource(srv.URL, time.Second).Fetch(context.Background(), FetchRequest{Symbol: "XXXX", Interval: "1d", Start: 0, End: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}

func TestParseChartRejectsGarbage(t *testing.T) {
	_, err := parseChart([]byte("<html>"), 0, 0)
	assert.Error(t, err)
	_, err = parseChart([]byte(`{"chart":{"result":[]}}`), 0, 0)
	assert.Error(t, err)
}

func klineRow(openTime int64, closePx string) string {
	return fmt.Sprintf(`[%d,"1","2","0.5","%s","10",%d,"0",5,"0","0","0"]`, openTime, closePx, openTime+59_999)
}

func TestBinanceFetchPagesUntilShortPage(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1m", r.URL.Query().Get("interval"))
		calls++
		rows := []string{klineRow(60_000, "1.5"), klineRow(120_000, "1.6")}
		_, _ = w.Write([]byte("[" + strings.Join(rows, ",") + "]"))
	}))
	defer srv.Close()

	src := NewBinanceSource(srv.URL, time.Second, 6000)
	bars, err := src.Fetch(context.Background(), FetchRequest{Symbol: "btc/usdt", Interval: "1m", Start: 60_000})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.Len(t, bars, 2)
	assert.Equal(t, 1.6, bars[1].Close)
	assert.Equal(t, bars[1].Close, bars[1].AdjClose)
}

func TestBinanceRejectsUnsupportedInterval(t *testing.T) {
	src := NewBinanceSource("http://127.0.0.1:0", time.Second, 0)
	_, err := src.Fetch(context.Background(), FetchRequest{Symbol: "BTCUSDT", Interval: "90m"})
	assert.Error(t, err)
}

func TestIntervals(t *testing.T) {
	keys := SupportedIntervals()
	assert.Equal(t, "1m", keys[0])
	assert.Equal(t, "3mo", keys[len(keys)-1])
	assert.Len(t, keys, 13)

	iv, err := ParseInterval(" 1WK ")
	require.NoError(t, err)
	b, err := iv.For("binance")
	require.NoError(t, err)
	assert.Equal(t, "1w", b)

	_, err = ParseInterval("4h")
	assert.Error(t, err)
}

func TestNewSource(t *testing.T) {
	src, err := New(Options{Source: "binance"})
	require.NoError(t, err)
	assert.Equal(t, "binance", src.Name())
	src, err = New(Options{})
	require.NoError(t, err)
	assert.Equal(t, "yahoo", src.Name())
	_, err = New(Options{Source: "csv"})
	assert.Error(t, err)
}
