package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
backtest:
  symbol: "7203.T"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "once", cfg.App.Mode)
	assert.Equal(t, "text", cfg.App.LogFormat)
	assert.Equal(t, "yahoo", cfg.Data.Source)
	assert.Equal(t, 24, cfg.Data.FreshnessHours)
	assert.Equal(t, "1d", cfg.Backtest.Interval)
	assert.Equal(t, "golden_cross", cfg.Backtest.Strategy)
	assert.Equal(t, 1.0, cfg.Backtest.Shares)
	assert.Nil(t, cfg.Backtest.StopLoss)
	assert.True(t, cfg.Report.Enabled)
	assert.Equal(t, "json", cfg.Report.Format)
	assert.Equal(t, "data/runs.db", cfg.Store.Path)
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
report:
  enabled: false
  format: YAML
backtest:
  shares: 100
  stop_loss: 0
  take_profit: 12.5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Report.Enabled)
	assert.Equal(t, "yaml", cfg.Report.Format)
	assert.Equal(t, 100.0, cfg.Backtest.Shares)
	require.NotNil(t, cfg.Backtest.StopLoss)
	assert.Equal(t, 0.0, *cfg.Backtest.StopLoss)
	require.NotNil(t, cfg.Backtest.TakeProfit)
	assert.Equal(t, 12.5, *cfg.Backtest.TakeProfit)
}

func TestLoadIncludeChain(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
data:
  source: binance
backtest:
  symbol: BTCUSDT
  interval: 1h
`)
	path := writeFile(t, dir, "config.yaml", `
include: base.yaml
backtest:
  interval: 15m
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "binance", cfg.Data.Source)
	assert.Equal(t, "BTCUSDT", cfg.Backtest.Symbol)
	assert.Equal(t, "15m", cfg.Backtest.Interval)
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	path := writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"mode":       "app:\n  mode: daemon\n",
		"log_format": "app:\n  log_format: logfmt\n",
		"source":     "data:\n  source: csv\n",
		"shares":     "backtest:\n  shares: -1\n",
		"sl":         "backtest:\n  stop_loss: -3\n",
		"format":     "report:\n  format: xml\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestAllSymbolsDedup(t *testing.T) {
	b := BacktestConfig{Symbol: "AAPL", Symbols: []string{"aapl", " MSFT ", ""}}
	assert.Equal(t, []string{"AAPL", "MSFT"}, b.AllSymbols())
}
