package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Data.validate(); err != nil {
		return err
	}
	if err := c.Backtest.validate(); err != nil {
		return err
	}
	if err := c.Report.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch a.Mode {
	case "once", "serve", "watch":
	default:
		return fmt.Errorf("app.mode must be one of once/serve/watch, got %q", a.Mode)
	}
	switch a.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json, got %q", a.LogFormat)
	}
	if a.Mode == "serve" && strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr is required in serve mode")
	}
	return nil
}

func (d *DataConfig) validate() error {
	switch d.Source {
	case "yahoo", "binance":
	default:
		return fmt.Errorf("data.source must be yahoo or binance, got %q", d.Source)
	}
	if d.FreshnessHours < 0 {
		return fmt.Errorf("data.freshness_hours must be >= 0")
	}
	return nil
}

func (b *BacktestConfig) validate() error {
	if b.Shares <= 0 {
		return fmt.Errorf("backtest.shares must be > 0")
	}
	if b.StopLoss != nil && *b.StopLoss < 0 {
		return fmt.Errorf("backtest.stop_loss must be >= 0")
	}
	if b.TakeProfit != nil && *b.TakeProfit < 0 {
		return fmt.Errorf("backtest.take_profit must be >= 0")
	}
	if b.MaxConcurrent < 0 {
		return fmt.Errorf("backtest.max_concurrent must be >= 0")
	}
	return nil
}

func (r *ReportConfig) validate() error {
	switch r.Format {
	case "json", "yaml":
		return nil
	default:
		return fmt.Errorf("report.format must be json or yaml, got %q", r.Format)
	}
}
