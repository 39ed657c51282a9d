package config

import "strings"

// 默认值常量
const (
	defaultAppEnv            = "dev"
	defaultAppMode           = "once"
	defaultAppLogLevel       = "info"
	defaultAppLogFormat      = "text"
	defaultAppHTTPAddr       = ":9992"
	defaultDataDir           = "data"
	defaultDataSource        = "yahoo"
	defaultBinanceREST       = "https://fapi.binance.com"
	defaultYahooBase         = "https://query1.finance.yahoo.com"
	defaultFreshnessHours    = 24
	defaultRateLimitPerMin   = 600
	defaultHTTPTimeout       = 15
	defaultInterval          = "1d"
	defaultStrategy          = "golden_cross"
	defaultStrategiesPath    = "configs/strategies.yaml"
	defaultShares            = 1
	defaultMaxConcurrent     = 4
	defaultReportDir         = "data/reports"
	defaultReportFormat      = "json"
	defaultPNGTimeoutSeconds = 20
	defaultStorePath         = "data/runs.db"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Data.applyDefaults(keys)
	c.Backtest.applyDefaults(keys)
	c.Report.applyDefaults(keys)
	c.Store.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.mode", &a.Mode, defaultAppMode),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
	a.Mode = strings.ToLower(strings.TrimSpace(a.Mode))
	a.LogFormat = strings.ToLower(strings.TrimSpace(a.LogFormat))
}

func (d *DataConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("data.dir", &d.Dir, defaultDataDir),
		stringFieldDefault("data.source", &d.Source, defaultDataSource),
		stringFieldDefault("data.binance_rest", &d.BinanceREST, defaultBinanceREST),
		stringFieldDefault("data.yahoo_base", &d.YahooBase, defaultYahooBase),
		intFieldDefault("data.freshness_hours", &d.FreshnessHours, defaultFreshnessHours),
		intFieldDefault("data.rate_limit_per_min", &d.RateLimitPerMin, defaultRateLimitPerMin),
		intFieldDefault("data.http_timeout_seconds", &d.HTTPTimeoutSeconds, defaultHTTPTimeout),
	)
	d.Source = strings.ToLower(strings.TrimSpace(d.Source))
}

func (b *BacktestConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("backtest.interval", &b.Interval, defaultInterval),
		stringFieldDefault("backtest.strategy", &b.Strategy, defaultStrategy),
		stringFieldDefault("backtest.strategies_path", &b.StrategiesPath, defaultStrategiesPath),
		intFieldDefault("backtest.max_concurrent", &b.MaxConcurrent, defaultMaxConcurrent),
		fieldDefault{
			key:   "backtest.shares",
			need:  func() bool { return b.Shares == 0 },
			apply: func() { b.Shares = defaultShares },
		},
	)
}

func (r *ReportConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("report.enabled", &r.Enabled, true),
		stringFieldDefault("report.dir", &r.Dir, defaultReportDir),
		stringFieldDefault("report.format", &r.Format, defaultReportFormat),
		intFieldDefault("report.png_timeout_seconds", &r.PNGTimeoutSeconds, defaultPNGTimeoutSeconds),
	)
	r.Format = strings.ToLower(strings.TrimSpace(r.Format))
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
