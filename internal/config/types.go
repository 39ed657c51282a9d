package config

import "strings"

// Config 是 stockbt 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Data     DataConfig     `toml:"data"`
	Backtest BacktestConfig `toml:"backtest"`
	Report   ReportConfig   `toml:"report"`
	Store    StoreConfig    `toml:"store"`
}

type AppConfig struct {
	Env       string `toml:"env"`
	Mode      string `toml:"mode"` // once | serve | watch
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"` // text | json
	LogPath   string `toml:"log_path"`
	HTTPAddr  string `toml:"http_addr"`
}

// DataConfig 描述行情数据源与本地缓存。
type DataConfig struct {
	Dir                string `toml:"dir"`
	Source             string `toml:"source"` // yahoo | binance
	BinanceREST        string `toml:"binance_rest"`
	YahooBase          string `toml:"yahoo_base"`
	FreshnessHours     int    `toml:"freshness_hours"`
	RateLimitPerMin    int    `toml:"rate_limit_per_min"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
}

// BacktestConfig 为默认回测任务参数；HTTP/CLI 请求可逐项覆盖。
type BacktestConfig struct {
	Symbol         string   `toml:"symbol"`
	Symbols        []string `toml:"symbols"`
	Interval       string   `toml:"interval"`
	Start          string   `toml:"start"`
	End            string   `toml:"end"`
	Strategy       string   `toml:"strategy"`
	StrategiesPath string   `toml:"strategies_path"`
	Shares         float64  `toml:"shares"`
	StopLoss       *float64 `toml:"stop_loss"`   // 非空时覆盖策略预设
	TakeProfit     *float64 `toml:"take_profit"` // 非空时覆盖策略预设
	MaxConcurrent  int      `toml:"max_concurrent"`
}

// AllSymbols 返回去重后的标的列表（symbol 在前）。
func (b BacktestConfig) AllSymbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range append([]string{b.Symbol}, b.Symbols...) {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToUpper(s)] {
			continue
		}
		seen[strings.ToUpper(s)] = true
		out = append(out, s)
	}
	return out
}

// ReportConfig 控制图表与指标记录的落盘。
type ReportConfig struct {
	Enabled           bool   `toml:"enabled"`
	Dir               string `toml:"dir"`
	Format            string `toml:"format"` // json | yaml
	PNG               bool   `toml:"png"`
	PNGTimeoutSeconds int    `toml:"png_timeout_seconds"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
