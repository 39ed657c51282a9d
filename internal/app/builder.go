package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stockbt/internal/backtest"
	"stockbt/internal/cache"
	"stockbt/internal/config"
	"stockbt/internal/datasource"
	"stockbt/internal/logger"
	"stockbt/internal/report"
	"stockbt/internal/store"
	"stockbt/internal/store/gormstore"
	"stockbt/internal/strategy"
	backtesthttp "stockbt/internal/transport/http/backtest"
)

// CandleCacheFile 为行情缓存库在 data.dir 下的文件名。
const CandleCacheFile = "candles.db"

type AppBuilder struct {
	cfg        *config.Config
	configPath string

	sourceFn   func(config.DataConfig) (datasource.CandleSource, error)
	runStoreFn func(config.StoreConfig) (store.RunStore, error)
}

type AppBuilderOption func(*AppBuilder)

// WithConfigPath 记录主配置路径，watch 模式据此监听配置变化。
func WithConfigPath(path string) AppBuilderOption {
	return func(b *AppBuilder) { b.configPath = path }
}

// WithCandleSource 替换远端数据源，主要用于测试。
func WithCandleSource(src datasource.CandleSource) AppBuilderOption {
	return func(b *AppBuilder) {
		b.sourceFn = func(config.DataConfig) (datasource.CandleSource, error) { return src, nil }
	}
}

// WithRunStore 替换运行历史存储。
func WithRunStore(rs store.RunStore) AppBuilderOption {
	return func(b *AppBuilder) {
		b.runStoreFn = func(config.StoreConfig) (store.RunStore, error) { return rs, nil }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		sourceFn:   buildCandleSource,
		runStoreFn: buildRunStore,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	var closers []func() error
	fail := func(err error) (*App, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	source, err := b.sourceFn(cfg.Data)
	if err != nil {
		return fail(err)
	}
	candleStore, err := cache.OpenStore(filepath.Join(cfg.Data.Dir, CandleCacheFile))
	if err != nil {
		return fail(fmt.Errorf("open candle cache: %w", err))
	}
	closers = append(closers, candleStore.Close)
	provider, err := cache.NewProvider(candleStore, source, time.Duration(cfg.Data.FreshnessHours)*time.Hour)
	if err != nil {
		return fail(err)
	}

	registry, err := strategy.NewRegistry(resolvePresetPath(cfg.Backtest.StrategiesPath), strategy.DefaultHandlers())
	if err != nil {
		return fail(fmt.Errorf("load strategies: %w", err))
	}

	runs, err := b.runStoreFn(cfg.Store)
	if err != nil {
		return fail(fmt.Errorf("open run store: %w", err))
	}
	closers = append(closers, runs.Close)

	var writer *report.Writer
	if cfg.Report.Enabled {
		writer = report.NewWriter(report.Options{
			Dir:        cfg.Report.Dir,
			Format:     cfg.Report.Format,
			PNG:        cfg.Report.PNG,
			PNGTimeout: time.Duration(cfg.Report.PNGTimeoutSeconds) * time.Second,
		})
	}

	runner, err := backtest.NewRunner(backtest.RunnerParams{
		Loader:   provider,
		Registry: registry,
		Writer:   writer,
		Runs:     runs,
		Source:   source.Name(),
		Defaults: cfg.Backtest,
	})
	if err != nil {
		return fail(err)
	}

	httpSrv, err := backtesthttp.NewServer(backtesthttp.Config{
		Addr:     cfg.App.HTTPAddr,
		Runner:   runner,
		Registry: registry,
		Runs:     runs,
	})
	if err != nil {
		return fail(err)
	}

	return &App{
		cfg:        cfg,
		configPath: b.configPath,
		runner:     runner,
		registry:   registry,
		runs:       runs,
		http:       httpSrv,
		closers:    closers,
		Summary:    buildStartupSummary(cfg, source.Name(), registry.Names()),
	}, nil
}

func buildCandleSource(cfg config.DataConfig) (datasource.CandleSource, error) {
	return datasource.New(datasource.Options{
		Source:          cfg.Source,
		BinanceREST:     cfg.BinanceREST,
		YahooBase:       cfg.YahooBase,
		RateLimitPerMin: cfg.RateLimitPerMin,
		HTTPTimeout:     time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
	})
}

func buildRunStore(cfg config.StoreConfig) (store.RunStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return store.NewMemoryRunStore(), nil
	}
	return gormstore.NewGormStore(path)
}

// resolvePresetPath 在预设文件不存在时回退为内置预设。
func resolvePresetPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Warnf("strategy presets %s not found, using builtin presets", path)
		return ""
	}
	return path
}
