package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"stockbt/internal/app"
	"stockbt/internal/config"
	"stockbt/internal/logger"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "主配置路径（默认读取 STOCKBT_CONFIG 或 configs/config.yaml）")
		mode     = flag.String("mode", "", "运行模式 once|serve|watch，覆盖 app.mode")
		strategy = flag.String("strategy", "", "策略名称，覆盖 backtest.strategy")
		symbol   = flag.String("symbol", "", "标的代码，覆盖 backtest.symbol 并忽略 symbols 列表")
	)
	flag.Parse()

	path := strings.TrimSpace(*cfgPath)
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	applyFlags(cfg, *mode, *strategy, *symbol)

	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("初始化日志文件失败: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetFormat(cfg.App.LogFormat)
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ 配置加载成功（环境=%s，模式=%s）", cfg.App.Env, cfg.App.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(cfg, app.WithConfigPath(path))
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}
	if err := a.Run(ctx); err != nil {
		log.Fatalf("运行失败: %v", err)
	}
}

func applyFlags(cfg *config.Config, mode, strategy, symbol string) {
	if m := strings.ToLower(strings.TrimSpace(mode)); m != "" {
		cfg.App.Mode = m
	}
	if s := strings.TrimSpace(strategy); s != "" {
		cfg.Backtest.Strategy = s
	}
	if s := strings.TrimSpace(symbol); s != "" {
		cfg.Backtest.Symbol = s
		cfg.Backtest.Symbols = nil
	}
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
