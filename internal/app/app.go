package app

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"stockbt/internal/backtest"
	"stockbt/internal/config"
	"stockbt/internal/logger"
	"stockbt/internal/store"
	"stockbt/internal/strategy"
	backtesthttp "stockbt/internal/transport/http/backtest"
)

// 运行模式。
const (
	ModeOnce  = "once"
	ModeServe = "serve"
	ModeWatch = "watch"
)

// App 负责应用级编排：加载配置→初始化依赖→按模式执行回测或提供服务。
type App struct {
	cfg        *config.Config
	configPath string
	runner     *backtest.Runner
	registry   *strategy.Registry
	runs       store.RunStore
	http       *backtesthttp.Server
	closers    []func() error

	Summary *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config, opts ...AppBuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg, opts)
}

// Run 按 app.mode 执行，返回前释放所有存储。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil || a.runner == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.Close()

	if a.Summary != nil {
		a.Summary.Print()
	}

	switch mode := strings.ToLower(strings.TrimSpace(a.cfg.App.Mode)); mode {
	case "", ModeOnce:
		_, err := a.runner.RunAll(ctx, a.runner.Requests())
		return err
	case ModeServe:
		return a.http.Start(ctx)
	case ModeWatch:
		return a.watch(ctx)
	default:
		return fmt.Errorf("unknown mode: %s", mode)
	}
}

// Runner 暴露回测执行器。
func (a *App) Runner() *backtest.Runner {
	if a == nil {
		return nil
	}
	return a.runner
}

// Close 释放存储连接，可重复调用。
func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warnf("close failed: %v", err)
		}
	}
	a.closers = nil
}

// watch 先完整跑一轮，然后在策略预设或主配置变化后重跑；同时提供 HTTP 查询。
func (a *App) watch(ctx context.Context) error {
	log := logger.Named("watch")
	trigger := make(chan string, 1)
	notify := func(reason string) {
		select {
		case trigger <- reason:
		default:
		}
	}

	a.registry.OnChange(func(snap strategy.Snapshot) {
		notify(fmt.Sprintf("strategies v%d", snap.Version))
	})
	if err := a.registry.Watch(); err != nil {
		return fmt.Errorf("watch strategies: %w", err)
	}
	if a.configPath != "" {
		if err := config.Watch(ctx, a.configPath, func(cfg *config.Config) {
			a.runner.SetDefaults(cfg.Backtest)
			notify("config")
		}); err != nil {
			return err
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.http.Start(ctx)
	})
	group.Go(func() error {
		a.rerun(ctx, "startup")
		for {
			select {
			case <-ctx.Done():
				return nil
			case reason := <-trigger:
				log.Infof("change detected (%s), rerunning", reason)
				a.rerun(ctx, reason)
			}
		}
	})
	return group.Wait()
}

// rerun 的失败只记录日志，watch 循环继续等待下一次变化。
func (a *App) rerun(ctx context.Context, reason string) {
	if _, err := a.runner.RunAll(ctx, a.runner.Requests()); err != nil && ctx.Err() == nil {
		logger.Warnf("[watch] run after %s failed: %v", reason, err)
	}
}
