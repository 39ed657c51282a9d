// Package backtest 串联行情、策略、引擎、指标与报表，完成一次完整回测。
package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stockbt/internal/cache"
	"stockbt/internal/config"
	"stockbt/internal/datasource"
	"stockbt/internal/engine"
	"stockbt/internal/logger"
	"stockbt/internal/market"
	"stockbt/internal/metrics"
	"stockbt/internal/report"
	"stockbt/internal/store"
	"stockbt/internal/strategy"
)

// ErrInvalidRequest 标记由请求参数导致的失败。
var ErrInvalidRequest = errors.New("invalid backtest request")

// CandleLoader 提供回测所需的 K 线，cache.Provider 为默认实现。
type CandleLoader interface {
	Load(ctx context.Context, q cache.Query) (market.Candles, cache.Range, error)
}

// Runner 执行回测并记录运行历史。
type Runner struct {
	loader   CandleLoader
	registry *strategy.Registry
	writer   *report.Writer
	runs     store.RunStore
	source   string

	mu       sync.RWMutex
	defaults config.BacktestConfig

	now func() time.Time
	log logger.Component
}

// RunnerParams 聚合 Runner 的依赖；Writer 与 Runs 可为空。
type RunnerParams struct {
	Loader   CandleLoader
	Registry *strategy.Registry
	Writer   *report.Writer
	Runs     store.RunStore
	Source   string
	Defaults config.BacktestConfig
}

func NewRunner(p RunnerParams) (*Runner, error) {
	if p.Loader == nil {
		return nil, fmt.Errorf("candle loader is required")
	}
	if p.Registry == nil {
		return nil, fmt.Errorf("strategy registry is required")
	}
	return &Runner{
		loader:   p.Loader,
		registry: p.Registry,
		writer:   p.Writer,
		runs:     p.Runs,
		source:   p.Source,
		defaults: p.Defaults,
		now:      time.Now,
		log:      logger.Named("backtest"),
	}, nil
}

// Strategies 返回当前可用的策略名称。
func (r *Runner) Strategies() []string {
	return r.registry.Names()
}

// Run 执行一次回测。加载行情之后的失败也会写入一条 failed 记录。
func (r *Runner) Run(ctx context.Context, req RunRequest) (Outcome, error) {
	req = r.withDefaults(req)
	if err := validateRequest(req); err != nil {
		return Outcome{}, err
	}
	started := r.now()

	candles, rg, err := r.loader.Load(ctx, cache.Query{
		Symbol:   req.Symbol,
		Interval: req.Interval,
		Start:    req.Start,
		End:      req.End,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("load %s: %w", req.Symbol, err)
	}

	run := store.RunRecord{
		ID:        uuid.NewString(),
		Symbol:    req.Symbol,
		Interval:  req.Interval,
		Strategy:  req.Strategy,
		Source:    r.source,
		Start:     rg.Start,
		End:       rg.End,
		Bars:      len(candles),
		Params:    encodeParams(req),
		CreatedAt: started.UnixMilli(),
	}

	out, err := r.simulate(ctx, req, rg, candles)
	run.DurationMs = r.now().Sub(started).Milliseconds()
	if err != nil {
		run.Status = store.RunStatusFailed
		run.Error = err.Error()
		r.persist(ctx, run, nil)
		r.log.Warnf("%s %s %s failed: %v", req.Symbol, req.Interval, req.Strategy, err)
		return Outcome{Run: run}, err
	}

	run.Status = store.RunStatusDone
	run.Trades = out.Summary.Trades
	run.NetProfit = metrics.Round(out.Summary.NetProfit, metrics.RatioPlaces)
	run.MaxDrawdown = metrics.Round(out.Summary.MaxDrawdown, metrics.RatioPlaces)
	if raw, err := json.Marshal(out.Record); err == nil {
		run.Metrics = raw
	}
	if out.Artifacts != (report.Artifacts{}) {
		if raw, err := json.Marshal(out.Artifacts); err == nil {
			run.Artifacts = raw
		}
	}
	out.Trades = tradeRecords(run.ID, candles, out.Result.Trades)
	out.Run = run
	if err := r.persist(ctx, run, out.Trades); err != nil {
		return out, err
	}
	r.log.Infof("%s %s %s [%s,%s) bars=%d trades=%d net=%.3f",
		req.Symbol, req.Interval, req.Strategy, rg.Start, rg.End, len(candles), run.Trades, run.NetProfit)
	logger.InfoBlock(FormatSummary(out.Summary))
	return out, nil
}

// RunAll 并发执行多次回测，并发度受 max_concurrent 限制；任一失败即返回该错误。
func (r *Runner) RunAll(ctx context.Context, reqs []RunRequest) ([]Outcome, error) {
	out := make([]Outcome, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	limit := r.Defaults().MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := r.Run(gctx, req)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

// Requests 按配置中的 symbol 列表生成请求。
func (r *Runner) Requests() []RunRequest {
	symbols := r.Defaults().AllSymbols()
	reqs := make([]RunRequest, 0, len(symbols))
	for _, sym := range symbols {
		reqs = append(reqs, RunRequest{Symbol: sym})
	}
	return reqs
}

// SetDefaults 在配置热更新后替换默认值。
func (r *Runner) SetDefaults(cfg config.BacktestConfig) {
	r.mu.Lock()
	r.defaults = cfg
	r.mu.Unlock()
}

// Defaults 返回当前生效的默认值。
func (r *Runner) Defaults() config.BacktestConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults
}

func (r *Runner) simulate(ctx context.Context, req RunRequest, rg cache.Range, candles market.Candles) (Outcome, error) {
	plan, err := r.registry.Build(req.Strategy, candles, strategy.Overrides{
		Params:     req.Params,
		Direction:  req.Direction,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Shares:     req.Shares,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	res, err := engine.Simulate(engine.PricesFromCandles(candles), plan.Signals, plan.Risk)
	if err != nil {
		return Outcome{}, err
	}
	summary := metrics.Aggregate(res)
	out := Outcome{Summary: summary, Record: summary.Record(), Result: res}
	if r.writer != nil && !req.NoReport {
		arts, err := r.writer.Write(ctx, report.Input{
			Symbol:   req.Symbol,
			Interval: req.Interval,
			Start:    rg.Start,
			End:      rg.End,
			Strategy: req.Strategy,
			Candles:  candles,
			Result:   res,
			Summary:  summary,
		})
		if err != nil {
			return Outcome{}, fmt.Errorf("write report: %w", err)
		}
		out.Artifacts = arts
	}
	return out, nil
}

func (r *Runner) persist(ctx context.Context, run store.RunRecord, trades []store.TradeRecord) error {
	if r.runs == nil {
		return nil
	}
	if err := r.runs.InsertRun(ctx, run, trades); err != nil {
		r.log.Errorf("save run %s failed: %v", run.ID, err)
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (r *Runner) withDefaults(req RunRequest) RunRequest {
	def := r.Defaults()
	req.Symbol = strings.TrimSpace(req.Symbol)
	if req.Symbol == "" {
		req.Symbol = def.Symbol
	}
	if strings.TrimSpace(req.Interval) == "" {
		req.Interval = def.Interval
	}
	if strings.TrimSpace(req.Start) == "" {
		req.Start = def.Start
	}
	if strings.TrimSpace(req.End) == "" {
		req.End = def.End
	}
	if strings.TrimSpace(req.Strategy) == "" {
		req.Strategy = def.Strategy
	}
	if req.Shares == 0 {
		req.Shares = def.Shares
	}
	if req.StopLoss == nil {
		req.StopLoss = def.StopLoss
	}
	if req.TakeProfit == nil {
		req.TakeProfit = def.TakeProfit
	}
	return req
}

func validateRequest(req RunRequest) error {
	if req.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}
	if _, err := datasource.ParseInterval(req.Interval); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for _, d := range []string{req.Start, req.End} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(cache.DateLayout, d); err != nil {
			return fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidRequest, d)
		}
	}
	if req.Shares < 0 {
		return fmt.Errorf("%w: shares must be positive", ErrInvalidRequest)
	}
	return nil
}

func encodeParams(req RunRequest) json.RawMessage {
	payload := map[string]any{"shares": req.Shares}
	if len(req.Params) > 0 {
		payload["params"] = req.Params
	}
	if req.Direction != "" {
		payload["direction"] = req.Direction
	}
	if req.StopLoss != nil {
		payload["stop_loss"] = *req.StopLoss
	}
	if req.TakeProfit != nil {
		payload["take_profit"] = *req.TakeProfit
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return raw
}

func tradeRecords(runID string, candles market.Candles, trades []engine.Trade) []store.TradeRecord {
	out := make([]store.TradeRecord, 0, len(trades))
	for i, t := range trades {
		out = append(out, store.TradeRecord{
			RunID:      runID,
			Seq:        i + 1,
			Direction:  t.Direction.String(),
			EntryBar:   t.EntryBar,
			ExitBar:    t.ExitBar,
			EntryTime:  barTime(candles, t.EntryBar),
			ExitTime:   barTime(candles, t.ExitBar),
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			PnL:        t.PnL,
			ReturnRate: t.ReturnRate,
			Reason:     string(t.Reason),
		})
	}
	return out
}

func barTime(candles market.Candles, i int) int64 {
	if i < 0 || i >= len(candles) {
		return 0
	}
	return candles[i].OpenTime
}
