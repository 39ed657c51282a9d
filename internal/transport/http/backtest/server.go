// Package backtesthttp 通过 gin 暴露回测运行与历史查询接口。
package backtesthttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"stockbt/internal/backtest"
	"stockbt/internal/logger"
	"stockbt/internal/store"
	"stockbt/internal/strategy"
)

// Server 提供回测相关的 HTTP API。
type Server struct {
	addr     string
	runner   *backtest.Runner
	registry *strategy.Registry
	runs     store.RunStore
	router   *gin.Engine
	log      logger.Component
}

// Config 描述回测 HTTP Server 的依赖。
type Config struct {
	Addr     string
	Runner   *backtest.Runner
	Registry *strategy.Registry
	Runs     store.RunStore
}

// NewServer 构建回测 HTTP Server。
func NewServer(cfg Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New("runner 不能为空")
	}
	if cfg.Registry == nil {
		return nil, errors.New("strategy registry 不能为空")
	}
	if cfg.Runs == nil {
		return nil, errors.New("run store 不能为空")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9992"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:     cfg.Addr,
		runner:   cfg.Runner,
		registry: cfg.Registry,
		runs:     cfg.Runs,
		router:   router,
		log:      logger.Named("http"),
	}
	s.registerRoutes()
	return s, nil
}

// Handler 返回底层 gin 引擎，便于测试。
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	api := s.router.Group("/api/backtest")
	api.POST("/runs", s.handleRunStart)
	api.GET("/runs", s.handleRunList)
	api.GET("/runs/:id", s.handleRunDetail)
	api.GET("/runs/:id/trades", s.handleRunTrades)
	api.GET("/strategies", s.handleStrategies)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleRunStart(c *gin.Context) {
	var req backtest.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := s.runner.Run(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, backtest.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		body := gin.H{"error": err.Error()}
		if out.Run.ID != "" {
			body["run"] = out.Run
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"run":       out.Run,
		"metrics":   out.Record,
		"trades":    out.Trades,
		"artifacts": out.Artifacts,
	})
}

func (s *Server) handleRunList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := s.runs.ListRuns(c.Request.Context(), store.RunFilter{
		Symbol:   c.Query("symbol"),
		Strategy: c.Query("strategy"),
		Limit:    limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunDetail(c *gin.Context) {
	run, err := s.runs.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (s *Server) handleRunTrades(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.runs.GetRun(c.Request.Context(), id); err != nil {
		s.writeLookupError(c, err)
		return
	}
	trades, err := s.runs.ListTrades(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleStrategies(c *gin.Context) {
	snap := s.registry.Snapshot()
	presets := make([]strategy.Preset, 0, len(snap.Presets))
	for _, name := range s.registry.Names() {
		if p, ok := s.registry.Preset(name); ok {
			presets = append(presets, p)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"version":    snap.Version,
		"loaded_at":  snap.LoadedAt,
		"strategies": presets,
	})
}

func (s *Server) writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// Start 启动 HTTP 服务，阻塞直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}
