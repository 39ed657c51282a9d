package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"stockbt/internal/config"
)

type StartupSummary struct {
	Mode       string
	Source     string
	Symbols    []string
	Interval   string
	Range      string
	Strategy   string
	Strategies []string
	ReportDir  string
	StorePath  string
	HTTPAddr   string
}

func buildStartupSummary(cfg *config.Config, source string, strategies []string) *StartupSummary {
	s := &StartupSummary{
		Mode:       cfg.App.Mode,
		Source:     source,
		Symbols:    cfg.Backtest.AllSymbols(),
		Interval:   cfg.Backtest.Interval,
		Range:      fmt.Sprintf("%s ~ %s", orDash(cfg.Backtest.Start), orDash(cfg.Backtest.End)),
		Strategy:   cfg.Backtest.Strategy,
		Strategies: strategies,
		StorePath:  cfg.Store.Path,
	}
	if cfg.Report.Enabled {
		s.ReportDir = cfg.Report.Dir
	}
	if cfg.App.Mode == ModeServe || cfg.App.Mode == ModeWatch {
		s.HTTPAddr = cfg.App.HTTPAddr
	}
	return s
}

func (s *StartupSummary) Print() {
	s.Fprint(os.Stdout)
}

func (s *StartupSummary) Fprint(w io.Writer) {
	title := "启动配置摘要 (STARTUP SUMMARY)"
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "[回测任务 (BACKTEST)]")
	fmt.Fprintf(w, "  运行模式: %s\n", orDash(s.Mode))
	fmt.Fprintf(w, "  数据源: %s\n", orDash(s.Source))
	fmt.Fprintf(w, "  标的: %s\n", formatList(s.Symbols))
	fmt.Fprintf(w, "  周期: %s\n", orDash(s.Interval))
	fmt.Fprintf(w, "  区间: %s\n", s.Range)
	fmt.Fprintf(w, "  策略: %s\n", orDash(s.Strategy))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[可用策略 (STRATEGIES)]")
	fmt.Fprintf(w, "  %s\n", formatList(s.Strategies))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[输出 (OUTPUT)]")
	fmt.Fprintf(w, "  报表目录: %s\n", orDash(s.ReportDir))
	fmt.Fprintf(w, "  运行记录: %s\n", orDash(s.StorePath))
	if s.HTTPAddr != "" {
		fmt.Fprintf(w, "  HTTP: %s\n", s.HTTPAddr)
	}
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
