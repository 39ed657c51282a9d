// Package logger 是进程级 slog 封装，提供 printf 风格接口与带组件前缀的子 logger。
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	levelVar slog.LevelVar

	mu      sync.RWMutex
	out     io.Writer = os.Stdout
	jsonFmt bool
	base    *slog.Logger
)

func init() {
	levelVar.Set(slog.LevelInfo)
	base = build()
}

// build 需在持有 mu 写锁或 init 中调用。
func build() *slog.Logger {
	opts := &slog.HandlerOptions{Level: &levelVar}
	if jsonFmt {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// SetOutput 替换全局输出（例如 stdout + 日志文件）。
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	mu.Lock()
	out = w
	base = build()
	mu.Unlock()
}

// SetFormat 切换输出格式：json 或 text（默认）。
func SetFormat(format string) {
	mu.Lock()
	jsonFmt = strings.EqualFold(strings.TrimSpace(format), "json")
	base = build()
	mu.Unlock()
}

// ParseLevel 将配置中的级别字符串转换为 slog.Level，未知值回退到 info。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func SetLevel(level string) {
	levelVar.Set(ParseLevel(level))
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func Debugf(format string, v ...any) {
	current().Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	current().Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	current().Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	current().Error(fmt.Sprintf(format, v...))
}

// InfoBlock 逐行输出多行文本（例如回测汇总表）。
func InfoBlock(block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	for _, line := range strings.Split(block, "\n") {
		Infof("%s", line)
	}
}

// Component 为某个模块附加固定的 "[tag]" 前缀。
type Component struct {
	tag string
}

func Named(tag string) Component {
	return Component{tag: "[" + strings.TrimSpace(tag) + "] "}
}

func (c Component) Debugf(format string, v ...any) { Debugf(c.tag+format, v...) }
func (c Component) Infof(format string, v ...any)  { Infof(c.tag+format, v...) }
func (c Component) Warnf(format string, v ...any)  { Warnf(c.tag+format, v...) }
func (c Component) Errorf(format string, v ...any) { Errorf(c.tag+format, v...) }
