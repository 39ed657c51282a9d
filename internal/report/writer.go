// Package report 输出回测图表（HTML/PNG）与指标记录文件。
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stockbt/internal/logger"
)

// Options 控制落盘行为。
type Options struct {
	Dir        string
	Format     string // json | yaml
	PNG        bool
	PNGTimeout time.Duration
}

// Artifacts 为一次写出的文件路径；未生成的为空。
type Artifacts struct {
	HTML   string `json:"html,omitempty"`
	PNG    string `json:"png,omitempty"`
	Record string `json:"record,omitempty"`
}

// Writer 把 Input 写为 {dir}/{symbol}-{start}-{end}.{html,png,json|yaml}。
type Writer struct {
	opts Options
	log  logger.Component
}

func NewWriter(opts Options) *Writer {
	opts.Format = strings.ToLower(strings.TrimSpace(opts.Format))
	if opts.Format == "" {
		opts.Format = "json"
	}
	return &Writer{opts: opts, log: logger.Named("report")}
}

// BaseName 返回不含扩展名的产物路径。
func (w *Writer) BaseName(in Input) string {
	name := fmt.Sprintf("%s-%s-%s", sanitize(in.Symbol), in.Start, in.End)
	return filepath.Join(w.opts.Dir, name)
}

func (w *Writer) Write(ctx context.Context, in Input) (Artifacts, error) {
	if err := os.MkdirAll(w.opts.Dir, 0o755); err != nil {
		return Artifacts{}, err
	}
	base := w.BaseName(in)
	var out Artifacts

	record, err := EncodeRecord(in.Summary, w.opts.Format)
	if err != nil {
		return out, err
	}
	out.Record = base + "." + w.opts.Format
	if err := os.WriteFile(out.Record, record, 0o644); err != nil {
		return out, fmt.Errorf("write record: %w", err)
	}

	html, err := RenderHTML(in)
	if err != nil {
		return out, err
	}
	out.HTML = base + ".html"
	if err := os.WriteFile(out.HTML, html, 0o644); err != nil {
		return out, fmt.Errorf("write chart: %w", err)
	}

	if w.opts.PNG {
		png, err := RenderPNG(ctx, html, w.opts.PNGTimeout)
		if err != nil {
			// PNG 依赖本机 Chrome，失败不影响其余产物
			w.log.Warnf("png export for %s skipped: %v", in.Symbol, err)
			return out, nil
		}
		out.PNG = base + ".png"
		if err := os.WriteFile(out.PNG, png, 0o644); err != nil {
			return out, fmt.Errorf("write png: %w", err)
		}
	}
	return out, nil
}

func sanitize(symbol string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "")
	return r.Replace(strings.TrimSpace(symbol))
}
