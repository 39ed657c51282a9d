package backtest

import (
	"fmt"
	"strings"

	"stockbt/internal/metrics"
)

// FormatSummary 按固定顺序输出指标记录，每行一个指标，无定义的指标显示为 n/a。
func FormatSummary(s metrics.Summary) string {
	rec := s.Record()
	width := 0
	for _, k := range metrics.RecordKeys {
		if len(k) > width {
			width = len(k)
		}
	}
	var b strings.Builder
	for _, k := range metrics.RecordKeys {
		fmt.Fprintf(&b, "%-*s : %s\n", width, k, formatValue(rec[k]))
	}
	return b.String()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "n/a"
	case float64:
		return fmt.Sprintf("%.3f", val)
	default:
		return fmt.Sprint(val)
	}
}
