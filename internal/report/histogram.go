package report

import "math"

// Bin 为直方图的一个区间 [Lo, Hi)；最后一个区间包含上界。
type Bin struct {
	Lo    float64
	Hi    float64
	Count int
}

// Histogram 以等宽区间统计 values；所有值相同时以该值为中心取宽度 1 的区间。
func Histogram(values []float64, bins int) []Bin {
	if bins <= 0 || len(values) == 0 {
		return nil
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}
	out[bins-1].Hi = hi
	for _, v := range values {
		idx := binIndex(v, lo, width, bins)
		out[idx].Count++
	}
	return out
}

func binIndex(v, lo, width float64, bins int) int {
	idx := int((v - lo) / width)
	if idx < 0 {
		return 0
	}
	if idx >= bins {
		return bins - 1
	}
	return idx
}
