package strategy

import "math"

// CrossOver 标记 a 由下向上穿越 b 的 bar：a[i]>b[i] 且 a[i-1]<=b[i-1]。
// 任一侧为 NaN 的 bar 不产生信号。
func CrossOver(a, b []float64) []bool {
	return cross(a, b, func(prevA, prevB, curA, curB float64) bool {
		return curA > curB && prevA <= prevB
	})
}

// CrossUnder 标记 a 由上向下穿越 b 的 bar：a[i]<b[i] 且 a[i-1]>=b[i-1]。
func CrossUnder(a, b []float64) []bool {
	return cross(a, b, func(prevA, prevB, curA, curB float64) bool {
		return curA < curB && prevA >= prevB
	})
}

// Level 生成常数序列，用于与阈值比较。
func Level(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func cross(a, b []float64, hit func(prevA, prevB, curA, curB float64) bool) []bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]bool, len(a))
	for i := 1; i < n; i++ {
		if nan(a[i-1], b[i-1], a[i], b[i]) {
			continue
		}
		out[i] = hit(a[i-1], b[i-1], a[i], b[i])
	}
	return out
}

func nan(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
