package engine

const (
	// EntryLag：bar i 收盘产生的入场信号在 bar i+1 开盘价成交。
	EntryLag = 1
	// ExitLag：bar i 收盘产生的离场信号在 bar i+2 开盘价成交。
	ExitLag = 2
)

// Lag 将信号序列整体后移 lag 根 bar：out[i] = mask[i-lag]，前 lag 个位置为 false。
// forceLast 为 true 时最后一个位置强制为 true，保证序列末尾任何持仓都会被平掉。
// 返回新切片，长度与输入一致，不修改输入。
func Lag(mask []bool, lag int, forceLast bool) []bool {
	if lag < 0 {
		lag = 0
	}
	out := make([]bool, len(mask))
	for i := lag; i < len(mask); i++ {
		out[i] = mask[i-lag]
	}
	if forceLast && len(out) > 0 {
		out[len(out)-1] = true
	}
	return out
}
