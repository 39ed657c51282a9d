package market

import "time"

// Candle 是单根 OHLCV K 线，OpenTime 为 Unix 毫秒。
type Candle struct {
	OpenTime int64   `json:"open_time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adj_close"`
	Volume   float64 `json:"volume"`
}

// Time 返回 OpenTime 对应的 UTC 时间。
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.OpenTime).UTC()
}
