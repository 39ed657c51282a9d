package strategy

import (
	"fmt"

	"stockbt/internal/indicator"
	"stockbt/internal/market"
)

type maParams struct {
	Fast  int    `mapstructure:"fast"`
	Slow  int    `mapstructure:"slow"`
	Price string `mapstructure:"price"`
}

func (p maParams) check(id string) error {
	if p.Fast <= 0 || p.Slow <= 0 {
		return fmt.Errorf("%s: fast/slow 需 >0", id)
	}
	if p.Fast >= p.Slow {
		return fmt.Errorf("%s: fast 需小于 slow", id)
	}
	return nil
}

const maSchema = `{
  "type": "object",
  "properties": {
    "fast": {"type": "integer", "minimum": 1},
    "slow": {"type": "integer", "minimum": 2},
    "price": {"type": "string", "enum": ["O", "H", "L", "C", "AC"]}
  },
  "additionalProperties": false
}`

// smaCross 快慢 SMA 金叉/死叉。
type smaCross struct{}

func (smaCross) ID() string          { return "sma_cross" }
func (smaCross) Description() string { return "fast/slow SMA golden and dead cross" }
func (smaCross) Schema() string      { return maSchema }

func (h smaCross) Turns(c market.Candles, params map[string]any) ([]bool, []bool, error) {
	p := maParams{Fast: 5, Slow: 25, Price: "C"}
	if err := decodeParams(params, &p); err != nil {
		return nil, nil, err
	}
	if err := p.check(h.ID()); err != nil {
		return nil, nil, err
	}
	src := c.Column(p.Price)
	fast, slow := indicator.SMA(src, p.Fast), indicator.SMA(src, p.Slow)
	return CrossOver(fast, slow), CrossUnder(fast, slow), nil
}

type emaCross struct{}

func (emaCross) ID() string          { return "ema_cross" }
func (emaCross) Description() string { return "fast/slow EMA golden and dead cross" }
func (emaCross) Schema() string      { return maSchema }

func (h emaCross) Turns(c market.Candles, params map[string]any) ([]bool, []bool, error) {
	p := maParams{Fast: 12, Slow: 26, Price: "C"}
	if err := decodeParams(params, &p); err != nil {
		return nil, nil, err
	}
	if err := p.check(h.ID()); err != nil {
		return nil, nil, err
	}
	src := c.Column(p.Price)
	fast, slow := indicator.EMA(src, p.Fast), indicator.EMA(src, p.Slow)
	return CrossOver(fast, slow), CrossUnder(fast, slow), nil
}

// macdCross MACD 线穿越信号线。
type macdCross struct{}

func (macdCross) ID() string          { return "macd_cross" }
func (macdCross) Description() string { return "MACD line crossing its signal line" }
func (macdCross) Schema() string {
	return `{
  "type": "object",
  "properties": {
    "fast": {"type": "integer", "minimum": 1},
    "slow": {"type": "integer", "minimum": 2},
    "signal": {"type": "integer", "minimum": 1}
  },
  "additionalProperties": false
}`
}

func (h macdCross) Turns(c market.Candles, params map[string]any) ([]bool, []bool, error) {
	p := struct {
		Fast   int `mapstructure:"fast"`
		Slow   int `mapstructure:"slow"`
		Signal int `mapstructure:"signal"`
	}{indicator.DefaultMACDFast, indicator.DefaultMACDSlow, indicator.DefaultMACDSignal}
	if err := decodeParams(params, &p); err != nil {
		return nil, nil, err
	}
	if p.Fast >= p.Slow {
		return nil, nil, fmt.Errorf("%s: fast 需小于 slow", h.ID())
	}
	macd, sig, _ := indicator.MACD(c.Closes(), p.Fast, p.Slow, p.Signal)
	return CrossOver(macd, sig), CrossUnder(macd, sig), nil
}

type bandParams struct {
	Period int     `mapstructure:"period"`
	Lower  float64 `mapstructure:"lower"`
	Upper  float64 `mapstructure:"upper"`
}

func (p bandParams) check(id string) error {
	if p.Lower >= p.Upper {
		return fmt.Errorf("%s: lower 需小于 upper", id)
	}
	return nil
}

const bandSchema = `{
  "type": "object",
  "properties": {
    "period": {"type": "integer", "minimum": 1},
    "lower": {"type": "number", "minimum": 0, "maximum": 100},
    "upper": {"type": "number", "minimum": 0, "maximum": 100}
  },
  "additionalProperties": false
}`

// rsiReversal RSI 上穿超卖线看多，下穿超买线看空。
type rsiReversal struct{}

func (rsiReversal) ID() string          { return "rsi_reversal" }
func (rsiReversal) Description() string { return "RSI leaving oversold/overbought zones" }
func (rsiReversal) Schema() string      { return bandSchema }

func (h rsiReversal) Turns(c market.Candles, params map[string]any) ([]bool, []bool, error) {
	p := bandParams{Period: indicator.DefaultRSIPeriod, Lower: 30, Upper: 70}
	if err := decodeParams(params, &p); err != nil {
		return nil, nil, err
	}
	if err := p.check(h.ID()); err != nil {
		return nil, nil, err
	}
	rsi := indicator.RSI(c.Closes(), p.Period)
	n := len(rsi)
	return CrossOver(rsi, Level(n, p.Lower)), CrossUnder(rsi, Level(n, p.Upper)), nil
}

// stochCross %K 在超卖区上穿 %D 看多，在超买区下穿看空。
type stochCross struct{}

func (stochCross) ID() string          { return "stoch_cross" }
func (stochCross) Description() string { return "stochastic %K crossing %D inside extreme zones" }
func (stochCross) Schema() string {
	return `{
  "type": "object",
  "properties": {
    "k": {"type": "integer", "minimum": 1},
    "d": {"type": "integer", "minimum": 1},
    "lower": {"type": "number", "minimum": 0, "maximum": 100},
    "upper": {"type": "number", "minimum": 0, "maximum": 100}
  },
  "additionalProperties": false
}`
}

func (h stochCross) Turns(c market.Candles, params map[string]any) ([]bool, []bool, error) {
	p := struct {
		K     int     `mapstructure:"k"`
		D     int     `mapstructure:"d"`
		Lower float64 `mapstructure:"lower"`
		Upper float64 `mapstructure:"upper"`
	}{indicator.DefaultStochK, indicator.DefaultStochD, 20, 80}
	if err := decodeParams(params, &p); err != nil {
		return nil, nil, err
	}
	if p.Lower >= p.Upper {
		return nil, nil, fmt.Errorf("%s: lower 需小于 upper", h.ID())
	}
	k, d := indicator.Stoch(c.Highs(), c.Lows(), c.Closes(), p.K, p.D)
	up, down := CrossOver(k, d), CrossUnder(k, d)
	for i := range up {
		up[i] = up[i] && d[i] <= p.Lower
		down[i] = down[i] && d[i] >= p.Upper
	}
	return up, down, nil
}

// bbandsReversion 收盘价自下轨下方收回看多，自上轨上方回落看空。
type bbandsReversion struct{}

func (bbandsReversion) ID() string          { return "bbands_reversion" }
func (bbandsReversion) Description() string { return "close re-entering the Bollinger band" }
func (bbandsReversion) Schema() string {
	return `{
  "type": "object",
  "properties": {
    "period": {"type": "integer", "minimum": 2},
    "width": {"type": "number", "exclusiveMinimum": 0}
  },
  "additionalProperties": false
}`
}

func (h bbandsReversion) Turns(c market.Candles, params map[string]any) ([]bool, []bool, error) {
	p := struct {
		Period int     `mapstructure:"period"`
		Width  float64 `mapstructure:"width"`
	}{indicator.DefaultBBandsPeriod, indicator.DefaultBBandsWidth}
	if err := decodeParams(params, &p); err != nil {
		return nil, nil, err
	}
	closes := c.Closes()
	upper, _, lower := indicator.BBands(closes, p.Period, p.Width)
	return CrossOver(closes, lower), CrossUnder(closes, upper), nil
}
