package strategy

import (
	"fmt"
	"strings"

	"stockbt/internal/engine"
	"stockbt/internal/market"
)

// Overrides 为单次运行对预设的覆盖；nil 表示沿用预设。
type Overrides struct {
	Params     map[string]any
	Direction  string
	StopLoss   *float64
	TakeProfit *float64
	Shares     float64
}

// Plan 是可直接交给 engine.Simulate 的输入。
type Plan struct {
	Preset  Preset
	Signals engine.Signals
	Risk    engine.RiskParams
}

// Build 解析策略名称并生成信号与风控参数。
func (r *Registry) Build(name string, candles market.Candles, ov Overrides) (Plan, error) {
	preset, ok := r.Preset(name)
	if !ok {
		return Plan{}, fmt.Errorf("unknown strategy: %s", name)
	}
	preset = applyOverrides(preset, ov)
	if err := r.Validate(preset); err != nil {
		return Plan{}, err
	}
	h, _ := r.handlers.Handler(preset.Handler)
	up, down, err := h.Turns(candles, preset.Params)
	if err != nil {
		return Plan{}, err
	}
	shares := ov.Shares
	if shares == 0 {
		shares = 1
	}
	risk := engine.RiskParams{StopLoss: preset.StopLoss, TakeProfit: preset.TakeProfit, Shares: shares}
	if err := risk.Validate(); err != nil {
		return Plan{}, err
	}
	return Plan{
		Preset:  preset,
		Signals: SignalsFromTurns(up, down, preset.Direction),
		Risk:    risk,
	}, nil
}

// SignalsFromTurns 把多空转折映射为四路信号：看多转折开多并平空，看空转折开空并平多。
// direction 为 long/short 时屏蔽另一侧的开仓信号。
func SignalsFromTurns(up, down []bool, direction string) engine.Signals {
	sig := engine.NewSignals(len(up))
	for i := range up {
		bull := up[i]
		bear := i < len(down) && down[i]
		sig.BuyExit[i] = bear
		sig.SellExit[i] = bull
		if direction != DirectionShort {
			sig.BuyEntry[i] = bull
		}
		if direction != DirectionLong {
			sig.SellEntry[i] = bear
		}
	}
	return sig
}

func applyOverrides(p Preset, ov Overrides) Preset {
	if len(ov.Params) > 0 {
		merged := make(map[string]any, len(p.Params)+len(ov.Params))
		for k, v := range p.Params {
			merged[k] = v
		}
		for k, v := range ov.Params {
			merged[k] = v
		}
		p.Params = merged
	}
	if ov.Direction != "" {
		p.Direction = strings.ToLower(strings.TrimSpace(ov.Direction))
	}
	if ov.StopLoss != nil {
		p.StopLoss = *ov.StopLoss
	}
	if ov.TakeProfit != nil {
		p.TakeProfit = *ov.TakeProfit
	}
	return p
}
