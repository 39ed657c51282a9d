package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInputShape 表示价格/信号序列长度不一致或不足两根 bar。
	ErrInputShape = errors.New("engine: invalid input shape")
	// ErrInvalidRisk 表示风控参数不满足前置条件。
	ErrInvalidRisk = errors.New("engine: invalid risk params")
)

// InputShapeError 描述具体是哪条序列不合法。
type InputShapeError struct {
	Series string
	Len    int
	Want   int
}

func (e *InputShapeError) Error() string {
	if e.Series == "" {
		return fmt.Sprintf("%v: need at least 2 bars, got %d", ErrInputShape, e.Len)
	}
	return fmt.Sprintf("%v: %s has length %d, want %d", ErrInputShape, e.Series, e.Len, e.Want)
}

func (e *InputShapeError) Unwrap() error { return ErrInputShape }

func checkShape(p Prices, sig Signals) (int, error) {
	n := len(p.Open)
	if n < 2 {
		return 0, &InputShapeError{Len: n}
	}
	floats := []struct {
		name string
		v    []float64
	}{
		{"high", p.High},
		{"low", p.Low},
		{"close", p.Close},
	}
	for _, s := range floats {
		if len(s.v) != n {
			return 0, &InputShapeError{Series: s.name, Len: len(s.v), Want: n}
		}
	}
	masks := []struct {
		name string
		v    []bool
	}{
		{"buy_entry", sig.BuyEntry},
		{"buy_exit", sig.BuyExit},
		{"sell_entry", sig.SellEntry},
		{"sell_exit", sig.SellExit},
	}
	for _, s := range masks {
		if len(s.v) != n {
			return 0, &InputShapeError{Series: s.name, Len: len(s.v), Want: n}
		}
	}
	return n, nil
}

// Validate 校验风控参数：shares 必须为正，止损/止盈距离不能为负。
func (r RiskParams) Validate() error {
	if !(r.Shares > 0) {
		return fmt.Errorf("%w: shares must be > 0, got %v", ErrInvalidRisk, r.Shares)
	}
	if r.StopLoss < 0 {
		return fmt.Errorf("%w: stop_loss must be >= 0, got %v", ErrInvalidRisk, r.StopLoss)
	}
	if r.TakeProfit < 0 {
		return fmt.Errorf("%w: take_profit must be >= 0, got %v", ErrInvalidRisk, r.TakeProfit)
	}
	return nil
}
