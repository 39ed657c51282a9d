package metrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// ErrDegenerate 表示指标分母为 0，结果无定义。
var ErrDegenerate = errors.New("metrics: undefined (zero denominator)")

// DegenerateMetricError 指明哪个字段无定义。
type DegenerateMetricError struct {
	Field string
}

func (e *DegenerateMetricError) Error() string {
	return fmt.Sprintf("metrics: %s is undefined (zero denominator)", e.Field)
}

func (e *DegenerateMetricError) Unwrap() error { return ErrDegenerate }

// Metric 是可能无定义的比率指标；Valid=false 时 Value 无意义。
type Metric struct {
	Value float64
	Valid bool
}

// Defined 包装一个有效值。
func Defined(v float64) Metric { return Metric{Value: v, Valid: true} }

// Undefined 返回无定义的指标。
func Undefined() Metric { return Metric{} }

// ratio 计算 num/den；分母为 0 或结果非有限数时返回 Undefined。
func ratio(num, den float64) Metric {
	if den == 0 {
		return Undefined()
	}
	v := num / den
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined()
	}
	return Defined(v)
}

// Get 返回值；无定义时返回 ErrDegenerate。
func (m Metric) Get() (float64, error) {
	if !m.Valid {
		return 0, ErrDegenerate
	}
	return m.Value, nil
}

// Or 在无定义时返回 fallback。
func (m Metric) Or(fallback float64) float64 {
	if !m.Valid {
		return fallback
	}
	return m.Value
}

// Rounded 按 places 位小数四舍五入。
func (m Metric) Rounded(places int32) Metric {
	if !m.Valid {
		return m
	}
	return Defined(Round(m.Value, places))
}

// Any 返回 Value 或 nil，供记录/序列化使用。
func (m Metric) Any() any {
	if !m.Valid {
		return nil
	}
	return m.Value
}

func (m Metric) String() string {
	if !m.Valid {
		return "undefined"
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

func (m *Metric) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Undefined()
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*m = Defined(v)
	return nil
}

// Round 使用十进制舍入（half away from zero），避免二进制浮点带来的 x.xxx5 误差。
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
