package strategy

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"

	"stockbt/internal/market"
)

// Handler 根据行情与参数生成多空转折点。
// up 标记看多转折（开多/平空），down 标记看空转折（开空/平多）。
type Handler interface {
	// ID 返回唯一标识，需与 strategies.yaml 的 handler 字段一致。
	ID() string
	Description() string
	// Schema 返回 params 的 JSON Schema 文本。
	Schema() string
	Turns(candles market.Candles, params map[string]any) (up, down []bool, err error)
}

// HandlerRegistry 维护所有注册的 Handler。
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]Handler)}
}

// DefaultHandlers 返回注册了全部内置策略的 registry。
func DefaultHandlers() *HandlerRegistry {
	r := NewHandlerRegistry()
	r.Register(smaCross{})
	r.Register(emaCross{})
	r.Register(macdCross{})
	r.Register(rsiReversal{})
	r.Register(bbandsReversion{})
	r.Register(stochCross{})
	return r
}

// Register 将 handler 放入 registry，若 ID 重复则覆盖。
func (r *HandlerRegistry) Register(h Handler) {
	if r == nil || h == nil {
		return
	}
	id := strings.TrimSpace(h.ID())
	if id == "" {
		panic("strategy handler 注册失败: ID 不能为空")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[id] = h
}

func (r *HandlerRegistry) Handler(id string) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[strings.TrimSpace(id)]
	return h, ok
}

// IDs 返回排序后的 handler ID。
func (r *HandlerRegistry) IDs() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// decodeParams 把 params 叠加到 out 的默认值上，未知字段报错。
func decodeParams(params map[string]any, out any) error {
	if len(params) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}
