package strategy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"stockbt/internal/logger"
)

// 方向过滤。
const (
	DirectionBoth  = "both"
	DirectionLong  = "long"
	DirectionShort = "short"
)

// Preset 描述 strategies.yaml 中的一个命名策略。
type Preset struct {
	ID          string         `yaml:"id" json:"id"`
	Description string         `yaml:"description" json:"description,omitempty"`
	Handler     string         `yaml:"handler" json:"handler"`
	Direction   string         `yaml:"direction" json:"direction"`
	Params      map[string]any `yaml:"params" json:"params,omitempty"`
	StopLoss    float64        `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit  float64        `yaml:"take_profit" json:"take_profit"`
}

// FileConfig 映射 strategies.yaml。
type FileConfig struct {
	Strategies map[string]Preset `yaml:"strategies"`
}

// Snapshot 为某次加载后的预设集合。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Presets  map[string]Preset
}

// ChangeListener 在 registry 重载成功后触发。
type ChangeListener func(Snapshot)

// Registry 管理策略预设，并按 handler 的 JSON Schema 校验参数。
type Registry struct {
	path     string
	handlers *HandlerRegistry
	schemas  map[string]*jsonschema.Schema

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// BuiltinPresets 在没有预设文件时使用。
func BuiltinPresets() map[string]Preset {
	return map[string]Preset{
		"golden_cross": {
			ID:          "golden_cross",
			Description: "SMA 5/25 golden cross long, dead cross short",
			Handler:     "sma_cross",
			Direction:   DirectionBoth,
			Params:      map[string]any{"fast": 5, "slow": 25},
			StopLoss:    5,
			TakeProfit:  10,
		},
	}
}

// NewRegistry 加载预设文件；path 为空时仅使用内置预设。
func NewRegistry(path string, handlers *HandlerRegistry) (*Registry, error) {
	if handlers == nil {
		handlers = DefaultHandlers()
	}
	r := &Registry{
		path:     strings.TrimSpace(path),
		handlers: handlers,
		schemas:  make(map[string]*jsonschema.Schema),
	}
	for _, id := range handlers.IDs() {
		h, _ := handlers.Handler(id)
		compiled, err := compileSchema(id, h.Schema())
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", id, err)
		}
		r.schemas[id] = compiled
	}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Watch 监听预设文件，变更后重载并通知 listener；解析失败时保留旧快照。
func (r *Registry) Watch() error {
	if r.path == "" {
		return nil
	}
	v := viper.New()
	v.SetConfigFile(r.path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read strategy presets failed: %w", err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("[strategy] preset reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return nil
}

// OnChange 注册重载回调。
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Preset 按 ID 查找预设；未命中但名称是 handler ID 时，返回使用默认参数的临时预设。
func (r *Registry) Preset(id string) (Preset, bool) {
	id = strings.TrimSpace(id)
	r.mu.RLock()
	p, ok := r.snapshot.Presets[id]
	r.mu.RUnlock()
	if ok {
		return p, true
	}
	if _, ok := r.handlers.Handler(id); ok {
		return Preset{ID: id, Handler: id, Direction: DirectionBoth}, true
	}
	return Preset{}, false
}

// Names 返回所有可用名称（预设与 handler），已排序。
func (r *Registry) Names() []string {
	seen := make(map[string]bool)
	r.mu.RLock()
	for id := range r.snapshot.Presets {
		seen[id] = true
	}
	r.mu.RUnlock()
	for _, id := range r.handlers.IDs() {
		seen[id] = true
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Validate 检查 handler 存在且参数满足其 schema。
func (r *Registry) Validate(p Preset) error {
	if _, ok := r.handlers.Handler(p.Handler); !ok {
		return fmt.Errorf("unknown strategy handler: %s", p.Handler)
	}
	switch p.Direction {
	case DirectionBoth, DirectionLong, DirectionShort:
	default:
		return fmt.Errorf("strategy %s: direction must be both/long/short, got %q", p.ID, p.Direction)
	}
	if p.StopLoss < 0 || p.TakeProfit < 0 {
		return fmt.Errorf("strategy %s: stop_loss/take_profit must be >= 0", p.ID)
	}
	schema := r.schemas[p.Handler]
	if schema == nil {
		return nil
	}
	doc, err := normalizeParams(p.Params)
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("strategy %s params: %w", p.ID, err)
	}
	return nil
}

func (r *Registry) reload() error {
	presets := BuiltinPresets()
	source := "builtin"
	if r.path != "" {
		cfg, err := readPresetFile(r.path)
		if err != nil {
			return err
		}
		for name, p := range cfg.Strategies {
			presets[name] = p
		}
		source = filepath.Base(r.path)
	}
	normalized := make(map[string]Preset, len(presets))
	for name, p := range presets {
		p = normalizePreset(name, p)
		if err := r.Validate(p); err != nil {
			return err
		}
		normalized[p.ID] = p
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Presets:  normalized,
	}
	r.mu.Unlock()
	logger.Infof("[strategy] loaded %d presets from %s", len(normalized), source)
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Errorf("[strategy] listener panic: %v", rec)
				}
			}()
			cb(snap)
		}(fn)
	}
}

func normalizePreset(name string, p Preset) Preset {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = strings.TrimSpace(name)
	}
	p.Handler = strings.TrimSpace(p.Handler)
	p.Description = strings.TrimSpace(p.Description)
	p.Direction = strings.ToLower(strings.TrimSpace(p.Direction))
	if p.Direction == "" {
		p.Direction = DirectionBoth
	}
	return p
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Presets:  make(map[string]Preset, len(src.Presets)),
	}
	for id, p := range src.Presets {
		dst.Presets[id] = p
	}
	return dst
}

func compileSchema(id, raw string) (*jsonschema.Schema, error) {
	name := id + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

// normalizeParams 把 YAML 解出的参数转换为 JSON 文档形态（数字为 float64）。
func normalizeParams(params map[string]any) (any, error) {
	if params == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func readPresetFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read strategy presets failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return FileConfig{}, fmt.Errorf("parse strategy presets failed: %w", err)
	}
	return cfg, nil
}
