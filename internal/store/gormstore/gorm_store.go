package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stockbt/internal/store"
	"stockbt/internal/store/model"
)

// GormStore 基于 Gorm + SQLite 保存回测运行历史。
type GormStore struct {
	db *gorm.DB
}

var _ store.RunStore = (*GormStore)(nil)

func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.RunModel{}, &model.TradeModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InsertRun 在同一事务中写入运行摘要与全部成交。
func (s *GormStore) InsertRun(ctx context.Context, run store.RunRecord, trades []store.TradeRecord) error {
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id 必填")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := newRunModel(run)
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		if len(trades) == 0 {
			return nil
		}
		rows := make([]model.TradeModel, 0, len(trades))
		for _, t := range trades {
			t.RunID = run.ID
			rows = append(rows, newTradeModel(t))
		}
		return tx.CreateInBatches(&rows, 200).Error
	})
}

func (s *GormStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]store.RunRecord, error) {
	q := s.db.WithContext(ctx).Model(&model.RunModel{})
	if sym := strings.TrimSpace(filter.Symbol); sym != "" {
		q = q.Where("UPPER(symbol) = ?", strings.ToUpper(sym))
	}
	if st := strings.TrimSpace(filter.Strategy); st != "" {
		q = q.Where("strategy = ?", st)
	}
	var models []model.RunModel
	if err := q.Order("created_at DESC").Order("id DESC").Limit(store.NormalizeLimit(filter.Limit)).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]store.RunRecord, 0, len(models))
	for _, m := range models {
		out = append(out, runModelToRecord(m))
	}
	return out, nil
}

func (s *GormStore) GetRun(ctx context.Context, id string) (store.RunRecord, error) {
	var m model.RunModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.RunRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.RunRecord{}, err
	}
	return runModelToRecord(m), nil
}

func (s *GormStore) ListTrades(ctx context.Context, runID string) ([]store.TradeRecord, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	var models []model.TradeModel
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("seq ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]store.TradeRecord, 0, len(models))
	for _, m := range models {
		out = append(out, store.TradeRecord{
			RunID:      m.RunID,
			Seq:        m.Seq,
			Direction:  m.Direction,
			EntryBar:   m.EntryBar,
			ExitBar:    m.ExitBar,
			EntryTime:  m.EntryTime,
			ExitTime:   m.ExitTime,
			EntryPrice: m.EntryPrice,
			ExitPrice:  m.ExitPrice,
			PnL:        m.PnL,
			ReturnRate: m.ReturnRate,
			Reason:     m.Reason,
		})
	}
	return out, nil
}

func newRunModel(r store.RunRecord) model.RunModel {
	return model.RunModel{
		ID:            r.ID,
		Symbol:        r.Symbol,
		Interval:      r.Interval,
		Strategy:      r.Strategy,
		Source:        r.Source,
		RangeStart:    r.Start,
		RangeEnd:      r.End,
		Bars:          r.Bars,
		Trades:        r.Trades,
		NetProfit:     r.NetProfit,
		MaxDrawdown:   r.MaxDrawdown,
		Metrics:       jsonOrNull(r.Metrics),
		Params:        jsonOrNull(r.Params),
		Artifacts:     jsonOrNull(r.Artifacts),
		Status:        r.Status,
		Error:         r.Error,
		DurationMs:    r.DurationMs,
		CreatedAtUnix: r.CreatedAt,
	}
}

func newTradeModel(t store.TradeRecord) model.TradeModel {
	return model.TradeModel{
		RunID:      t.RunID,
		Seq:        t.Seq,
		Direction:  t.Direction,
		EntryBar:   t.EntryBar,
		ExitBar:    t.ExitBar,
		EntryTime:  t.EntryTime,
		ExitTime:   t.ExitTime,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		PnL:        t.PnL,
		ReturnRate: t.ReturnRate,
		Reason:     t.Reason,
	}
}

func runModelToRecord(m model.RunModel) store.RunRecord {
	return store.RunRecord{
		ID:          m.ID,
		Symbol:      m.Symbol,
		Interval:    m.Interval,
		Strategy:    m.Strategy,
		Source:      m.Source,
		Start:       m.RangeStart,
		End:         m.RangeEnd,
		Bars:        m.Bars,
		Trades:      m.Trades,
		NetProfit:   m.NetProfit,
		MaxDrawdown: m.MaxDrawdown,
		Metrics:     json.RawMessage(m.Metrics),
		Params:      json.RawMessage(m.Params),
		Artifacts:   json.RawMessage(m.Artifacts),
		Status:      m.Status,
		Error:       m.Error,
		DurationMs:  m.DurationMs,
		CreatedAt:   m.CreatedAtUnix,
	}
}

func jsonOrNull(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}
