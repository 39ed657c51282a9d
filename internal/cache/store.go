// Package cache 把远端 K 线落到本地 SQLite，并在新鲜度窗口内复用。
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"stockbt/internal/market"
)

// Manifest 记录某个 (symbol, interval, start, end) 区间的最近一次同步。
type Manifest struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Rows     int64  `json:"rows"`
	SyncedAt int64  `json:"synced_at"` // Unix ms
}

// Store 基于单个 SQLite 文件保存所有标的的 K 线。
type Store struct {
	db   *sql.DB
	path string
}

func OpenStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cache path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS candles (
			symbol    TEXT NOT NULL,
			interval  TEXT NOT NULL,
			open_time INTEGER NOT NULL,
			open      REAL NOT NULL,
			high      REAL NOT NULL,
			low       REAL NOT NULL,
			close     REAL NOT NULL,
			adj_close REAL NOT NULL,
			volume    REAL NOT NULL,
			PRIMARY KEY (symbol, interval, open_time)
		);`,
		`CREATE TABLE IF NOT EXISTS manifest (
			symbol    TEXT NOT NULL,
			interval  TEXT NOT NULL,
			range_start TEXT NOT NULL,
			range_end   TEXT NOT NULL,
			rows      INTEGER DEFAULT 0,
			synced_at INTEGER NOT NULL,
			PRIMARY KEY (symbol, interval, range_start, range_end)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertCandles 批量写入 K 线（重复 open_time 将被覆盖）。
func (s *Store) InsertCandles(ctx context.Context, symbol, interval string, candles []market.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (symbol, interval, open_time, open, high, low, close, adj_close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, interval, open_time) DO UPDATE SET
		    open=excluded.open,
		    high=excluded.high,
		    low=excluded.low,
		    close=excluded.close,
		    adj_close=excluded.adj_close,
		    volume=excluded.volume`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()
	count := 0
	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, interval, c.OpenTime, c.Open, c.High, c.Low, c.Close, c.AdjClose, c.Volume); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// RangeCandles 返回 [start, end) 内的 K 线，按 open_time 升序；end<=0 表示不限。
func (s *Store) RangeCandles(ctx context.Context, symbol, interval string, start, end int64) ([]market.Candle, error) {
	query := `
		SELECT open_time, open, high, low, close, adj_close, volume
		FROM candles
		WHERE symbol = ? AND interval = ? AND open_time >= ?`
	args := []any{symbol, interval, start}
	if end > 0 {
		query += ` AND open_time < ?`
		args = append(args, end)
	}
	query += ` ORDER BY open_time ASC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []market.Candle
	for rows.Next() {
		var c market.Candle
		if err := rows.Scan(&c.OpenTime, &c.Open, &c.High, &c.Low, &c.Close, &c.AdjClose, &c.Volume); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// Manifest 读取区间同步记录；不存在时 ok=false。
func (s *Store) Manifest(ctx context.Context, symbol, interval, start, end string) (Manifest, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT symbol, interval, range_start, range_end, rows, synced_at
		FROM manifest WHERE symbol=? AND interval=? AND range_start=? AND range_end=?`, symbol, interval, start, end)
	var m Manifest
	if err := row.Scan(&m.Symbol, &m.Interval, &m.Start, &m.End, &m.Rows, &m.SyncedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Manifest{}, false, nil
		}
		return Manifest{}, false, err
	}
	return m, true, nil
}

// MarkSynced 记录一次成功同步。
func (s *Store) MarkSynced(ctx context.Context, m Manifest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO manifest (symbol, interval, range_start, range_end, rows, synced_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, interval, range_start, range_end) DO UPDATE SET
		    rows=excluded.rows,
		    synced_at=excluded.synced_at`,
		m.Symbol, m.Interval, m.Start, m.End, m.Rows, m.SyncedAt)
	return err
}
