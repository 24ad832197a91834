// Package sqlite caches fetched daily bars so backtests can run offline and
// repeated runs skip the provider round-trip.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tradesim/internal/model"
)

// Cache is a SQLite-backed daily bar store. Writes are upserts keyed by
// (symbol, date), so re-fetching a range is idempotent.
type Cache struct {
	db *sql.DB
}

// Open opens (or creates) the bar cache at dbPath.
func Open(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_bars (
			symbol  TEXT    NOT NULL,
			date    INTEGER NOT NULL,
			open    REAL    NOT NULL,
			high    REAL    NOT NULL,
			low     REAL    NOT NULL,
			close   REAL    NOT NULL,
			volume  INTEGER NOT NULL,
			PRIMARY KEY (symbol, date)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened bar cache at %s", dbPath)
	return &Cache{db: db}, nil
}

// SaveBars upserts bars in one transaction.
func (c *Cache) SaveBars(bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_bars (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.Exec(b.Symbol, b.Date.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[sqlite] cached %d bars for %s", len(bars), bars[0].Symbol)
	return nil
}

// Bars returns the cached bars for symbol in [start, end], date ascending.
// An empty cache yields an empty slice, so Cache satisfies the historical
// source contract directly.
func (c *Cache) Bars(_ context.Context, symbol string, start, end time.Time) ([]model.Bar, error) {
	rows, err := c.db.Query(`
		SELECT symbol, date, open, high, low, close, volume
		FROM daily_bars
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, symbol, start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		var ts int64
		if err := rows.Scan(&b.Symbol, &ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		b.Date = time.Unix(ts, 0).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// LastDate returns the newest cached bar date for symbol, or the zero time
// when the symbol has no cached bars.
func (c *Cache) LastDate(symbol string) (time.Time, error) {
	var ts sql.NullInt64
	err := c.db.QueryRow(`SELECT MAX(date) FROM daily_bars WHERE symbol = ?`, symbol).Scan(&ts)
	if err != nil {
		return time.Time{}, err
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	return time.Unix(ts.Int64, 0).UTC(), nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}
