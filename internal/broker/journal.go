package broker

import (
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tradesim/internal/model"
)

// Journal persists filled orders to SQLite for analysis and audit.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// NewJournal opens (or creates) a SQLite trade journal.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS fills (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id    TEXT NOT NULL,
		symbol      TEXT NOT NULL,
		direction   TEXT NOT NULL,
		price       REAL NOT NULL,
		volume      INTEGER NOT NULL,
		value       REAL NOT NULL,
		filled_at   DATETIME NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_fills_symbol ON fills(symbol);
	CREATE INDEX IF NOT EXISTS idx_fills_filled_at ON fills(filled_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[journal] opened trade journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// RecordFill persists one filled order.
func (j *Journal) RecordFill(order model.Order, filledAt time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO fills (order_id, symbol, direction, price, volume, value, filled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.Symbol,
		string(order.Direction),
		order.Price,
		order.Volume,
		order.Price*float64(order.Volume),
		filledAt.Format(time.RFC3339),
	)
	return err
}

// FillRecord is one row from the fills table.
type FillRecord struct {
	ID        int64   `json:"id"`
	OrderID   string  `json:"order_id"`
	Symbol    string  `json:"symbol"`
	Direction string  `json:"direction"`
	Price     float64 `json:"price"`
	Volume    int64   `json:"volume"`
	Value     float64 `json:"value"`
	FilledAt  string  `json:"filled_at"`
}

// Fills returns the last N fills, newest first.
func (j *Journal) Fills(limit int) ([]FillRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, order_id, symbol, direction, price, volume, value, filled_at
		 FROM fills ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fills []FillRecord
	for rows.Next() {
		var f FillRecord
		if err := rows.Scan(&f.ID, &f.OrderID, &f.Symbol, &f.Direction,
			&f.Price, &f.Volume, &f.Value, &f.FilledAt); err != nil {
			continue
		}
		fills = append(fills, f)
	}
	return fills, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
