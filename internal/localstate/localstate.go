// Package localstate persists the client-side daily session counter used
// for provisional identifiers. It is local to one machine and never shared
// with the server.
package localstate

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB holds the provisional counter in a single-row SQLite table.
type DB struct {
	conn *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS daily_counter (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	date_key TEXT NOT NULL,
	counter  INTEGER NOT NULL
)`

// Open creates the database file (and parent directory) if needed.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Next returns the next same-day sequence number for dateKey. The counter
// resets to 1 whenever the stored date differs from dateKey.
func (db *DB) Next(dateKey string) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var storedDate string
	var counter int
	err = tx.QueryRow(`SELECT date_key, counter FROM daily_counter WHERE id = 1`).Scan(&storedDate, &counter)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		counter = 0
	case err != nil:
		return 0, fmt.Errorf("read counter: %w", err)
	case storedDate != dateKey:
		counter = 0
	}

	counter++
	_, err = tx.Exec(`
		INSERT INTO daily_counter (id, date_key, counter) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET date_key = excluded.date_key, counter = excluded.counter`,
		dateKey, counter,
	)
	if err != nil {
		return 0, fmt.Errorf("write counter: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return counter, nil
}
