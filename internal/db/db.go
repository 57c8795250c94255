// Package db provides the SQLite connection and schema for the history
// ledger.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
}

// Open opens the database and initializes the schema
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

func initSchema(db *sql.DB) error {
	// Append-only history of applied brightness changes. Never read back
	// into runtime state.
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS brightness_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			schedule_id INTEGER NOT NULL,
			level REAL NOT NULL,
			source TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_brightness_log_ts ON brightness_log(timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create brightness_log table: %w", err)
	}
	return nil
}
