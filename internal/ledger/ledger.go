// Package ledger keeps an append-only history of applied brightness
// changes for auditing. Rows are write-only as far as the controller is
// concerned; they are never used to restore state across restarts.
package ledger

import (
	"database/sql"
	"fmt"
	"time"
)

// Entry is one recorded brightness application.
type Entry struct {
	Timestamp  time.Time
	ScheduleID int
	Level      float64
	Source     string
}

// Ledger provides append-only history logging.
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// RecordApplied appends one applied-brightness row.
func (l *Ledger) RecordApplied(scheduleID int, level float64, source string) error {
	_, err := l.db.Exec(`
		INSERT INTO brightness_log (timestamp, schedule_id, level, source)
		VALUES (?, ?, ?, ?)
	`, time.Now().UTC().Unix(), scheduleID, level, source)
	if err != nil {
		return fmt.Errorf("failed to append history row: %w", err)
	}
	return nil
}

// Recent returns up to limit rows, newest first.
func (l *Ledger) Recent(limit int) ([]Entry, error) {
	rows, err := l.db.Query(`
		SELECT timestamp, schedule_id, level, source
		FROM brightness_log
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&ts, &e.ScheduleID, &e.Level, &e.Source); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Cleanup removes rows older than the retention period. Returns the
// number of deleted rows.
func (l *Ledger) Cleanup(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Unix()
	result, err := l.db.Exec(`DELETE FROM brightness_log WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup history: %w", err)
	}
	return result.RowsAffected()
}
