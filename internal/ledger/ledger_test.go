package ledger_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dokzlo13/autolight/internal/db"
	"github.com/dokzlo13/autolight/internal/ledger"
)

func openLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return ledger.New(database.DB)
}

func TestRecordAndRecent(t *testing.T) {
	l := openLedger(t)

	if err := l.RecordApplied(1, 0.8, "tick"); err != nil {
		t.Fatalf("RecordApplied: %v", err)
	}
	if err := l.RecordApplied(2, 0.2, "force"); err != nil {
		t.Fatalf("RecordApplied: %v", err)
	}

	entries, err := l.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Newest first.
	if entries[0].ScheduleID != 2 || entries[0].Source != "force" {
		t.Errorf("entries[0] = %+v, want schedule 2 / force", entries[0])
	}
	if entries[1].ScheduleID != 1 || entries[1].Level != 0.8 {
		t.Errorf("entries[1] = %+v, want schedule 1 / 0.8", entries[1])
	}
}

func TestRecentLimit(t *testing.T) {
	l := openLedger(t)

	for i := 0; i < 5; i++ {
		if err := l.RecordApplied(1, 0.5, "tick"); err != nil {
			t.Fatalf("RecordApplied: %v", err)
		}
	}

	entries, err := l.Recent(3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3", len(entries))
	}
}

func TestCleanupKeepsFreshRows(t *testing.T) {
	l := openLedger(t)

	if err := l.RecordApplied(1, 0.5, "tick"); err != nil {
		t.Fatalf("RecordApplied: %v", err)
	}

	n, err := l.Cleanup(24 * time.Hour)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if n != 0 {
		t.Errorf("Cleanup removed %d fresh rows", n)
	}

	entries, err := l.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries after cleanup, want 1", len(entries))
	}
}
