package storage

import (
	"context"
	"testing"
	"time"

	"htracker/internal/core"
)

const testUser = "u1"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTracker(t *testing.T, s *Store, typ core.TrackerType) core.Tracker {
	t.Helper()
	tr, err := s.CreateTracker(context.Background(), core.Tracker{
		UserID: testUser,
		Name:   "test " + string(typ),
		Type:   typ,
		Status: core.StatusActive,
	})
	if err != nil {
		t.Fatalf("create tracker: %v", err)
	}
	return tr
}

func fptr(v float64) *float64 { return &v }

func tptr(v time.Time) *time.Time { return &v }

func sptr(s string) *string { return &s }

func TestNewMemoryMigrates(t *testing.T) {
	s := newTestStore(t)

	var fk int
	if err := s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fk)
	}

	// Schema is in place
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM trackers`).Scan(&n); err != nil {
		t.Fatalf("trackers table missing: %v", err)
	}
}

func TestNewWithPath(t *testing.T) {
	path := t.TempDir() + "/sub/htracker.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen; migrations must be idempotent.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s2.Close()
}
