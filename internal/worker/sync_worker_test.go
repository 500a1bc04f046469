package worker

import (
	"context"
	"errors"
	"testing"

	"htracker/internal/amqp"
	"htracker/internal/core"
	"htracker/internal/sheets"
	"htracker/internal/sheets/memory"
	"htracker/internal/storage"
)

type failingWriter struct{}

func (failingWriter) Append(context.Context, sheets.ExportRow) (string, error) {
	return "", errors.New("export target unavailable")
}

func newWorkerFixture(t *testing.T) (*SyncWorker, *storage.Store, *memory.Store) {
	t.Helper()
	store, err := storage.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	target := memory.New()
	return NewSyncWorker(store, target, target, 10), store, target
}

func seedEntry(t *testing.T, store *storage.Store) (core.Tracker, core.Entry) {
	t.Helper()
	ctx := context.Background()
	tr, err := store.CreateTracker(ctx, core.Tracker{
		UserID: "u1", Name: "Pages", Type: core.TypeCounter, Status: core.StatusActive,
	})
	if err != nil {
		t.Fatal(err)
	}
	v := 12.0
	e, err := store.CreateEntry(ctx, "u1", core.Entry{TrackerID: tr.ID, Value: &v, Note: "ch. 3"})
	if err != nil {
		t.Fatal(err)
	}
	return tr, e
}

func TestHandleSyncMessage(t *testing.T) {
	w, store, target := newWorkerFixture(t)
	ctx := context.Background()
	tr, e := seedEntry(t, store)

	msg := amqp.NewEntrySyncMessage(e.ID, tr.ID, e.Version)
	if err := w.HandleMessage(ctx, msg); err != nil {
		t.Fatal(err)
	}

	row, ok := target.Row(e.ID)
	if !ok {
		t.Fatal("entry not exported")
	}
	if row.TrackerName != "Pages" || row.Note != "ch. 3" || row.Value == nil || *row.Value != 12 {
		t.Fatalf("row = %+v", row)
	}

	pending, err := store.GetPendingSyncEntries(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("entry still pending after export: %+v", pending)
	}
}

func TestHandleSyncMessageEntryGone(t *testing.T) {
	w, _, _ := newWorkerFixture(t)

	// The entry was deleted before the message was consumed; not an error,
	// the delete message will follow.
	msg := amqp.NewEntrySyncMessage(404, 1, 1)
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("expected nil for vanished entry, got %v", err)
	}
}

func TestHandleSyncMessageStaleRead(t *testing.T) {
	w, store, _ := newWorkerFixture(t)
	tr, e := seedEntry(t, store)

	// Message advertises a version the database does not show yet; the
	// handler must fail so the delivery is requeued.
	msg := amqp.NewEntrySyncMessage(e.ID, tr.ID, e.Version+1)
	if err := w.HandleSyncMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error for not-yet-visible version")
	}
}

func TestHandleDeleteMessage(t *testing.T) {
	w, store, target := newWorkerFixture(t)
	ctx := context.Background()
	tr, e := seedEntry(t, store)

	if err := w.HandleSyncMessage(ctx, amqp.NewEntrySyncMessage(e.ID, tr.ID, e.Version)); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleMessage(ctx, amqp.NewEntryDeleteMessage(e.ID, tr.ID)); err != nil {
		t.Fatal(err)
	}
	if target.Len() != 0 {
		t.Fatalf("row not removed, len=%d", target.Len())
	}
}

func TestStartupSyncCheckDrainsPending(t *testing.T) {
	w, store, target := newWorkerFixture(t)
	ctx := context.Background()

	tr, err := store.CreateTracker(ctx, core.Tracker{
		UserID: "u1", Name: "Walks", Type: core.TypeOccurrence, Status: core.StatusActive,
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := store.CreateEntry(ctx, "u1", core.Entry{TrackerID: tr.ID}); err != nil {
			t.Fatal(err)
		}
	}

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatal(err)
	}
	if target.Len() != 3 {
		t.Fatalf("exported %d rows, want 3", target.Len())
	}

	pending, err := store.GetPendingSyncEntries(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("still pending: %+v", pending)
	}
}

func TestExportFailureMarksError(t *testing.T) {
	store, err := storage.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	w := NewSyncWorker(store, failingWriter{}, nil, 10)

	tr, e := seedEntry(t, store)
	ctx := context.Background()

	if err := w.HandleSyncMessage(ctx, amqp.NewEntrySyncMessage(e.ID, tr.ID, e.Version)); err == nil {
		t.Fatal("expected export error")
	}

	// Marked as error: the periodic scan must not pick it up again
	pending, err := store.GetPendingSyncEntries(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("failed entry still pending: %+v", pending)
	}
}

func TestHandleMessageUnknownType(t *testing.T) {
	w, _, _ := newWorkerFixture(t)

	msg := &amqp.EntryMessage{Type: "entry.mystery", ID: 1}
	if err := w.HandleMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
