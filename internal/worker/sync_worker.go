package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"htracker/internal/amqp"
	"htracker/internal/core"
	"htracker/internal/sheets"
	"htracker/internal/storage"
)

// SyncWorker mirrors entries from SQLite to the export target. It is driven
// by queue messages, with a periodic pending-scan as the safety net for lost
// messages.
type SyncWorker struct {
	storage   *storage.Store
	writer    sheets.EntryWriter
	deleter   sheets.EntryDeleter
	batchSize int
}

func NewSyncWorker(storage *storage.Store, writer sheets.EntryWriter, deleter sheets.EntryDeleter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		writer:    writer,
		deleter:   deleter,
		batchSize: batchSize,
	}
}

// HandleMessage dispatches one queue message by type.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.EntryMessage) error {
	switch msg.Type {
	case amqp.TypeEntrySync:
		return w.HandleSyncMessage(ctx, msg)
	case amqp.TypeEntryDelete:
		return w.HandleDeleteMessage(ctx, msg)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// HandleSyncMessage exports a single entry.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.EntryMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "entry_id", msg.ID, "version", msg.Version)

	entry, tracker, err := w.storage.GetEntryWithTracker(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, storage.ErrEntryNotFound) {
			// Deleted between publish and consume; the delete message follows
			slog.InfoContext(ctx, "Entry gone before sync, skipping", "entry_id", msg.ID)
			return nil
		}
		return fmt.Errorf("get entry from storage: %w", err)
	}

	if entry.Version < msg.Version {
		return fmt.Errorf("entry %d version %d not yet visible, want %d", msg.ID, entry.Version, msg.Version)
	}

	return w.exportEntry(ctx, entry, tracker)
}

// HandleDeleteMessage removes a deleted entry's row from the export target.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.EntryMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "entry_id", msg.ID)

	if w.deleter == nil {
		slog.WarnContext(ctx, "No entry deleter configured, skipping export deletion",
			"entry_id", msg.ID)
		return nil
	}

	if err := w.deleter.Delete(ctx, msg.ID); err != nil {
		return fmt.Errorf("delete entry from export target: %w", err)
	}

	slog.InfoContext(ctx, "Entry removed from export target", "entry_id", msg.ID)
	return nil
}

// ProcessPendingEntries exports entries the queue path missed. This is the
// backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingEntries(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncEntries(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending entries: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending entries", "count", len(pending))
	w.exportBatch(ctx, pending)
	return nil
}

// StartupSyncCheck drains pending entries left over from missed messages or
// worker downtime. Runs once at worker startup with a larger batch.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncEntries(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending entries for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending entries found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending entries on startup, processing...",
		"count", len(pending))

	synced, failed := w.exportBatch(ctx, pending)
	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending), "synced", synced, "errors", failed)
	return nil
}

// RunPendingScan loops ProcessPendingEntries on the given interval until ctx
// is cancelled.
func (w *SyncWorker) RunPendingScan(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPendingEntries(ctx); err != nil {
				slog.ErrorContext(ctx, "Pending scan failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) exportBatch(ctx context.Context, pending []storage.PendingEntry) (synced, failed int) {
	for _, p := range pending {
		entry, tracker, err := w.storage.GetEntryWithTracker(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load pending entry", "entry_id", p.ID, "error", err)
			if err := w.storage.MarkEntrySyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "entry_id", p.ID, "error", err)
			}
			failed++
			continue
		}
		if err := w.exportEntry(ctx, entry, tracker); err != nil {
			slog.ErrorContext(ctx, "Failed to export entry", "entry_id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed
}

func (w *SyncWorker) exportEntry(ctx context.Context, entry core.Entry, tracker core.Tracker) error {
	ref, err := w.writer.Append(ctx, exportRow(entry, tracker))
	if err != nil {
		if markErr := w.storage.MarkEntrySyncError(ctx, entry.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "entry_id", entry.ID, "error", markErr)
		}
		return fmt.Errorf("append to export target: %w", err)
	}

	if err := w.storage.MarkEntrySynced(ctx, entry.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "entry_id", entry.ID, "error", err)
		// Don't return an error here, the export actually worked
	}

	slog.InfoContext(ctx, "Entry exported",
		"entry_id", entry.ID, "tracker_id", tracker.ID, "row_ref", ref)
	return nil
}

func exportRow(e core.Entry, t core.Tracker) sheets.ExportRow {
	row := sheets.ExportRow{
		EntryID:     e.ID,
		TrackerID:   t.ID,
		TrackerName: t.Name,
		TrackerType: string(t.Type),
		Date:        e.Date.UTC().Format("2006-01-02"),
		Duration:    e.Duration,
		Value:       e.Value,
		Note:        e.Note,
		Version:     e.Version,
	}
	if e.StartTime != nil {
		row.StartTime = e.StartTime.UTC().Format(time.RFC3339)
	}
	if e.EndTime != nil {
		row.EndTime = e.EndTime.UTC().Format(time.RFC3339)
	}
	return row
}
