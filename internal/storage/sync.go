package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"htracker/internal/core"
)

// PendingEntry is the minimal shape the export worker needs to queue work.
type PendingEntry struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

// GetPendingSyncEntries returns entries not yet mirrored to the export
// target, oldest first. This backs the worker's periodic scan, the safety
// net for lost queue messages.
func (s *Store) GetPendingSyncEntries(ctx context.Context, limit int) ([]PendingEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, version, created_at FROM entries
		 WHERE sync_status = 'pending' ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync entries: %w", err)
	}
	defer rows.Close()

	var out []PendingEntry
	for rows.Next() {
		var p PendingEntry
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Version, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending entry: %w", err)
		}
		p.CreatedAt = parseTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkEntrySynced records a successful export of the entry.
func (s *Store) MarkEntrySynced(ctx context.Context, id int64) error {
	if err := s.setSyncStatus(ctx, id, "synced"); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Entry marked as synced", "entry_id", id)
	return nil
}

// MarkEntrySyncError records a failed export; the periodic scan will not
// retry it until the entry changes again.
func (s *Store) MarkEntrySyncError(ctx context.Context, id int64) error {
	if err := s.setSyncStatus(ctx, id, "error"); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Entry marked with sync error", "entry_id", id)
	return nil
}

func (s *Store) setSyncStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE entries SET sync_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// GetEntryWithTracker loads an entry and its owning tracker without user
// scoping; the worker acts on ids it received from the queue, not on behalf
// of a request.
func (s *Store) GetEntryWithTracker(ctx context.Context, id int64) (core.Entry, core.Tracker, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumnsE+` FROM entries e WHERE e.id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return core.Entry{}, core.Tracker{}, ErrEntryNotFound
	}
	if err != nil {
		return core.Entry{}, core.Tracker{}, fmt.Errorf("get entry %d: %w", id, err)
	}

	trow := s.db.QueryRowContext(ctx,
		`SELECT `+trackerColumns+` FROM trackers WHERE id = ?`, e.TrackerID)
	t, err := scanTracker(trow)
	if err == sql.ErrNoRows {
		return core.Entry{}, core.Tracker{}, ErrTrackerNotFound
	}
	if err != nil {
		return core.Entry{}, core.Tracker{}, fmt.Errorf("get tracker %d: %w", e.TrackerID, err)
	}
	return e, t, nil
}
