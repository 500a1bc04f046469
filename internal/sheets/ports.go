package sheets

import (
	"context"
)

// ExportRow is the flattened entry shape written to the export target. One
// entry maps to one row; the entry id makes the row addressable for later
// updates and deletes.
type ExportRow struct {
	EntryID     int64
	TrackerID   int64
	TrackerName string
	TrackerType string
	Date        string // YYYY-MM-DD
	StartTime   string // RFC3339, empty when unset
	EndTime     string
	Duration    int64
	Value       *float64
	Note        string
	Version     int64
}

// Ports for outbound adapters.
type (
	EntryWriter interface {
		// Append writes or rewrites the row for an entry and returns a
		// target-specific row reference.
		Append(ctx context.Context, row ExportRow) (rowRef string, err error)
	}

	EntryDeleter interface {
		// Delete removes the row for an entry; deleting an entry that was
		// never exported is not an error.
		Delete(ctx context.Context, entryID int64) error
	}
)
