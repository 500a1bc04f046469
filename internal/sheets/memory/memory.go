package memory

import (
	"context"
	"fmt"
	"sync"

	ports "htracker/internal/sheets"
)

// Store is an in-memory export target, used in tests and when no spreadsheet
// is configured.
type Store struct {
	mu   sync.Mutex
	rows map[int64]ports.ExportRow
}

var (
	_ ports.EntryWriter  = (*Store)(nil)
	_ ports.EntryDeleter = (*Store)(nil)
)

func New() *Store {
	return &Store{rows: make(map[int64]ports.ExportRow)}
}

// Append stores the row keyed by entry id and returns a synthetic reference.
func (s *Store) Append(_ context.Context, row ports.ExportRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[row.EntryID] = row
	return fmt.Sprintf("mem:%d", row.EntryID), nil
}

// Delete drops the row for the entry; unknown entries are a no-op.
func (s *Store) Delete(_ context.Context, entryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, entryID)
	return nil
}

// Row returns the stored row for an entry, for assertions in tests.
func (s *Store) Row(entryID int64) (ports.ExportRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[entryID]
	return row, ok
}

// Len returns the number of exported rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
