package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"htracker/internal/core"
)

const (
	entryColumns = `id, tracker_id, date, start_time, end_time, duration, value, note, tags, version, created_at`
	// entryColumnsE is entryColumns qualified for joins aliased as e.
	entryColumnsE = `e.id, e.tracker_id, e.date, e.start_time, e.end_time, e.duration, e.value, e.note, e.tags, e.version, e.created_at`
)

func scanEntry(row rowScanner) (core.Entry, error) {
	var e core.Entry
	var date, createdAt, tags string
	var start, end sql.NullString
	var value sql.NullFloat64
	err := row.Scan(&e.ID, &e.TrackerID, &date, &start, &end, &e.Duration,
		&value, &e.Note, &tags, &e.Version, &createdAt)
	if err != nil {
		return core.Entry{}, err
	}
	e.Date = parseTime(date)
	e.CreatedAt = parseTime(createdAt)
	e.Tags = core.SplitTags(tags)
	if start.Valid {
		t := parseTime(start.String)
		e.StartTime = &t
	}
	if end.Valid {
		t := parseTime(end.String)
		e.EndTime = &t
	}
	if value.Valid {
		v := value.Float64
		e.Value = &v
	}
	return e, nil
}

func getTrackerTx(ctx context.Context, tx *sql.Tx, userID string, id int64) (core.Tracker, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+trackerColumns+` FROM trackers WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTracker(row)
	if err == sql.ErrNoRows {
		return core.Tracker{}, ErrTrackerNotFound
	}
	if err != nil {
		return core.Tracker{}, fmt.Errorf("get tracker %d: %w", id, err)
	}
	return t, nil
}

func getEntryTx(ctx context.Context, tx *sql.Tx, userID string, id int64) (core.Entry, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+entryColumnsE+`
		 FROM entries e JOIN trackers t ON t.id = e.tracker_id
		 WHERE e.id = ? AND t.user_id = ?`, id, userID)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return core.Entry{}, ErrEntryNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry %d: %w", id, err)
	}
	return e, nil
}

// truncateEntryTimes drops sub-second precision before an entry is
// classified or written. RFC3339 storage keeps whole seconds only, so the
// in-memory statistics branches and the SQL recompute must see identical
// timestamps or a sub-second timer session would count on one path and not
// the other.
func truncateEntryTimes(e *core.Entry) {
	e.Date = e.Date.Truncate(time.Second)
	if e.StartTime != nil {
		t := e.StartTime.Truncate(time.Second)
		e.StartTime = &t
	}
	if e.EndTime != nil {
		t := e.EndTime.Truncate(time.Second)
		e.EndTime = &t
	}
}

// writeStatsTx persists a tracker's statistics and bumps its updated_at,
// inside the caller's transaction.
func writeStatsTx(ctx context.Context, tx *sql.Tx, trackerID int64, st core.Statistics) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE trackers
		 SET total_entries = ?, total_time = ?, total_value = ?, total_custom = ?, updated_at = ?
		 WHERE id = ?`,
		st.TotalEntries, st.TotalTime, st.TotalValue, st.TotalCustom,
		formatTime(time.Now()), trackerID)
	if err != nil {
		return fmt.Errorf("write tracker statistics: %w", err)
	}
	return nil
}

// CreateEntry inserts an entry and applies the create-time statistics rules
// to its tracker. Entry write and statistics write share one transaction: a
// missing tracker fails the whole mutation.
func (s *Store) CreateEntry(ctx context.Context, userID string, e core.Entry) (core.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Entry{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	tracker, err := getTrackerTx(ctx, tx, userID, e.TrackerID)
	if err != nil {
		return core.Entry{}, err
	}
	now := time.Now()
	if e.Date.IsZero() {
		e.Date = now
	}
	truncateEntryTimes(&e)
	if err := e.Validate(tracker.Type); err != nil {
		return core.Entry{}, err
	}
	e.Duration = e.DurationSeconds()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO entries (tracker_id, date, start_time, end_time, duration, value, note, tags, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TrackerID, formatTime(e.Date), formatTimePtr(e.StartTime), formatTimePtr(e.EndTime),
		e.Duration, e.Value, e.Note, core.JoinTags(e.Tags), formatTime(now),
	)
	if err != nil {
		return core.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	id, _ := res.LastInsertId()

	st := tracker.Statistics
	st.AddEntry(tracker.Type, e)
	if err := writeStatsTx(ctx, tx, tracker.ID, st); err != nil {
		return core.Entry{}, err
	}

	stored, err := getEntryTx(ctx, tx, userID, id)
	if err != nil {
		return core.Entry{}, err
	}
	if err := tx.Commit(); err != nil {
		return core.Entry{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Entry created",
		"entry_id", stored.ID, "tracker_id", tracker.ID, "tracker_type", string(tracker.Type))
	return stored, nil
}

// UpdateEntryParams carries a partial entry update; nil fields are unchanged.
type UpdateEntryParams struct {
	Date      *time.Time
	StartTime *time.Time
	EndTime   *time.Time
	Value     *float64
	Note      *string
	Tags      *[]string
}

// UpdateEntry applies a partial update and then fully recomputes the owning
// tracker's statistics from the entry set with aggregate queries. Computing a
// correct delta needs both old and new field values and is easy to get wrong;
// recomputation is the bug-resistant policy.
func (s *Store) UpdateEntry(ctx context.Context, userID string, id int64, p UpdateEntryParams) (core.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Entry{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	e, err := getEntryTx(ctx, tx, userID, id)
	if err != nil {
		return core.Entry{}, err
	}
	tracker, err := getTrackerTx(ctx, tx, userID, e.TrackerID)
	if err != nil {
		return core.Entry{}, err
	}

	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.StartTime != nil {
		e.StartTime = p.StartTime
	}
	if p.EndTime != nil {
		e.EndTime = p.EndTime
	}
	if p.Value != nil {
		e.Value = p.Value
	}
	if p.Note != nil {
		e.Note = *p.Note
	}
	if p.Tags != nil {
		e.Tags = *p.Tags
	}
	truncateEntryTimes(&e)
	if err := e.Validate(tracker.Type); err != nil {
		return core.Entry{}, err
	}
	e.Duration = e.DurationSeconds()

	_, err = tx.ExecContext(ctx,
		`UPDATE entries
		 SET date = ?, start_time = ?, end_time = ?, duration = ?, value = ?, note = ?, tags = ?,
		     version = version + 1, sync_status = 'pending'
		 WHERE id = ?`,
		formatTime(e.Date), formatTimePtr(e.StartTime), formatTimePtr(e.EndTime),
		e.Duration, e.Value, e.Note, core.JoinTags(e.Tags), id,
	)
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry %d: %w", id, err)
	}

	st, err := recomputeStatsTx(ctx, tx, tracker)
	if err != nil {
		return core.Entry{}, err
	}
	if err := writeStatsTx(ctx, tx, tracker.ID, st); err != nil {
		return core.Entry{}, err
	}

	stored, err := getEntryTx(ctx, tx, userID, id)
	if err != nil {
		return core.Entry{}, err
	}
	if err := tx.Commit(); err != nil {
		return core.Entry{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Entry updated",
		"entry_id", id, "tracker_id", tracker.ID, "version", stored.Version)
	return stored, nil
}

// DeleteEntry removes an entry and subtracts its contribution from the
// tracker's statistics, flooring at zero, in one transaction.
func (s *Store) DeleteEntry(ctx context.Context, userID string, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	e, err := getEntryTx(ctx, tx, userID, id)
	if err != nil {
		return err
	}
	tracker, err := getTrackerTx(ctx, tx, userID, e.TrackerID)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}

	st := tracker.Statistics
	st.RemoveEntry(tracker.Type, e)
	if err := writeStatsTx(ctx, tx, tracker.ID, st); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Entry deleted", "entry_id", id, "tracker_id", tracker.ID)
	return nil
}

// GetEntry returns one entry, scoped to the owning user.
func (s *Store) GetEntry(ctx context.Context, userID string, id int64) (core.Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumnsE+`
		 FROM entries e JOIN trackers t ON t.id = e.tracker_id
		 WHERE e.id = ? AND t.user_id = ?`, id, userID)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return core.Entry{}, ErrEntryNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry %d: %w", id, err)
	}
	return e, nil
}

// ListEntriesByTracker returns one page of a tracker's entries, newest date
// first, plus the total count. A missing tracker is an error, so entries of
// a deleted tracker are unreachable rather than silently empty.
func (s *Store) ListEntriesByTracker(ctx context.Context, userID string, trackerID int64, page, limit int) ([]core.Entry, int64, error) {
	if _, err := s.GetTracker(ctx, userID, trackerID); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE tracker_id = ?`, trackerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	f := TrackerFilter{Page: page, Limit: limit}
	lim, offset := f.pageBounds()
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE tracker_id = ?
		 ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`,
		trackerID, lim, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	return out, total, nil
}

// recomputeStatsTx re-derives the tracker's statistics from its entry set
// using aggregate queries. TotalCustom is preserved verbatim: it is never
// computed from entries.
func recomputeStatsTx(ctx context.Context, tx *sql.Tx, tracker core.Tracker) (core.Statistics, error) {
	st := core.Statistics{TotalCustom: tracker.Statistics.TotalCustom}

	var err error
	switch tracker.Type {
	case core.TypeTimer:
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*), COALESCE(SUM(duration), 0) FROM entries
			 WHERE tracker_id = ? AND start_time IS NOT NULL AND end_time IS NOT NULL
			   AND start_time <> end_time`,
			tracker.ID).Scan(&st.TotalEntries, &st.TotalTime)
	case core.TypeCounter, core.TypeAmount:
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*), COALESCE(SUM(value), 0) FROM entries
			 WHERE tracker_id = ? AND value IS NOT NULL`,
			tracker.ID).Scan(&st.TotalEntries, &st.TotalValue)
	default:
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM entries WHERE tracker_id = ?`,
			tracker.ID).Scan(&st.TotalEntries)
	}
	if err != nil {
		return core.Statistics{}, fmt.Errorf("recompute statistics: %w", err)
	}
	return st, nil
}

// RecomputeStatistics rebuilds a tracker's rollup from its entries. This is
// the ground-truth repair path for the denormalized cache.
func (s *Store) RecomputeStatistics(ctx context.Context, userID string, trackerID int64) (core.Statistics, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Statistics{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	tracker, err := getTrackerTx(ctx, tx, userID, trackerID)
	if err != nil {
		return core.Statistics{}, err
	}
	st, err := recomputeStatsTx(ctx, tx, tracker)
	if err != nil {
		return core.Statistics{}, err
	}
	if err := writeStatsTx(ctx, tx, trackerID, st); err != nil {
		return core.Statistics{}, err
	}
	if err := tx.Commit(); err != nil {
		return core.Statistics{}, fmt.Errorf("commit: %w", err)
	}
	return st, nil
}

// PeriodStats sums a tracker's activity over the day, week and month windows
// ending at now. Each window is one independent aggregate query, never a
// cumulative subtraction, so a bug in one window cannot corrupt another.
func (s *Store) PeriodStats(ctx context.Context, userID string, trackerID int64, now time.Time) (core.PeriodTotals, error) {
	tracker, err := s.GetTracker(ctx, userID, trackerID)
	if err != nil {
		return core.PeriodTotals{}, err
	}

	var out core.PeriodTotals
	windows := []struct {
		start time.Time
		dst   *float64
	}{
		{core.DayStart(now), &out.Today},
		{core.WeekStart(now), &out.Week},
		{core.MonthStart(now), &out.Month},
	}
	for _, w := range windows {
		v, err := s.windowTotal(ctx, tracker, w.start)
		if err != nil {
			return core.PeriodTotals{}, err
		}
		*w.dst = v
	}
	return out, nil
}

func (s *Store) windowTotal(ctx context.Context, tracker core.Tracker, start time.Time) (float64, error) {
	var v float64
	var err error
	switch tracker.Type {
	case core.TypeTimer:
		err = s.db.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(duration), 0) FROM entries
			 WHERE tracker_id = ? AND date >= ?
			   AND start_time IS NOT NULL AND end_time IS NOT NULL`,
			tracker.ID, formatTime(start)).Scan(&v)
	case core.TypeCounter, core.TypeAmount:
		err = s.db.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(value), 0) FROM entries
			 WHERE tracker_id = ? AND date >= ? AND value IS NOT NULL`,
			tracker.ID, formatTime(start)).Scan(&v)
	default:
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM entries WHERE tracker_id = ? AND date >= ?`,
			tracker.ID, formatTime(start)).Scan(&v)
	}
	if err != nil {
		return 0, fmt.Errorf("window total since %s: %w", start.Format(time.RFC3339), err)
	}
	return v, nil
}
