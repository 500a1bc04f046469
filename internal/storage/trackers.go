package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"htracker/internal/core"
)

const trackerColumns = `id, user_id, name, description, type, status, tags, color, icon,
	total_entries, total_time, total_value, total_custom, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTracker(row rowScanner) (core.Tracker, error) {
	var t core.Tracker
	var typ, status, tags, createdAt, updatedAt string
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Description, &typ, &status, &tags,
		&t.Color, &t.Icon,
		&t.Statistics.TotalEntries, &t.Statistics.TotalTime,
		&t.Statistics.TotalValue, &t.Statistics.TotalCustom,
		&createdAt, &updatedAt)
	if err != nil {
		return core.Tracker{}, err
	}
	t.Type = core.TrackerType(typ)
	t.Status = core.TrackerStatus(status)
	t.Tags = core.SplitTags(tags)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

// CreateTracker inserts a new tracker with zeroed statistics.
func (s *Store) CreateTracker(ctx context.Context, t core.Tracker) (core.Tracker, error) {
	now := formatTime(time.Now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO trackers (user_id, name, description, type, status, tags, color, icon, total_custom, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Name, t.Description, string(t.Type), string(t.Status),
		core.JoinTags(t.Tags), t.Color, t.Icon, t.Statistics.TotalCustom, now, now,
	)
	if err != nil {
		return core.Tracker{}, fmt.Errorf("create tracker: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetTracker(ctx, t.UserID, id)
}

// GetTracker returns the tracker with the given id owned by userID.
func (s *Store) GetTracker(ctx context.Context, userID string, id int64) (core.Tracker, error) {
	row := s.db.QueryRowContext(ctx,
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

// UpdateTrackerParams carries a partial tracker update. Nil fields are left
// unchanged. Type is accepted only when it matches the stored type: the
// tracker type is immutable after creation.
type UpdateTrackerParams struct {
	Name        *string
	Description *string
	Type        *core.TrackerType
	Status      *core.TrackerStatus
	Tags        *[]string
	Color       *string
	Icon        *string
	TotalCustom *string
}

func (s *Store) UpdateTracker(ctx context.Context, userID string, id int64, p UpdateTrackerParams) (core.Tracker, error) {
	cur, err := s.GetTracker(ctx, userID, id)
	if err != nil {
		return core.Tracker{}, err
	}
	if p.Type != nil && *p.Type != cur.Type {
		return core.Tracker{}, core.ErrTypeImmutable
	}

	merged := cur
	if p.Name != nil {
		merged.Name = *p.Name
	}
	if p.Description != nil {
		merged.Description = *p.Description
	}
	if p.Status != nil {
		merged.Status = *p.Status
	}
	if p.Tags != nil {
		merged.Tags = *p.Tags
	}
	if p.Color != nil {
		merged.Color = *p.Color
	}
	if p.Icon != nil {
		merged.Icon = *p.Icon
	}
	if p.TotalCustom != nil {
		merged.Statistics.TotalCustom = *p.TotalCustom
	}
	// The merged tracker must satisfy the same constraints as a new one.
	if err := merged.Validate(); err != nil {
		return core.Tracker{}, err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE trackers
		 SET name = ?, description = ?, status = ?, tags = ?, color = ?, icon = ?, total_custom = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		merged.Name, merged.Description, string(merged.Status), core.JoinTags(merged.Tags),
		merged.Color, merged.Icon, merged.Statistics.TotalCustom, formatTime(time.Now()),
		id, userID)
	if err != nil {
		return core.Tracker{}, fmt.Errorf("update tracker %d: %w", id, err)
	}
	return s.GetTracker(ctx, userID, id)
}

// DeleteTracker removes the tracker; its entries go with it via the cascade.
func (s *Store) DeleteTracker(ctx context.Context, userID string, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM trackers WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete tracker %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTrackerNotFound
	}
	return nil
}

// TrackerFilter narrows and orders a tracker listing.
type TrackerFilter struct {
	Status *core.TrackerStatus
	Type   *core.TrackerType
	Search string // free text over name, description, tags
	Sort   string // name | created | updated (default updated)
	Order  string // asc | desc (default desc)
	Page   int    // 1-based
	Limit  int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (f TrackerFilter) pageBounds() (limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

func (f TrackerFilter) orderClause() string {
	col := "updated_at"
	switch f.Sort {
	case "name":
		col = "name COLLATE NOCASE"
	case "created":
		col = "created_at"
	case "updated", "":
		col = "updated_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		dir = "ASC"
	}
	return col + " " + dir
}

// ListTrackers returns one page of the user's trackers plus the total number
// matching the filter.
func (s *Store) ListTrackers(ctx context.Context, userID string, f TrackerFilter) ([]core.Tracker, int64, error) {
	where := `WHERE user_id = ?`
	args := []any{userID}

	if f.Status != nil {
		where += ` AND status = ?`
		args = append(args, string(*f.Status))
	}
	if f.Type != nil {
		where += ` AND type = ?`
		args = append(args, string(*f.Type))
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		where += ` AND (name LIKE ? OR description LIKE ? OR tags LIKE ?)`
		pat := "%" + q + "%"
		args = append(args, pat, pat, pat)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trackers `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count trackers: %w", err)
	}

	limit, offset := f.pageBounds()
	query := `SELECT ` + trackerColumns + ` FROM trackers ` + where +
		` ORDER BY ` + f.orderClause() + ` LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list trackers: %w", err)
	}
	defer rows.Close()

	var out []core.Tracker
	for rows.Next() {
		t, err := scanTracker(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan tracker: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list trackers: %w", err)
	}
	return out, total, nil
}
