package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"htracker/internal/core"
	"htracker/internal/storage"
)

// TrackerService orchestrates tracker operations over SQLite with a
// read-through cache for single-tracker lookups.
type TrackerService struct {
	storage *storage.Store
	cache   *TrackerCache
}

func NewTrackerService(storage *storage.Store, cache *TrackerCache) *TrackerService {
	return &TrackerService{storage: storage, cache: cache}
}

func (s *TrackerService) CreateTracker(ctx context.Context, t core.Tracker) (core.Tracker, error) {
	t.Status = defaultStatus(t.Status)
	if err := t.Validate(); err != nil {
		return core.Tracker{}, err
	}

	created, err := s.storage.CreateTracker(ctx, t)
	if err != nil {
		return core.Tracker{}, fmt.Errorf("create tracker: %w", err)
	}

	slog.InfoContext(ctx, "Tracker created",
		"tracker_id", created.ID, "type", string(created.Type), "user_id", created.UserID)
	return created, nil
}

func (s *TrackerService) GetTracker(ctx context.Context, userID string, id int64) (core.Tracker, error) {
	if s.cache != nil {
		if t, ok := s.cache.Get(userID, id); ok {
			return t, nil
		}
	}

	t, err := s.storage.GetTracker(ctx, userID, id)
	if err != nil {
		return core.Tracker{}, err
	}
	if s.cache != nil {
		s.cache.Set(t)
	}
	return t, nil
}

func (s *TrackerService) UpdateTracker(ctx context.Context, userID string, id int64, p storage.UpdateTrackerParams) (core.Tracker, error) {
	t, err := s.storage.UpdateTracker(ctx, userID, id, p)
	if err != nil {
		return core.Tracker{}, err
	}
	s.invalidate(userID, id)

	slog.InfoContext(ctx, "Tracker updated", "tracker_id", id, "user_id", userID)
	return t, nil
}

func (s *TrackerService) DeleteTracker(ctx context.Context, userID string, id int64) error {
	if err := s.storage.DeleteTracker(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(userID, id)

	slog.InfoContext(ctx, "Tracker deleted", "tracker_id", id, "user_id", userID)
	return nil
}

func (s *TrackerService) ListTrackers(ctx context.Context, userID string, f storage.TrackerFilter) ([]core.Tracker, int64, error) {
	return s.storage.ListTrackers(ctx, userID, f)
}

// PeriodStats always hits the database so totals reflect the latest writes.
func (s *TrackerService) PeriodStats(ctx context.Context, userID string, id int64, now time.Time) (core.PeriodTotals, error) {
	return s.storage.PeriodStats(ctx, userID, id, now)
}

// RecomputeStatistics rebuilds the tracker's rollup from its entries.
func (s *TrackerService) RecomputeStatistics(ctx context.Context, userID string, id int64) (core.Statistics, error) {
	st, err := s.storage.RecomputeStatistics(ctx, userID, id)
	if err != nil {
		return core.Statistics{}, err
	}
	s.invalidate(userID, id)
	return st, nil
}

func (s *TrackerService) invalidate(userID string, id int64) {
	if s.cache != nil {
		s.cache.Invalidate(userID, id)
	}
}

func defaultStatus(st core.TrackerStatus) core.TrackerStatus {
	if st == "" {
		return core.StatusActive
	}
	return st
}
