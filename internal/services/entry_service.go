package services

import (
	"context"
	"fmt"
	"log/slog"

	"htracker/internal/amqp"
	"htracker/internal/core"
	"htracker/internal/storage"
)

// EntryService orchestrates entry operations across SQLite and AMQP. Writes
// go to SQLite first (fast, reliable); the export message is published
// afterwards and never fails the request.
type EntryService struct {
	storage    *storage.Store
	amqpClient *amqp.Client
	cache      *TrackerCache
}

func NewEntryService(storage *storage.Store, amqpClient *amqp.Client, cache *TrackerCache) *EntryService {
	return &EntryService{
		storage:    storage,
		amqpClient: amqpClient,
		cache:      cache,
	}
}

func (s *EntryService) CreateEntry(ctx context.Context, userID string, e core.Entry) (core.Entry, error) {
	created, err := s.storage.CreateEntry(ctx, userID, e)
	if err != nil {
		return core.Entry{}, err
	}
	s.invalidateTracker(userID, created.TrackerID)

	if err := s.publishSync(ctx, created); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"entry_id", created.ID, "error", err)
		// Don't fail the request, the entry is saved locally
	}
	return created, nil
}

func (s *EntryService) UpdateEntry(ctx context.Context, userID string, id int64, p storage.UpdateEntryParams) (core.Entry, error) {
	updated, err := s.storage.UpdateEntry(ctx, userID, id, p)
	if err != nil {
		return core.Entry{}, err
	}
	s.invalidateTracker(userID, updated.TrackerID)

	if err := s.publishSync(ctx, updated); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"entry_id", id, "error", err)
	}
	return updated, nil
}

func (s *EntryService) DeleteEntry(ctx context.Context, userID string, id int64) error {
	// Load before delete so the queue message carries the tracker id
	e, err := s.storage.GetEntry(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteEntry(ctx, userID, id); err != nil {
		return err
	}
	s.invalidateTracker(userID, e.TrackerID)

	if err := s.publishDelete(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"entry_id", id, "error", err)
	}
	return nil
}

func (s *EntryService) GetEntry(ctx context.Context, userID string, id int64) (core.Entry, error) {
	return s.storage.GetEntry(ctx, userID, id)
}

func (s *EntryService) ListEntriesByTracker(ctx context.Context, userID string, trackerID int64, page, limit int) ([]core.Entry, int64, error) {
	return s.storage.ListEntriesByTracker(ctx, userID, trackerID, page, limit)
}

func (s *EntryService) publishSync(ctx context.Context, e core.Entry) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishEntrySync(ctx, e.ID, e.TrackerID, e.Version)
}

func (s *EntryService) publishDelete(ctx context.Context, e core.Entry) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}
	return s.amqpClient.PublishEntryDelete(ctx, e.ID, e.TrackerID)
}

func (s *EntryService) invalidateTracker(userID string, trackerID int64) {
	if s.cache != nil {
		s.cache.Invalidate(userID, trackerID)
	}
}

// Close closes both storage and AMQP connections.
func (s *EntryService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close entry service: %v", errs)
	}
	return nil
}
