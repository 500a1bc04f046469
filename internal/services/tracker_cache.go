package services

import (
	"fmt"
	"time"

	"htracker/internal/cache"
	"htracker/internal/core"
)

// TrackerCache caches single-tracker reads. Listings and period statistics
// are never cached: stats must reflect the current entry set on every read.
type TrackerCache struct {
	lru *cache.LRUCache[core.Tracker]
}

func NewTrackerCache(maxSize int, ttl time.Duration) *TrackerCache {
	return &TrackerCache{lru: cache.NewLRUCache[core.Tracker](maxSize, ttl)}
}

func (c *TrackerCache) Get(userID string, id int64) (core.Tracker, bool) {
	return c.lru.Get(trackerKey(userID, id))
}

func (c *TrackerCache) Set(t core.Tracker) {
	c.lru.Set(trackerKey(t.UserID, t.ID), t)
}

func (c *TrackerCache) Invalidate(userID string, id int64) {
	c.lru.Delete(trackerKey(userID, id))
}

// CleanExpired lets the cache manager sweep expired trackers.
func (c *TrackerCache) CleanExpired() int {
	return c.lru.CleanExpired()
}

func trackerKey(userID string, id int64) string {
	return fmt.Sprintf("%s:%d", userID, id)
}
