// Package insight acquires the AI narrative shown for the selected
// instrument: an hour-bucketed cache in front of a prioritized model cascade
// with a deterministic local fallback.
package insight

import (
	"context"
	"sync"
	"time"

	"github.com/ahmadfadadm/indostock-ai/internal/model"
)

// BucketLayout formats the wall-clock hour used as the cache key.
const BucketLayout = "2006-01-02T15"

// HourBucket returns the hour bucket t falls in, in t's location.
func HourBucket(t time.Time) string { return t.Format(BucketLayout) }

// Cache maps (instrument, current hour bucket) to a narrative.
type Cache interface {
	Get(ctx context.Context, code string) (model.InsightRecord, bool)
	Put(ctx context.Context, code string, rec model.InsightRecord)
}

var _ Cache = (*MemoryCache)(nil)

// MemoryCache is the in-process Cache. Entries for past hours are never read
// again and are not swept.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]model.InsightRecord
	now     func() time.Time
}

// NewMemoryCache creates a MemoryCache on the local clock.
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithClock(time.Now)
}

// NewMemoryCacheWithClock creates a MemoryCache on a custom clock.
func NewMemoryCacheWithClock(now func() time.Time) *MemoryCache {
	return &MemoryCache{entries: make(map[string]model.InsightRecord), now: now}
}

func (c *MemoryCache) key(code string) string {
	return code + "|" + HourBucket(c.now())
}

func (c *MemoryCache) Get(_ context.Context, code string) (model.InsightRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.entries[c.key(code)]
	return rec, ok
}

func (c *MemoryCache) Put(_ context.Context, code string, rec model.InsightRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec.FetchedAtBucket == "" {
		rec.FetchedAtBucket = HourBucket(c.now())
	}
	c.entries[c.key(code)] = rec
}
