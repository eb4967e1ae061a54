package summarycache

import (
	"context"
	"sync"
	"time"

	"github.com/driveview/driveview/pkg/metrics"
	"github.com/driveview/driveview/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"golang.org/x/sync/singleflight"
)

const DefaultCapacity = 10000

type Options struct {
	// Capacity bounds the number of summaries held in memory.
	Capacity int
	// TTL expires summaries this long after they were generated. Zero keeps
	// them until they're evicted or their fingerprint changes.
	TTL time.Duration
	// Store, if set, is read on a memory miss and written on every put.
	Store   Store
	Metrics *metrics.Metrics
	// Now is used for TTL checks and GeneratedAt.
	Now func() time.Time
}

// ComputeFunc produces the summary text and its kind for a cache miss.
type ComputeFunc func(ctx context.Context) (text string, kind string, err error)

// Cache maps a file id to its latest summary. A cached record is only
// returned when its fingerprint matches the one the caller observed; any
// other fingerprint is a miss. Records returned by the cache are shared and
// must not be modified.
type Cache struct {
	mu      sync.Mutex
	entries *lru
	ttl     time.Duration
	store   Store
	metrics *metrics.Metrics
	now     func() time.Time
	group   singleflight.Group
}

func New(opts Options) *Cache {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	c := &Cache{
		ttl:     opts.TTL,
		store:   opts.Store,
		metrics: opts.Metrics,
		now:     now,
	}
	c.entries = newLRU(opts.Capacity, opts.TTL, now, c.metrics.CacheEviction)
	return c
}

// Get returns the record for fileID if it was generated for fingerprint.
func (c *Cache) Get(ctx context.Context, fileID, fingerprint string) (*models.SummaryRecord, bool) {
	record, ok := c.lookup(ctx, fileID, fingerprint)
	if ok {
		c.metrics.CacheHit()
	} else {
		c.metrics.CacheMiss()
	}
	return record, ok
}

// Put stores a summary for fileID, replacing whatever was there before.
func (c *Cache) Put(ctx context.Context, fileID, fingerprint, text, kind string) *models.SummaryRecord {
	record := &models.SummaryRecord{
		FileID:      fileID,
		Fingerprint: fingerprint,
		SummaryText: text,
		Kind:        kind,
		GeneratedAt: c.now().UTC(),
	}

	c.mu.Lock()
	c.entries.put(record)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Put(ctx, record); err != nil {
			logger.FromContext(ctx).Err(err).Warn("failed to persist summary", logger.Data{"file_id": fileID})
		}
	}
	return record
}

// Invalidate forgets any summary for fileID.
func (c *Cache) Invalidate(ctx context.Context, fileID string) {
	c.mu.Lock()
	c.entries.delete(fileID)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Delete(ctx, fileID); err != nil {
			logger.FromContext(ctx).Err(err).Warn("failed to delete persisted summary", logger.Data{"file_id": fileID})
		}
	}
}

// GetOrCompute returns the cached summary for (fileID, fingerprint) or runs
// compute and caches its result. Concurrent callers for the same key share a
// single compute call. compute runs detached from the first caller's
// cancellation so that other waiters still get a result; callers that give up
// early get their context's error. The second return value reports whether
// the record came from the cache.
func (c *Cache) GetOrCompute(ctx context.Context, fileID, fingerprint string, compute ComputeFunc) (*models.SummaryRecord, bool, error) {
	if record, ok := c.Get(ctx, fileID, fingerprint); ok {
		return record, true, nil
	}

	key := fileID + "\x00" + fingerprint
	ch := c.group.DoChan(key, func() (interface{}, error) {
		computeCtx := context.WithoutCancel(ctx)
		// Another caller may have finished between our miss and now.
		if record, ok := c.lookup(computeCtx, fileID, fingerprint); ok {
			return record, nil
		}
		text, kind, err := compute(computeCtx)
		if err != nil {
			return nil, err
		}
		return c.Put(computeCtx, fileID, fingerprint, text, kind), nil
	})

	select {
	case <-ctx.Done():
		return nil, false, errors.WithStack(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*models.SummaryRecord), false, nil
	}
}

// Len returns the number of summaries held in memory.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.len()
}

func (c *Cache) lookup(ctx context.Context, fileID, fingerprint string) (*models.SummaryRecord, bool) {
	c.mu.Lock()
	record, ok := c.entries.get(fileID)
	c.mu.Unlock()
	if ok {
		return record, record.Fingerprint == fingerprint
	}

	if c.store == nil {
		return nil, false
	}
	record, err := c.store.Get(ctx, fileID)
	if err != nil {
		logger.FromContext(ctx).Err(err).Warn("failed to load persisted summary", logger.Data{"file_id": fileID})
		return nil, false
	}
	if record == nil || record.Fingerprint != fingerprint {
		return nil, false
	}
	if c.ttl > 0 && !c.now().Before(record.GeneratedAt.Add(c.ttl)) {
		return nil, false
	}

	c.mu.Lock()
	c.entries.put(record)
	c.mu.Unlock()
	return record, true
}
