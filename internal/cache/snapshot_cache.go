// Package cache memoizes the submission snapshot read from the remote store.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-feedback-insights/internal/models"
	"github.com/noah-isme/gema-feedback-insights/internal/observability"
	"github.com/noah-isme/gema-feedback-insights/internal/repository"
)

const (
	// DefaultTTL is how long a fetched snapshot stays valid.
	DefaultTTL = 60 * time.Second
	// DefaultFetchTimeout bounds a single live fetch.
	DefaultFetchTimeout = 10 * time.Second
)

type entry struct {
	payload   []models.Submission
	fetchedAt time.Time
}

// SnapshotCache holds at most one snapshot of the submission table.
//
// The mutex is held across check, fetch and store: concurrent callers that
// find the entry expired queue behind the caller doing the live fetch and
// then read its result, so each expiry triggers exactly one store read.
type SnapshotCache struct {
	source       repository.SubmissionSource
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	logger       zerolog.Logger

	mu    sync.Mutex
	entry *entry
}

// Option customises a SnapshotCache.
type Option func(*SnapshotCache)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *SnapshotCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithFetchTimeout bounds every live fetch. Zero or negative disables the bound.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(c *SnapshotCache) {
		c.fetchTimeout = timeout
	}
}

// WithLogger sets the logger used for fetch failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *SnapshotCache) {
		c.logger = logger.With().Str("component", "snapshot_cache").Logger()
	}
}

// NewSnapshotCache wraps the source with a TTL cache. A non-positive ttl falls back to DefaultTTL.
func NewSnapshotCache(source repository.SubmissionSource, ttl time.Duration, opts ...Option) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &SnapshotCache{
		source:       source,
		ttl:          ttl,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot is a copy of the cached rows together with the instant they were
// read from the store. FetchedAt is zero when the rows stand in for a failed
// fetch.
type Snapshot struct {
	Rows      []models.Submission
	FetchedAt time.Time
}

// Fetched reports the read instant, false when the snapshot is a fallback.
func (s Snapshot) Fetched() (time.Time, bool) {
	return s.FetchedAt, !s.FetchedAt.IsZero()
}

// Fetch returns the cached snapshot rows, reading the store when there is no
// entry or the entry is older than the ttl. Store failures yield an empty
// snapshot and leave the cache empty so the next call retries.
func (c *SnapshotCache) Fetch(ctx context.Context) []models.Submission {
	return c.FetchSnapshot(ctx).Rows
}

// FetchSnapshot is Fetch that also returns the read instant of the rows it
// hands out, both taken under the same lock.
func (c *SnapshotCache) FetchSnapshot(ctx context.Context) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fetchLocked(ctx)
}

// Invalidate discards the held snapshot.
func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
}

// Refresh forces a live fetch.
func (c *SnapshotCache) Refresh(ctx context.Context) []models.Submission {
	return c.RefreshSnapshot(ctx).Rows
}

// RefreshSnapshot drops the held entry and reads the store without releasing
// the lock in between.
func (c *SnapshotCache) RefreshSnapshot(ctx context.Context) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entry = nil
	return c.fetchLocked(ctx)
}

// FetchedAt reports when the held snapshot was read.
func (c *SnapshotCache) FetchedAt() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entry == nil {
		return time.Time{}, false
	}
	return c.entry.fetchedAt, true
}

func (c *SnapshotCache) fetchLocked(ctx context.Context) Snapshot {
	now := c.now()
	if c.entry != nil && now.Sub(c.entry.fetchedAt) < c.ttl {
		observability.SnapshotLookups().WithLabelValues("hit").Inc()
		return Snapshot{Rows: clonePayload(c.entry.payload), FetchedAt: c.entry.fetchedAt}
	}
	observability.SnapshotLookups().WithLabelValues("miss").Inc()

	payload, err := c.load(ctx)
	if err != nil {
		c.entry = nil
		observability.SnapshotFetchErrors().Inc()
		c.logger.Warn().Err(err).Msg("submission fetch failed, serving empty snapshot")
		return Snapshot{Rows: []models.Submission{}}
	}

	c.entry = &entry{payload: payload, fetchedAt: now}
	observability.SnapshotRows().Set(float64(len(payload)))
	c.logger.Debug().Int("rows", len(payload)).Msg("submission snapshot refreshed")

	return Snapshot{Rows: clonePayload(payload), FetchedAt: now}
}

func (c *SnapshotCache) load(ctx context.Context) ([]models.Submission, error) {
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}

	start := time.Now()
	payload, err := c.source.ListLatestFirst(ctx)
	observability.SnapshotFetchDuration().Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if payload == nil {
		payload = []models.Submission{}
	}
	return payload, nil
}

func clonePayload(payload []models.Submission) []models.Submission {
	cloned := make([]models.Submission, len(payload))
	copy(cloned, payload)
	return cloned
}
