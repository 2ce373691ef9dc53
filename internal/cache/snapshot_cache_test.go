package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-feedback-insights/internal/models"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	rows  []models.Submission
	err   error
	delay time.Duration
}

func (f *fakeSource) ListLatestFirst(ctx context.Context) ([]models.Submission, error) {
	f.mu.Lock()
	f.calls++
	rows, err, delay := f.rows, f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return append([]models.Submission(nil), rows...), nil
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestSnapshotCacheServesWithinTTL(t *testing.T) {
	source := &fakeSource{rows: []models.Submission{{StudentID: "A"}}}
	clock := newClock()
	cache := NewSnapshotCache(source, time.Minute, WithClock(clock.Now))

	ctx := context.Background()
	require.Len(t, cache.Fetch(ctx), 1)
	clock.Advance(59 * time.Second)
	require.Len(t, cache.Fetch(ctx), 1)
	require.Equal(t, 1, source.Calls())

	clock.Advance(time.Second)
	cache.Fetch(ctx)
	require.Equal(t, 2, source.Calls(), "entry expires once the ttl has fully elapsed")
}

func TestSnapshotCacheInvalidateForcesLiveFetch(t *testing.T) {
	source := &fakeSource{rows: []models.Submission{{StudentID: "A"}}}
	clock := newClock()
	cache := NewSnapshotCache(source, time.Minute, WithClock(clock.Now))

	ctx := context.Background()
	cache.Fetch(ctx)
	cache.Invalidate()
	_, held := cache.FetchedAt()
	require.False(t, held)

	cache.Fetch(ctx)
	require.Equal(t, 2, source.Calls())

	source.rows = []models.Submission{{StudentID: "A"}, {StudentID: "B"}}
	require.Len(t, cache.Refresh(ctx), 2)
	require.Equal(t, 3, source.Calls())

	fetchedAt, held := cache.FetchedAt()
	require.True(t, held)
	require.Equal(t, clock.Now(), fetchedAt)
}

func TestSnapshotCacheFailureReturnsEmptyAndRetries(t *testing.T) {
	source := &fakeSource{err: errors.New("connection reset")}
	cache := NewSnapshotCache(source, time.Minute, WithClock(newClock().Now))

	ctx := context.Background()
	rows := cache.Fetch(ctx)
	require.NotNil(t, rows)
	require.Empty(t, rows)

	source.mu.Lock()
	source.err = nil
	source.rows = []models.Submission{{StudentID: "A"}}
	source.mu.Unlock()

	require.Len(t, cache.Fetch(ctx), 1)
	require.Equal(t, 2, source.Calls(), "failed fetches are not cached")
}

func TestSnapshotCacheCachesEmptySnapshot(t *testing.T) {
	source := &fakeSource{}
	cache := NewSnapshotCache(source, time.Minute, WithClock(newClock().Now))

	ctx := context.Background()
	require.Empty(t, cache.Fetch(ctx))
	require.Empty(t, cache.Fetch(ctx))
	require.Equal(t, 1, source.Calls())
}

func TestSnapshotCacheReturnsCopies(t *testing.T) {
	source := &fakeSource{rows: []models.Submission{{StudentID: "A"}}}
	cache := NewSnapshotCache(source, time.Minute, WithClock(newClock().Now))

	ctx := context.Background()
	first := cache.Fetch(ctx)
	first[0].StudentID = "mutated"

	second := cache.Fetch(ctx)
	require.Equal(t, "A", second[0].StudentID)
}

func TestSnapshotCacheAppliesFetchTimeout(t *testing.T) {
	source := &fakeSource{rows: []models.Submission{{StudentID: "A"}}, delay: time.Second}
	cache := NewSnapshotCache(source, time.Minute, WithClock(newClock().Now), WithFetchTimeout(10*time.Millisecond))

	require.Empty(t, cache.Fetch(context.Background()))
}

func TestSnapshotCacheSingleFetchUnderConcurrency(t *testing.T) {
	source := &fakeSource{rows: []models.Submission{{StudentID: "A"}}, delay: 20 * time.Millisecond}
	cache := NewSnapshotCache(source, time.Minute, WithClock(newClock().Now))

	var wg sync.WaitGroup
	var served atomic.Int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if len(cache.Fetch(context.Background())) == 1 {
				served.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, source.Calls())
	require.Equal(t, int32(16), served.Load())
}

func TestSnapshotCacheSnapshotCarriesReadInstant(t *testing.T) {
	source := &fakeSource{rows: []models.Submission{{StudentID: "A"}}}
	clock := newClock()
	cache := NewSnapshotCache(source, time.Minute, WithClock(clock.Now))
	ctx := context.Background()

	readAt := clock.Now()
	first := cache.FetchSnapshot(ctx)
	require.Len(t, first.Rows, 1)
	require.Equal(t, readAt, first.FetchedAt)

	clock.Advance(30 * time.Second)
	hit := cache.FetchSnapshot(ctx)
	fetchedAt, ok := hit.Fetched()
	require.True(t, ok)
	require.Equal(t, readAt, fetchedAt, "a cache hit reports when the rows were read, not when they were served")

	cache.Invalidate()
	require.Equal(t, readAt, hit.FetchedAt, "the snapshot keeps its instant after the entry is dropped")

	source.mu.Lock()
	source.rows = []models.Submission{{StudentID: "A"}, {StudentID: "B"}}
	source.mu.Unlock()

	refreshed := cache.RefreshSnapshot(ctx)
	require.Len(t, refreshed.Rows, 2)
	require.Equal(t, clock.Now(), refreshed.FetchedAt)
	require.Equal(t, 2, source.Calls())
}

func TestSnapshotCacheFailedSnapshotHasNoInstant(t *testing.T) {
	cache := NewSnapshotCache(&fakeSource{err: errors.New("connection reset")}, time.Minute)

	snapshot := cache.FetchSnapshot(context.Background())
	require.NotNil(t, snapshot.Rows)
	require.Empty(t, snapshot.Rows)
	_, ok := snapshot.Fetched()
	require.False(t, ok)
}

func TestSnapshotCacheRowsAndInstantStayPairedUnderRefresh(t *testing.T) {
	clock := newClock()
	ctx := context.Background()

	// Each live read returns one more row than the previous one and advances
	// the clock, so rows and instant must move together.
	var reads atomic.Int32
	stepping := sourceFunc(func(ctx context.Context) ([]models.Submission, error) {
		n := int(reads.Add(1))
		clock.Advance(time.Second)
		return make([]models.Submission, n), nil
	})
	cache := NewSnapshotCache(stepping, time.Minute, WithClock(clock.Now))

	base := clock.Now()
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		snapshots []Snapshot
	)
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			cache.RefreshSnapshot(ctx)
		}()
		go func() {
			defer wg.Done()
			snapshot := cache.FetchSnapshot(ctx)
			mu.Lock()
			snapshots = append(snapshots, snapshot)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, snapshots, 8)
	for _, snapshot := range snapshots {
		// fetchedAt is taken before the read advances the clock, so a
		// snapshot of n rows was read at base + (n-1)s.
		require.Equal(t, base.Add(time.Duration(len(snapshot.Rows)-1)*time.Second), snapshot.FetchedAt)
	}
}

type sourceFunc func(ctx context.Context) ([]models.Submission, error)

func (f sourceFunc) ListLatestFirst(ctx context.Context) ([]models.Submission, error) {
	return f(ctx)
}
