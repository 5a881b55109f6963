package imagecache_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/image-cache/internal/fetcher"
	"github.com/rohmanhakim/image-cache/internal/imagecache"
	"github.com/rohmanhakim/image-cache/internal/keycodec"
	"github.com/rohmanhakim/image-cache/internal/metadata"
	"github.com/rohmanhakim/image-cache/internal/recency"
	"github.com/rohmanhakim/image-cache/internal/store"
	"github.com/rohmanhakim/image-cache/pkg/failure"
	"github.com/rohmanhakim/image-cache/pkg/hashutil"
)

// fakeFetcher is a hand-rolled fetcher.Fetcher test double serving
// canned bodies and counting calls per URL.
type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	errs   map[string]failure.ClassifiedError
	calls  map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		bodies: map[string][]byte{},
		errs:   map[string]failure.ClassifiedError{},
		calls:  map[string]int{},
	}
}

func (f *fakeFetcher) serve(rawURL string, body []byte) {
	f.bodies[rawURL] = body
}

func (f *fakeFetcher) fail(rawURL string, err failure.ClassifiedError) {
	f.errs[rawURL] = err
}

func (f *fakeFetcher) callCount(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[rawURL]
}

func (f *fakeFetcher) Fetch(_ context.Context, fetchParam fetcher.FetchParam) (fetcher.FetchResult, failure.ClassifiedError) {
	f.mu.Lock()
	f.calls[fetchParam.URL()]++
	f.mu.Unlock()

	if err, ok := f.errs[fetchParam.URL()]; ok {
		return fetcher.FetchResult{}, err
	}
	body, ok := f.bodies[fetchParam.URL()]
	if !ok {
		body = []byte("default body")
	}
	return fetcher.NewFetchResultForTest(fetchParam.URL(), body, http.StatusOK, "image/jpeg"), nil
}

type evictionSink struct {
	metadata.Recorder

	mu      sync.Mutex
	victims []string
}

func (s *evictionSink) RecordEviction(victimUrl string, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.victims = append(s.victims, victimUrl)
}

// faultyStore wraps a real DiskStore and injects failures per
// operation, exercising the disk-failure paths through the
// ArtifactStore port.
type faultyStore struct {
	*store.DiskStore

	failWrites  bool
	failRemoves bool

	mu          sync.Mutex
	removePaths []string
}

func (s *faultyStore) Write(path string, data []byte) failure.ClassifiedError {
	if s.failWrites {
		return &store.StorageError{
			Message:   "no space left on device",
			Retryable: true,
			Cause:     store.ErrCauseDiskFull,
			Path:      path,
		}
	}
	return s.DiskStore.Write(path, data)
}

func (s *faultyStore) Remove(path string) failure.ClassifiedError {
	s.mu.Lock()
	s.removePaths = append(s.removePaths, path)
	s.mu.Unlock()
	if s.failRemoves {
		return &store.StorageError{
			Message:   "operation not permitted",
			Retryable: false,
			Cause:     store.ErrCauseRemoveFailure,
			Path:      path,
		}
	}
	return s.DiskStore.Remove(path)
}

func newFaultyCache(t *testing.T, capacity int, f fetcher.Fetcher) (*imagecache.Cache, *faultyStore, keycodec.Codec) {
	t.Helper()

	dir := t.TempDir()
	sink := &metadata.Recorder{}

	codec, err := keycodec.NewCodec(dir, hashutil.HashAlgoSHA256)
	require.NoError(t, err)

	index, err := recency.NewIndex(capacity)
	require.NoError(t, err)

	diskStore, storeErr := store.NewDiskStore(dir, sink)
	require.Nil(t, storeErr)

	faulty := &faultyStore{DiskStore: diskStore}
	return imagecache.New(codec, index, faulty, f, sink), faulty, codec
}

func newTestCache(t *testing.T, capacity int, f fetcher.Fetcher) (*imagecache.Cache, string) {
	t.Helper()

	dir := t.TempDir()
	sink := &metadata.Recorder{}

	codec, err := keycodec.NewCodec(dir, hashutil.HashAlgoSHA256)
	require.NoError(t, err)

	index, err := recency.NewIndex(capacity)
	require.NoError(t, err)

	diskStore, storeErr := store.NewDiskStore(dir, sink)
	require.Nil(t, storeErr)

	return imagecache.New(codec, index, diskStore, f, sink), dir
}

func TestGet_MissFetchesAndPersists(t *testing.T) {
	f := newFakeFetcher()
	f.serve("http://example.com/a.png", []byte("png bytes"))
	cache, _ := newTestCache(t, 3, f)

	path, err := cache.Get(context.Background(), "http://example.com/a.png")
	require.Nil(t, err)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, []byte("png bytes"), data)
	assert.Equal(t, 1, cache.Size())
	assert.True(t, cache.IsCached("http://example.com/a.png"))
}

func TestGet_HitSkipsFetch(t *testing.T) {
	f := newFakeFetcher()
	cache, _ := newTestCache(t, 3, f)

	first, err := cache.Get(context.Background(), "http://example.com/a.jpg")
	require.Nil(t, err)
	second, err := cache.Get(context.Background(), "http://example.com/a.jpg")
	require.Nil(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.callCount("http://example.com/a.jpg"))

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestFetch_EvictsLeastRecentlyUsed(t *testing.T) {
	f := newFakeFetcher()
	sink := &evictionSink{}

	dir := t.TempDir()
	codec, err := keycodec.NewCodec(dir, hashutil.HashAlgoSHA256)
	require.NoError(t, err)
	index, err := recency.NewIndex(3)
	require.NoError(t, err)
	diskStore, storeErr := store.NewDiskStore(dir, sink)
	require.Nil(t, storeErr)
	cache := imagecache.New(codec, index, diskStore, f, sink)

	ctx := context.Background()
	urls := []string{
		"http://example.com/a.jpg",
		"http://example.com/b.jpg",
		"http://example.com/c.jpg",
	}
	for _, u := range urls {
		_, getErr := cache.Get(ctx, u)
		require.Nil(t, getErr)
	}

	// Refresh a's recency so b becomes the least recently used.
	_, getErr := cache.Get(ctx, urls[0])
	require.Nil(t, getErr)

	_, getErr = cache.Get(ctx, "http://example.com/d.jpg")
	require.Nil(t, getErr)

	assert.Equal(t, []string{urls[1]}, sink.victims)
	assert.Equal(t, 3, cache.Size())
	assert.False(t, cache.IsCached(urls[1]), "victim artifact must be removed from disk")
	assert.True(t, cache.IsCached(urls[0]))
	assert.True(t, cache.IsCached(urls[2]))
	assert.True(t, cache.IsCached("http://example.com/d.jpg"))
}

func TestFetch_FailedFetchLeavesNoTrace(t *testing.T) {
	f := newFakeFetcher()
	f.fail("http://example.com/missing.jpg", &fetcher.FetchError{
		Message:    "origin said no",
		Retryable:  false,
		Cause:      fetcher.ErrCauseHTTPStatus,
		StatusCode: http.StatusNotFound,
	})
	cache, _ := newTestCache(t, 3, f)

	_, err := cache.Get(context.Background(), "http://example.com/missing.jpg")
	require.NotNil(t, err)

	var cacheErr *imagecache.CacheError
	require.True(t, errors.As(err, &cacheErr))
	assert.Equal(t, imagecache.ErrCauseFetchFailure, cacheErr.Cause)

	var fetchErr *fetcher.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)

	assert.Equal(t, 0, cache.Size())
	assert.False(t, cache.IsCached("http://example.com/missing.jpg"))

	stats := cache.Stats()
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(0), stats.Misses, "a failed fetch must not count as a miss")
}

func TestFetch_FailedWriteDoesNotRegisterEntry(t *testing.T) {
	f := newFakeFetcher()
	f.serve("http://example.com/a.jpg", []byte("bytes"))
	cache, faulty, _ := newFaultyCache(t, 3, f)
	faulty.failWrites = true

	_, err := cache.Get(context.Background(), "http://example.com/a.jpg")
	require.NotNil(t, err)

	var cacheErr *imagecache.CacheError
	require.True(t, errors.As(err, &cacheErr))
	assert.Equal(t, imagecache.ErrCauseStoreFailure, cacheErr.Cause)

	var storageErr *store.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, store.ErrCauseDiskFull, storageErr.Cause)

	// Disk and index must not diverge: a failed write registers nothing.
	assert.Equal(t, 0, cache.Size())
	assert.False(t, cache.IsCached("http://example.com/a.jpg"))
	assert.Equal(t, uint64(0), cache.Stats().Misses)

	// Once the disk recovers the same URL caches normally.
	faulty.failWrites = false
	path, err := cache.Get(context.Background(), "http://example.com/a.jpg")
	require.Nil(t, err)
	assert.True(t, cache.IsCached("http://example.com/a.jpg"))
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, []byte("bytes"), data)
}

func TestFetch_EvictionRemoveFailureIsNonFatal(t *testing.T) {
	f := newFakeFetcher()
	cache, faulty, codec := newFaultyCache(t, 1, f)
	faulty.failRemoves = true

	ctx := context.Background()
	_, err := cache.Get(ctx, "http://example.com/a.jpg")
	require.Nil(t, err)

	// Evicting a fills the cache slot with b even though a's file
	// cannot be removed.
	path, err := cache.Get(ctx, "http://example.com/b.jpg")
	require.Nil(t, err)
	assert.True(t, cache.IsCached("http://example.com/b.jpg"))

	assert.Equal(t, 1, cache.Size())
	assert.Equal(t, []string{"http://example.com/b.jpg"}, cache.Keys())
	assert.Contains(t, faulty.removePaths, codec.PathFor("http://example.com/a.jpg"))

	// The orphan file is a recoverable inconsistency, not an entry.
	assert.True(t, cache.IsCached("http://example.com/a.jpg"))
	assert.NotEqual(t, path, codec.PathFor("http://example.com/a.jpg"))
}

func TestClear_ContinuesPastRemoveFailures(t *testing.T) {
	f := newFakeFetcher()
	cache, faulty, _ := newFaultyCache(t, 3, f)

	ctx := context.Background()
	for _, u := range []string{"http://example.com/a.jpg", "http://example.com/b.jpg"} {
		_, err := cache.Get(ctx, u)
		require.Nil(t, err)
	}

	faulty.failRemoves = true

	err := cache.Clear()
	require.NotNil(t, err)

	var cacheErr *imagecache.CacheError
	require.True(t, errors.As(err, &cacheErr))
	assert.Equal(t, imagecache.ErrCauseClearFailure, cacheErr.Cause)
	assert.Contains(t, err.Error(), "2 removal(s) failed")

	// Every file was attempted, not just the first.
	assert.Len(t, faulty.removePaths, 2)

	// The index is emptied regardless so stale entries cannot
	// resurrect from a partially cleared directory.
	assert.Equal(t, 0, cache.Size())

	faulty.failRemoves = false
	_, err2 := cache.Get(ctx, "http://example.com/a.jpg")
	require.Nil(t, err2)
	assert.Equal(t, 2, f.callCount("http://example.com/a.jpg"))
}

func TestFetch_FailedFetchDoesNotBlockLaterSuccess(t *testing.T) {
	f := newFakeFetcher()
	f.fail("http://example.com/flaky.jpg", &fetcher.FetchError{
		Message:   "connection refused",
		Retryable: true,
		Cause:     fetcher.ErrCauseNetworkFailure,
	})
	cache, _ := newTestCache(t, 3, f)

	_, err := cache.Get(context.Background(), "http://example.com/flaky.jpg")
	require.NotNil(t, err)
	assert.Equal(t, failure.SeverityRecoverable, err.Severity())

	delete(f.errs, "http://example.com/flaky.jpg")
	f.serve("http://example.com/flaky.jpg", []byte("finally"))

	path, err := cache.Get(context.Background(), "http://example.com/flaky.jpg")
	require.Nil(t, err)
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, []byte("finally"), data)
}

func TestFetch_ForceRefreshRefetches(t *testing.T) {
	f := newFakeFetcher()
	f.serve("http://example.com/logo.png", []byte("v1"))
	cache, _ := newTestCache(t, 3, f)

	ctx := context.Background()
	path, err := cache.Fetch(ctx, "http://example.com/logo.png", false)
	require.Nil(t, err)
	_, err = cache.Fetch(ctx, "http://example.com/banner.png", false)
	require.Nil(t, err)

	f.serve("http://example.com/logo.png", []byte("v2"))

	refreshed, err := cache.Fetch(ctx, "http://example.com/logo.png", true)
	require.Nil(t, err)
	assert.Equal(t, path, refreshed)
	assert.Equal(t, 2, f.callCount("http://example.com/logo.png"))

	data, readErr := os.ReadFile(refreshed)
	require.NoError(t, readErr)
	assert.Equal(t, []byte("v2"), data)
	assert.Equal(t, 2, cache.Size())

	// The refreshed entry moves to most-recently-used.
	assert.Equal(t, "http://example.com/logo.png", cache.Keys()[0])
}

func TestFetch_SameURLDifferentStringsAreDistinctEntries(t *testing.T) {
	f := newFakeFetcher()
	cache, _ := newTestCache(t, 3, f)

	ctx := context.Background()
	a, err := cache.Get(ctx, "http://example.com/a.jpg")
	require.Nil(t, err)
	b, err := cache.Get(ctx, "HTTP://EXAMPLE.COM/a.jpg")
	require.Nil(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, cache.Size())
}

func TestClear(t *testing.T) {
	f := newFakeFetcher()
	cache, dir := newTestCache(t, 3, f)

	ctx := context.Background()
	for _, u := range []string{"http://example.com/a.jpg", "http://example.com/b.jpg"} {
		_, err := cache.Get(ctx, u)
		require.Nil(t, err)
	}
	require.Equal(t, 2, cache.Size())

	require.Nil(t, cache.Clear())

	assert.Equal(t, 0, cache.Size())
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)

	// Cleared entries are misses again.
	_, err := cache.Get(ctx, "http://example.com/a.jpg")
	require.Nil(t, err)
	assert.Equal(t, 2, f.callCount("http://example.com/a.jpg"))
}

func TestKeys_OrderedMostRecentFirst(t *testing.T) {
	f := newFakeFetcher()
	cache, _ := newTestCache(t, 3, f)

	ctx := context.Background()
	for _, u := range []string{"u1", "u2", "u3"} {
		_, err := cache.Get(ctx, u)
		require.Nil(t, err)
	}
	_, err := cache.Get(ctx, "u1")
	require.Nil(t, err)

	assert.Equal(t, []string{"u1", "u3", "u2"}, cache.Keys())
}

func TestConcurrentGets_NeverExceedCapacity(t *testing.T) {
	f := newFakeFetcher()
	cache, _ := newTestCache(t, 4, f)

	urls := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8"}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, u := range urls {
				_, err := cache.Get(context.Background(), u)
				if err != nil {
					t.Errorf("unexpected error for %s: %v", u, err)
				}
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Size(), 4)
}
