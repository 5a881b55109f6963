// Package imagecache coordinates the key codec, the recency index,
// the disk store and the fetcher into one bounded URL-to-file cache.
package imagecache

import (
	"context"
	"fmt"
	"sync"

	"github.com/rohmanhakim/image-cache/internal/fetcher"
	"github.com/rohmanhakim/image-cache/internal/keycodec"
	"github.com/rohmanhakim/image-cache/internal/metadata"
	"github.com/rohmanhakim/image-cache/internal/recency"
	"github.com/rohmanhakim/image-cache/pkg/failure"
)

/*
Responsibilities

- Decide hit vs miss from recency-index membership
- Drive fetch, persist, insert, evict in that order on a miss
- Bound the entry count through the index's capacity

Locking Contract

- One mutex guards the index and the stats counters
- The lock is NOT held across the network fetch
- Concurrent misses for one URL both fetch; the second insert
  degenerates to a touch, so the index never holds duplicates

The orchestrator never retries. Callers wrap Fetch in their own retry
policy when they want one.
*/

type Cache struct {
	mu           sync.Mutex
	codec        keycodec.Codec
	index        *recency.Index
	artifacts    ArtifactStore
	fetcher      fetcher.Fetcher
	metadataSink metadata.MetadataSink

	hits   uint64
	misses uint64
}

// Stats is a point-in-time snapshot of cache activity.
// Misses counts lookups completed through a fetch; a lookup whose
// fetch or write failed is counted by neither counter.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Entries  int
	Capacity int
}

func New(
	codec keycodec.Codec,
	index *recency.Index,
	artifacts ArtifactStore,
	imageFetcher fetcher.Fetcher,
	metadataSink metadata.MetadataSink,
) *Cache {
	return &Cache{
		codec:        codec,
		index:        index,
		artifacts:    artifacts,
		fetcher:      imageFetcher,
		metadataSink: metadataSink,
	}
}

// Get returns the local path for rawURL, fetching it on a miss.
func (c *Cache) Get(ctx context.Context, rawURL string) (string, failure.ClassifiedError) {
	return c.Fetch(ctx, rawURL, false)
}

// Fetch returns the local path for rawURL. With forceRefresh the entry
// is dropped from the index first, so the bytes are always refetched.
func (c *Cache) Fetch(ctx context.Context, rawURL string, forceRefresh bool) (string, failure.ClassifiedError) {
	path := c.codec.PathFor(rawURL)

	c.mu.Lock()
	if forceRefresh {
		c.index.Remove(rawURL)
	} else if c.index.Touch(rawURL) {
		c.hits++
		c.mu.Unlock()
		c.metadataSink.RecordCacheHit(rawURL, path)
		return path, nil
	}
	c.mu.Unlock()

	// Fetch happens outside the lock so a slow origin never blocks
	// hits on other keys.
	result, fetchErr := c.fetcher.Fetch(ctx, fetcher.NewFetchParam(rawURL))
	if fetchErr != nil {
		// The fetcher already recorded the failure; only wrap it.
		return "", wrapCollaboratorError(ErrCauseFetchFailure, fmt.Sprintf("fetching %s", rawURL), fetchErr)
	}

	if storeErr := c.artifacts.Write(path, result.Body()); storeErr != nil {
		return "", wrapCollaboratorError(ErrCauseStoreFailure, fmt.Sprintf("persisting %s", rawURL), storeErr)
	}

	// The miss is counted only once the entry is registered, so the
	// counters reconcile with successful servings.
	c.mu.Lock()
	victim, evicted := c.index.Insert(rawURL)
	c.misses++
	entries := c.index.Size()
	c.mu.Unlock()
	c.metadataSink.RecordCacheMiss(rawURL)

	if evicted {
		c.evictFile(victim)
	}
	c.metadataSink.RecordEntryCount(entries)

	return path, nil
}

// IsCached reports whether the artifact for rawURL exists on disk.
// It checks the filesystem directly and ignores the recency index.
func (c *Cache) IsCached(rawURL string) bool {
	return c.artifacts.Exists(c.codec.PathFor(rawURL))
}

// Size returns the number of entries the index currently tracks.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.Size()
}

// Capacity returns the maximum number of entries the cache holds.
func (c *Cache) Capacity() int {
	return c.index.Capacity()
}

// Keys returns the tracked URLs ordered most-recently-used first.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.Keys()
}

// Stats returns a snapshot of hit and miss counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:     c.hits,
		Misses:   c.misses,
		Entries:  c.index.Size(),
		Capacity: c.index.Capacity(),
	}
}

// Clear removes every cached file and empties the index. Removal keeps
// going past individual failures; the index is emptied regardless so a
// partially cleared directory cannot resurrect stale entries.
func (c *Cache) Clear() failure.ClassifiedError {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr failure.ClassifiedError
	failedCount := 0

	files, listErr := c.artifacts.ListFiles()
	if listErr != nil {
		firstErr = listErr
	} else {
		for _, file := range files {
			if removeErr := c.artifacts.Remove(file); removeErr != nil {
				failedCount++
				if firstErr == nil {
					firstErr = removeErr
				}
			}
		}
	}

	c.index.Clear()
	c.metadataSink.RecordEntryCount(0)

	if firstErr != nil {
		return wrapCollaboratorError(ErrCauseClearFailure,
			fmt.Sprintf("%d removal(s) failed", failedCount), firstErr)
	}
	return nil
}

// evictFile removes the victim's artifact from disk. A failed removal
// is tolerated: the index already dropped the entry, and a later
// insert of the same key overwrites the file. The store records the
// failure on its own.
func (c *Cache) evictFile(victimURL string) {
	victimPath := c.codec.PathFor(victimURL)
	c.metadataSink.RecordEviction(victimURL, victimPath)
	_ = c.artifacts.Remove(victimPath)
}
