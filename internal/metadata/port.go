package metadata

import "time"

// MetadataSink is the port every cache component records events through.
// Implementations decide the backend (structured log, metrics, nothing);
// callers must treat recording as fire-and-forget.
//
// Events are observational only and MUST NOT be used to derive
// control-flow decisions.
type MetadataSink interface {
	// RecordFetch captures one network fetch attempt, successful or not.
	// httpStatus is 0 when the transport failed before a response arrived.
	RecordFetch(
		fetchUrl string,
		httpStatus int,
		duration time.Duration,
		sizeByte uint64,
	)

	// RecordCacheHit captures a lookup served without a network fetch.
	RecordCacheHit(fetchUrl string, path string)

	// RecordCacheMiss captures a lookup served by fetching and
	// registering a new entry.
	RecordCacheMiss(fetchUrl string)

	// RecordEviction captures the removal of the least-recently-used
	// entry to satisfy the capacity bound.
	RecordEviction(victimUrl string, path string)

	// RecordArtifact captures a file successfully persisted to the
	// cache directory.
	RecordArtifact(path string, sizeByte uint64, attrs []Attribute)

	// RecordEntryCount captures the number of entries the recency
	// index currently tracks.
	RecordEntryCount(count int)

	// RecordError captures a classified failure for diagnostics.
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		errorString string,
		attrs []Attribute,
	)
}
