package metadata

import (
	"time"
)

/*
Metadata Collected
- Fetch timestamps and durations
- HTTP status codes
- Cache hit/miss/eviction events
- Artifact paths and sizes

Logging Goals
- Debuggable cache behavior
- Post-run auditability
- Failure diagnostics

Structured logging is preferred.

Determinism guarantees:
 - Metadata does not affect control flow
 - Recorded events never influence eviction order
 - Output is stable given identical inputs

Metadata is write-only.
No component may read metadata to influence cache decisions.
*/

type FetchEvent struct {
	fetchUrl   string
	httpStatus int
	duration   time.Duration
	sizeByte   uint64
}

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, metrics, reporting).

	Rules:
	 - ErrorCause is for observability only.
	 - It must never be used to derive retry, continuation, or abort decisions.
	 - ErrorCause MUST NOT influence control flow.
	 - Components MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.
	Non-goals:
	 - ErrorCause does not encode severity.
	 - ErrorCause does not imply retryability.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown

Meaning:
  - The failure does not map cleanly to any known category.
  - Used as a safe fallback.

# CauseNetworkFailure

Meaning:
  - Failure caused by network transport or remote availability.

Examples:
  - TCP timeouts
  - DNS resolution failures
  - Connection resets

# CauseHTTPRejection

Meaning:
  - The remote answered, but with a non-success status.

Examples:
  - HTTP 404 for a missing image
  - HTTP 403 / 401 access denial
  - HTTP 5xx server failures

# CauseStorageFailure

Meaning:
  - Failure while persisting or removing cached artifacts.

Examples:
  - Disk full
  - Write permission errors
  - Filesystem I/O failures

# CauseInvariantViolation

Meaning:
  - A system-level invariant was violated.

Examples:
  - Recency index and disk state diverging
  - Internal consistency checks failing
*/
const (
	CauseUnknown = iota
	CauseNetworkFailure
	CauseHTTPRejection
	CauseStorageFailure
	CauseInvariantViolation
)

type ErrorRecord struct {
	packageName string
	action      string
	cause       ErrorCause
	errorString string
	observedAt  time.Time
	attrs       []Attribute
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrTime       AttributeKey = "time"
	AttrURL        AttributeKey = "url"
	AttrPath       AttributeKey = "path"
	AttrHTTPStatus AttributeKey = "http_status"
	AttrSizeByte   AttributeKey = "size_byte"
	AttrVictimURL  AttributeKey = "victim_url"
	AttrWritePath  AttributeKey = "write_path"
)
