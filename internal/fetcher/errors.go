package fetcher

import (
	"fmt"

	"github.com/rohmanhakim/image-cache/internal/metadata"
	"github.com/rohmanhakim/image-cache/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseTimeout               FetchErrorCause = "timeout"
	ErrCauseNetworkFailure        FetchErrorCause = "network issues"
	ErrCauseReadResponseBodyError FetchErrorCause = "failed to read response body"
	ErrCauseHTTPStatus            FetchErrorCause = "non-success status"
)

// FetchError classifies one failed fetch. StatusCode is set only for
// ErrCauseHTTPStatus, where the transport succeeded but the remote
// answered with a non-2xx status.
type FetchError struct {
	Message    string
	Retryable  bool
	Cause      FetchErrorCause
	StatusCode int
}

func (e *FetchError) Error() string {
	if e.Cause == ErrCauseHTTPStatus {
		return fmt.Sprintf("fetch error: %s (%d)", e.Cause, e.StatusCode)
	}
	return fmt.Sprintf("fetch error: %s", e.Cause)
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// IsRetryable returns whether this error is retryable
func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// mapFetchErrorToMetadataCause maps fetcher-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapFetchErrorToMetadataCause(err *FetchError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseTimeout, ErrCauseNetworkFailure, ErrCauseReadResponseBodyError:
		return metadata.CauseNetworkFailure
	case ErrCauseHTTPStatus:
		return metadata.CauseHTTPRejection
	default:
		return metadata.CauseUnknown
	}
}
