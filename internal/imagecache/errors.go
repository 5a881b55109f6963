package imagecache

import (
	"fmt"

	"github.com/rohmanhakim/image-cache/pkg/failure"
)

// CacheErrorCause categorises orchestration failures.
type CacheErrorCause string

const (
	ErrCauseFetchFailure CacheErrorCause = "fetch failed"
	ErrCauseStoreFailure CacheErrorCause = "store failed"
	ErrCauseClearFailure CacheErrorCause = "clear failed"
)

// CacheError wraps a failure from a collaborator with the cache
// operation that observed it.
type CacheError struct {
	Message   string
	Retryable bool
	Cause     CacheErrorCause
	Wrapped   failure.ClassifiedError
}

func (e *CacheError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %s", e.Cause, e.Message, e.Wrapped.Error())
	}
	return fmt.Sprintf("%s: %s", e.Cause, e.Message)
}

func (e *CacheError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *CacheError) IsRetryable() bool {
	return e.Retryable
}

func (e *CacheError) Unwrap() error {
	if e.Wrapped == nil {
		return nil
	}
	return e.Wrapped
}

// wrapCollaboratorError preserves the collaborator's retryability so
// callers can keep driving their own retry policy through the wrapper.
func wrapCollaboratorError(cause CacheErrorCause, message string, wrapped failure.ClassifiedError) *CacheError {
	retryable := failure.IsRecoverable(wrapped)
	return &CacheError{
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
		Wrapped:   wrapped,
	}
}
