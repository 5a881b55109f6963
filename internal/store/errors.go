package store

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"

	"github.com/rohmanhakim/image-cache/internal/metadata"
	"github.com/rohmanhakim/image-cache/pkg/failure"
)

type StorageErrorCause string

const (
	ErrCausePermissionDenied StorageErrorCause = "permission denied"
	ErrCauseDiskFull         StorageErrorCause = "disk is full"
	ErrCauseWriteFailure     StorageErrorCause = "write failed"
	ErrCauseRemoveFailure    StorageErrorCause = "remove failed"
	ErrCauseListFailure      StorageErrorCause = "list failed"
	ErrCausePathError        StorageErrorCause = "path error"
)

type StorageError struct {
	Message   string
	Retryable bool
	Cause     StorageErrorCause
	Path      string
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s", e.Cause)
}

func (e *StorageError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *StorageError) IsRetryable() bool {
	return e.Retryable
}

// classifyIOError maps an os-level error to a StorageError cause.
// Disk-full is considered retryable (space may be reclaimed);
// permission problems are not.
func classifyIOError(err error, fallback StorageErrorCause, path string) *StorageError {
	cause := fallback
	retryable := false
	switch {
	case errors.Is(err, syscall.ENOSPC):
		cause = ErrCauseDiskFull
		retryable = true
	case errors.Is(err, fs.ErrPermission):
		cause = ErrCausePermissionDenied
	}
	return &StorageError{
		Message:   err.Error(),
		Retryable: retryable,
		Cause:     cause,
		Path:      path,
	}
}

// mapStorageErrorToMetadataCause maps storage-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapStorageErrorToMetadataCause(err *StorageError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseDiskFull,
		ErrCausePermissionDenied,
		ErrCauseWriteFailure,
		ErrCauseRemoveFailure,
		ErrCauseListFailure,
		ErrCausePathError:
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}
