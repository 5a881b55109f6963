package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rohmanhakim/image-cache/internal/metadata"
	"github.com/rohmanhakim/image-cache/pkg/failure"
	"github.com/rohmanhakim/image-cache/pkg/fileutil"
)

/*
Responsibilities
- Persist fetched bytes under one cache directory
- Existence checks, removal, enumeration
- Keep writes atomic from the reader's perspective

Output Characteristics
- Flat directory, no subdirectories, no manifest
- Overwrite-safe writes
- Idempotent removal

DiskStore never decides what to cache or evict; the orchestrator does.
*/

type DiskStore struct {
	root         string
	metadataSink metadata.MetadataSink
}

// NewDiskStore creates a store rooted at root, creating the directory
// when absent.
func NewDiskStore(root string, metadataSink metadata.MetadataSink) (*DiskStore, failure.ClassifiedError) {
	if err := fileutil.EnsureDir(root); err != nil {
		return nil, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCausePathError,
			Path:      root,
		}
	}
	return &DiskStore{
		root:         root,
		metadataSink: metadataSink,
	}, nil
}

// Root returns the cache directory the store operates under.
func (s *DiskStore) Root() string {
	return s.root
}

// Exists reports whether path names an existing regular file.
func (s *DiskStore) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Write persists data at path. The write is atomic from a reader's
// perspective: bytes land in a temp file first and are renamed into
// place, so no reader ever observes a partial file.
func (s *DiskStore) Write(path string, data []byte) failure.ClassifiedError {
	tempFile, err := os.CreateTemp(s.root, ".imagecache-*")
	if err != nil {
		return s.recordError("DiskStore.Write", classifyIOError(err, ErrCauseWriteFailure, path))
	}
	tempName := tempFile.Name()

	_, err = tempFile.Write(data)
	if err == nil {
		// CreateTemp makes the file 0600; cached artifacts are
		// world-readable like any other written output.
		err = tempFile.Chmod(0o644)
	}
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempName)
		return s.recordError("DiskStore.Write", classifyIOError(err, ErrCauseWriteFailure, path))
	}

	if err := os.Rename(tempName, path); err != nil {
		os.Remove(tempName)
		return s.recordError("DiskStore.Write", classifyIOError(err, ErrCauseWriteFailure, path))
	}

	if s.metadataSink != nil {
		s.metadataSink.RecordArtifact(path, uint64(len(data)), []metadata.Attribute{
			metadata.NewAttr(metadata.AttrWritePath, path),
		})
	}
	return nil
}

// Remove deletes the file at path. Removing a nonexistent file is not
// an error.
func (s *DiskStore) Remove(path string) failure.ClassifiedError {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return s.recordError("DiskStore.Remove", classifyIOError(err, ErrCauseRemoveFailure, path))
	}
	return nil
}

// ListFiles enumerates the regular files directly under the root.
// Subdirectories and their contents are ignored.
func (s *DiskStore) ListFiles() ([]string, failure.ClassifiedError) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, s.recordError("DiskStore.ListFiles", classifyIOError(err, ErrCauseListFailure, s.root))
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		paths = append(paths, filepath.Join(s.root, entry.Name()))
	}
	return paths, nil
}

func (s *DiskStore) recordError(action string, storageErr *StorageError) *StorageError {
	if s.metadataSink != nil {
		s.metadataSink.RecordError(
			time.Now(),
			"store",
			action,
			mapStorageErrorToMetadataCause(storageErr),
			storageErr.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrPath, storageErr.Path),
			},
		)
	}
	return storageErr
}
