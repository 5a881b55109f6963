package imagecache

import (
	"github.com/rohmanhakim/image-cache/pkg/failure"
)

// ArtifactStore is the persistence port the orchestrator drives.
// *store.DiskStore is the production implementation; tests substitute
// doubles to exercise disk-failure paths.
type ArtifactStore interface {
	// Exists reports whether path names an existing regular file.
	Exists(path string) bool

	// Write persists data at path atomically from a reader's
	// perspective.
	Write(path string, data []byte) failure.ClassifiedError

	// Remove deletes the file at path. Removing a nonexistent file
	// is not an error.
	Remove(path string) failure.ClassifiedError

	// ListFiles enumerates the regular files directly under the
	// store's root.
	ListFiles() ([]string, failure.ClassifiedError)
}
