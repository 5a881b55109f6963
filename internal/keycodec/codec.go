package keycodec

import (
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/rohmanhakim/image-cache/pkg/hashutil"
	"github.com/rohmanhakim/image-cache/pkg/urlutil"
)

// DefaultExtension is used when the URL's path component carries none.
const DefaultExtension = ".jpg"

/*
Codec derives the on-disk filename for a cache key.

Derivation: digest(raw URL) + extension of the URL's path component,
defaulting to ".jpg". The raw URL string is hashed as-is and never
normalized, so two URLs differing by trailing slash or query order
map to distinct files.

PathFor is pure, deterministic and total: the algorithm is validated
once at construction, after which derivation cannot fail for any
non-empty key.
*/
type Codec struct {
	cacheDir string
	hashAlgo hashutil.HashAlgo
}

// NewCodec creates a Codec rooted at cacheDir.
// The hash algorithm is rejected up front when unsupported.
func NewCodec(cacheDir string, hashAlgo hashutil.HashAlgo) (Codec, error) {
	if !hashutil.ValidAlgo(hashAlgo) {
		return Codec{}, fmt.Errorf("unsupported hash algorithm: %s", hashAlgo)
	}
	return Codec{
		cacheDir: cacheDir,
		hashAlgo: hashAlgo,
	}, nil
}

// Filename returns the derived filename for rawURL without the
// cache-directory prefix.
func (c Codec) Filename(rawURL string) string {
	// Cannot fail: the algorithm was validated at construction.
	digest, _ := hashutil.HashBytes([]byte(rawURL), c.hashAlgo)

	ext := DefaultExtension
	if parsed, err := url.Parse(rawURL); err == nil {
		ext = urlutil.PathExtensionOrDefault(*parsed, DefaultExtension)
	}

	return digest + ext
}

// PathFor returns the absolute cache path for rawURL.
func (c Codec) PathFor(rawURL string) string {
	return filepath.Join(c.cacheDir, c.Filename(rawURL))
}

// CacheDir returns the directory the codec derives paths under.
func (c Codec) CacheDir() string {
	return c.cacheDir
}
