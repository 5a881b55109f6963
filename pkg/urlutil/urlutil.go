package urlutil

import (
	"net/url"
	"path"
)

// PathExtension returns the file extension of a URL's path component,
// including the leading dot, or the empty string when the path has none.
// The query string and fragment never contribute to the extension.
//
// Properties:
//   - Pure: no state, no memory
//   - Deterministic: same input always produces same output
//   - Context-free: does not depend on any other URL
func PathExtension(sourceUrl url.URL) string {
	return path.Ext(sourceUrl.Path)
}

// PathExtensionOrDefault behaves like PathExtension but substitutes def
// when the URL's path carries no extension.
func PathExtensionOrDefault(sourceUrl url.URL, def string) string {
	if ext := PathExtension(sourceUrl); ext != "" {
		return ext
	}
	return def
}
