package router

import (
	"path/filepath"
	"strings"
)

// joinRoot resolves a URI path beneath a document root. uriPath is
// expected to already have been validated by containsDotDot.
func joinRoot(root, uriPath string) string {
	return filepath.Join(root, filepath.FromSlash(uriPath))
}

// containsDotDot reports whether uriPath contains a ".." path segment,
// which spec §4.6 step 7 requires rejecting outright rather than
// resolving (to keep DELETE, and by extension any other filesystem
// write, from ever escaping the configured root).
func containsDotDot(uriPath string) bool {
	for _, seg := range strings.Split(uriPath, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// sanitizeFilename strips any path separators from a client-supplied
// filename, keeping only the base name (spec §4.6 step 8).
func sanitizeFilename(name string) string {
	name = filepath.Base(filepath.FromSlash(name))
	if name == "." || name == ".." || name == "" {
		return "upload"
	}
	return name
}
