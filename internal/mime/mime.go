// Package mime is the immutable extension→content-type lookup used by the
// router's static file handler (spec §6, §9: "Global MIME table →
// immutable lookup map built once"). It is a pure data table, out of
// scope for the core per spec §1.
package mime

import "strings"

const defaultType = "application/octet-stream"

var table = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".mjs":  "application/javascript",
	".json": "application/json",
	".txt":  "text/plain",
	".xml":  "application/xml",
	".csv":  "text/csv",
	".md":   "text/markdown",
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".webp": "image/webp",
	".gz":   "application/gzip",
	".zip":  "application/zip",
	".tar":  "application/x-tar",
	".wasm": "application/wasm",
	".mp4":  "video/mp4",
	".mp3":  "audio/mpeg",
	".woff": "font/woff",
	".woff2": "font/woff2",
}

// TypeForExt returns the content type for a leading-dot extension
// (e.g. ".html"), case-insensitively, or defaultType if unknown.
func TypeForExt(ext string) string {
	if t, ok := table[strings.ToLower(ext)]; ok {
		return t
	}
	return defaultType
}

// TypeForPath is a convenience for the common case of deriving the
// extension from a file path's suffix.
func TypeForPath(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return defaultType
	}
	return TypeForExt(path[i:])
}
