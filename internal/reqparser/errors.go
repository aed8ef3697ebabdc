package reqparser

import "errors"

// Sentinel errors the router can branch on (spec §7: protocol errors all
// map to 400, but callers may want to distinguish them for logging).
var (
	ErrBadRequestLine = errors.New("reqparser: malformed request line")
	ErrBadHeader      = errors.New("reqparser: malformed header")
	ErrBadChunkSize   = errors.New("reqparser: malformed chunk size")
	ErrBadMultipart   = errors.New("reqparser: malformed multipart body")
)
