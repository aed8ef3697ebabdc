package cgi

import "errors"

// ErrTimeout names the failure of a CGI child killed after exceeding its
// configured wall-clock timeout (spec §4.4). No code path returns it: the
// reactor answers a timed-out child with a 504 response directly.
var ErrTimeout = errors.New("cgi: timed out")
