package router

import (
	"os"
	"path/filepath"

	"github.com/danisayumin/webserv/internal/httpmsg"
	"github.com/danisayumin/webserv/internal/webconfig"
)

// ErrorResponse builds the response for a non-2xx status, resolving a
// configured error page if one exists and is readable (spec §4.7); falls
// back to the synthesized HTML envelope otherwise. Per spec §9's fixed
// Open Question, a configured error page always resolves against
// server.Root, never the location's root. Exported so the reactor can
// reuse it for CGI-path and protocol-level errors that never reach the
// per-method dispatch in router.go.
func ErrorResponse(s *webconfig.ServerConfig, l *webconfig.LocationConfig, status int) *httpmsg.Response {
	if s != nil {
		if rel, ok := webconfig.ErrorPage(s, l, status); ok {
			full := filepath.Join(s.Root, rel)
			if body, err := os.ReadFile(full); err == nil {
				resp := httpmsg.NewResponse(status, body)
				resp.Headers.Set("Content-Type", "text/html")
				return resp
			}
		}
	}
	resp := httpmsg.NewResponse(status, httpmsg.SimpleErrorBody(status))
	resp.Headers.Set("Content-Type", "text/html")
	return resp
}
