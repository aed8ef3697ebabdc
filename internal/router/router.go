// Package router implements the request router of spec §4.6: given a
// parsed request and the port it arrived on, it walks the configuration
// tree to an Action the reactor can execute — either a complete response
// or a handoff to the CGI orchestrator.
package router

import (
	"strings"

	"github.com/danisayumin/webserv/internal/httpmsg"
	"github.com/danisayumin/webserv/internal/webconfig"
)

// Action is what the reactor should do with a Result.
type Action int

const (
	// ActionRespond means Result.Response is ready to serialize and send.
	ActionRespond Action = iota
	// ActionCGI means the reactor must spawn a CGI child per CGISpec.
	ActionCGI
)

// CGISpec carries everything the CGI orchestrator needs once the router
// decides a request is CGI (spec §4.4).
type CGISpec struct {
	ScriptPath   string
	DocumentRoot string
	PathInfo     string
	Timeout      int // seconds
}

// Result is the outcome of routing one request.
type Result struct {
	Action   Action
	Response *httpmsg.Response

	Server   *webconfig.ServerConfig
	Location *webconfig.LocationConfig

	CGI CGISpec
}

// Route implements spec §4.6 steps 1-6 and dispatches to the per-method
// handlers in static.go/upload.go/delete.go for steps 7-10.
func Route(tree *webconfig.Tree, port int, req *httpmsg.Request, bodySize int64) *Result {
	server := tree.SelectServer(port, req.Host())
	if server == nil {
		return respondBare(400)
	}

	loc := server.SelectLocation(req.Path())
	if loc == nil {
		return respond(server, nil, 404)
	}

	maxBody := loc.EffectiveMaxBodySize(server)
	if bodySize > maxBody {
		return respond(server, loc, 413)
	}

	if !loc.MethodAllowed(req.Method) {
		return respond(server, loc, 405)
	}

	if loc.Redirect != "" {
		status := loc.RedirectStatus
		if status == 0 {
			status = 301
		}
		resp := httpmsg.NewResponse(status, nil)
		resp.Headers.Set("Location", loc.Redirect)
		return &Result{Action: ActionRespond, Response: resp, Server: server, Location: loc}
	}

	if loc.IsCGI(req.Path()) {
		return routeCGI(server, loc, req)
	}

	switch req.Method {
	case "DELETE":
		return routeDelete(server, loc, req)
	case "POST":
		if loc.UploadPath != "" {
			return routeUpload(server, loc, req)
		}
		return respond(server, loc, 405)
	case "GET", "HEAD":
		return routeGet(server, loc, req)
	default:
		return respond(server, loc, 405)
	}
}

func routeCGI(server *webconfig.ServerConfig, loc *webconfig.LocationConfig, req *httpmsg.Request) *Result {
	if containsDotDot(req.Path()) {
		return respond(server, loc, 404)
	}
	root := loc.EffectiveRoot(server)
	uriPath := req.Path()
	scriptPath, pathInfo := splitScriptPath(root, uriPath, loc.Path)
	return &Result{
		Action:   ActionCGI,
		Server:   server,
		Location: loc,
		CGI: CGISpec{
			ScriptPath:   scriptPath,
			DocumentRoot: root,
			PathInfo:     pathInfo,
			Timeout:      loc.EffectiveCGITimeout(),
		},
	}
}

// splitScriptPath resolves the script file beneath root, with the
// location prefix stripped from uriPath. The returned PATH_INFO is always
// empty: the router has already matched uriPath against loc.CGIExt, so
// the path ends at the script name and no path-info suffix is split off.
func splitScriptPath(root, uriPath, locPrefix string) (scriptPath, pathInfo string) {
	rel := strings.TrimPrefix(uriPath, locPrefix)
	rel = strings.TrimPrefix(rel, "/")
	return joinRoot(root, "/"+rel), ""
}

// respond builds a default error-page response for status against the
// given (server, location) context.
func respond(server *webconfig.ServerConfig, loc *webconfig.LocationConfig, status int) *Result {
	return &Result{
		Action:   ActionRespond,
		Response: ErrorResponse(server, loc, status),
		Server:   server,
		Location: loc,
	}
}

// respondBare is used before a server has even been selected (e.g. no
// server bound to the connection's port at all, which should not happen
// given the config invariant that every port has ≥1 server, but is
// handled defensively).
func respondBare(status int) *Result {
	resp := httpmsg.NewResponse(status, httpmsg.SimpleErrorBody(status))
	resp.Headers.Set("Content-Type", "text/html")
	return &Result{Action: ActionRespond, Response: resp}
}
