package router

import (
	"errors"
	"os"

	"github.com/danisayumin/webserv/internal/httpmsg"
	"github.com/danisayumin/webserv/internal/webconfig"
)

// routeDelete implements spec §4.6 step 7.
func routeDelete(server *webconfig.ServerConfig, loc *webconfig.LocationConfig, req *httpmsg.Request) *Result {
	if containsDotDot(req.Path()) {
		return respond(server, loc, 403)
	}

	root := loc.EffectiveRoot(server)
	full := joinRoot(root, req.Path())

	err := os.Remove(full)
	switch {
	case err == nil:
		resp := httpmsg.NewResponse(204, nil)
		return &Result{Action: ActionRespond, Response: resp, Server: server, Location: loc}
	case errors.Is(err, os.ErrNotExist):
		return respond(server, loc, 404)
	case errors.Is(err, os.ErrPermission):
		return respond(server, loc, 403)
	default:
		return respond(server, loc, 500)
	}
}
