// Package cgi spawns and drives CGI/1.1 child processes (spec §4.4, §4.5).
// Environment construction follows the variable set assembled by
// caddyhttp/fastcgi.Handler.buildEnv, adapted from a FastCGI gateway's
// name/value map to a plain os/exec environment slice for a forked CGI
// script.
package cgi

import (
	"path/filepath"
	"strings"

	"github.com/danisayumin/webserv/internal/httpmsg"
	"github.com/danisayumin/webserv/internal/webconfig"
)

// BuildEnv assembles the CGI/1.1 environment for req, whose URI path
// resolves to scriptPath beneath documentRoot. remoteAddr and remotePort
// describe the client's peer address (spec §4.4: "REMOTE_ADDR and
// REMOTE_PORT are drawn from the accepted socket, never from a header").
func BuildEnv(req *httpmsg.Request, loc *webconfig.LocationConfig, documentRoot, scriptPath, pathInfo, remoteAddr, remotePort, serverName string, serverPort int) []string {
	contentLength, _ := req.Headers.Get("Content-Length")
	contentType, _ := req.Headers.Get("Content-Type")

	env := map[string]string{
		"AUTH_TYPE":         "",
		"CONTENT_LENGTH":    contentLength,
		"CONTENT_TYPE":      contentType,
		"GATEWAY_INTERFACE": "CGI/1.1",
		"PATH_INFO":         pathInfo,
		"QUERY_STRING":      req.Query(),
		"REMOTE_ADDR":       remoteAddr,
		"REMOTE_HOST":       remoteAddr,
		"REMOTE_PORT":       remotePort,
		"REMOTE_IDENT":      "",
		"REMOTE_USER":       "",
		"REQUEST_METHOD":    req.Method,
		"SERVER_NAME":       serverName,
		"SERVER_PORT":       itoa(serverPort),
		"SERVER_PROTOCOL":   req.Version,
		"SERVER_SOFTWARE":   "webserv/1.0",

		"DOCUMENT_ROOT":   documentRoot,
		"REQUEST_URI":     req.URI,
		"SCRIPT_FILENAME": scriptPath,
		"SCRIPT_NAME":     strings.TrimSuffix(req.Path(), pathInfo),
		"REDIRECT_STATUS": "200", // some CGI scripts (e.g. php-cgi) refuse to run without it
	}
	if pathInfo != "" {
		env["PATH_TRANSLATED"] = filepath.Join(documentRoot, pathInfo)
	}

	for _, name := range req.Headers.Names() {
		if name == "Content-Length" || name == "Content-Type" {
			continue
		}
		v, _ := req.Headers.Get(name)
		env["HTTP_"+headerEnvName(name)] = v
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func headerEnvName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
