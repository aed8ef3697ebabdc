// Package webconfig holds the immutable configuration tree (spec §3.1)
// and the nested-block parser that builds it from the grammar in spec §6.
//
// The grammar itself is an external collaborator per spec §1 ("the
// configuration file grammar ... not respecified"); this package exists
// because nothing else in the repository supplies it, and the lexer/parser
// split below follows the teacher's caddyconfig/caddyfile package.
package webconfig

const (
	defaultMaxBodySize = 1 << 20 // 1 MiB, spec §3.1
	defaultIndexFile   = "index.html"
	defaultCGITimeout  = 10 // seconds, spec §3.1
)

// Tree is the whole parsed configuration: every ServerConfig declared
// across the file, plus a derived index from port to the default server
// for that port (first declared, spec §3.1 invariant).
type Tree struct {
	Servers []*ServerConfig

	// ports maps a listen port to every ServerConfig bound to it, in
	// declaration order; ports[p][0] is the default for p.
	ports map[int][]*ServerConfig
}

// ServerConfig is one `server { ... }` block (spec §3.1).
type ServerConfig struct {
	Listen      []int
	ServerNames []string
	Root        string
	MaxBodySize int64
	ErrorPages  map[int]string // status -> path relative to Root
	Locations   []*LocationConfig
}

// LocationConfig is one `location /prefix { ... }` block nested in a
// server (spec §3.1). Pointer fields distinguish "unset, inherit from
// server" from "explicitly set to zero value".
type LocationConfig struct {
	Path string

	Root             *string
	Index            *string
	AllowedMethods   map[string]bool // empty/nil means "all methods"
	MaxBodySize      *int64
	ErrorPages       map[int]string

	CGIPath    string
	CGIExt     string
	CGITimeout int // seconds, defaults to defaultCGITimeout

	Redirect       string
	RedirectStatus int

	UploadPath string
	Autoindex  bool
}

// EffectiveRoot returns the location's root override, or the server's
// root if unset.
func (l *LocationConfig) EffectiveRoot(s *ServerConfig) string {
	if l.Root != nil {
		return *l.Root
	}
	return s.Root
}

// EffectiveIndex returns the location's index override, or the default
// index file name if unset.
func (l *LocationConfig) EffectiveIndex() string {
	if l.Index != nil {
		return *l.Index
	}
	return defaultIndexFile
}

// EffectiveMaxBodySize returns the location's override if set, else the
// server's ceiling (spec §4.6 step 3).
func (l *LocationConfig) EffectiveMaxBodySize(s *ServerConfig) int64 {
	if l.MaxBodySize != nil {
		return *l.MaxBodySize
	}
	return s.MaxBodySize
}

// MethodAllowed reports whether method is permitted by this location
// (empty AllowedMethods means all methods are allowed, spec §3.1).
func (l *LocationConfig) MethodAllowed(method string) bool {
	if len(l.AllowedMethods) == 0 {
		return true
	}
	return l.AllowedMethods[method]
}

// IsCGI reports whether uri should be handed to the CGI orchestrator
// (spec §4.4 trigger).
func (l *LocationConfig) IsCGI(uriPath string) bool {
	if l.CGIPath == "" || l.CGIExt == "" {
		return false
	}
	return len(uriPath) >= len(l.CGIExt) && uriPath[len(uriPath)-len(l.CGIExt):] == l.CGIExt
}

// EffectiveCGITimeout returns the configured CGI wall-clock timeout in
// seconds, defaulting per spec §3.1.
func (l *LocationConfig) EffectiveCGITimeout() int {
	if l.CGITimeout > 0 {
		return l.CGITimeout
	}
	return defaultCGITimeout
}

// ServersForPort returns every ServerConfig bound to port, in declaration
// order; element 0 is the default for that port.
func (t *Tree) ServersForPort(port int) []*ServerConfig {
	return t.ports[port]
}

// Ports returns every unique port across all servers.
func (t *Tree) Ports() []int {
	ports := make([]int, 0, len(t.ports))
	for p := range t.ports {
		ports = append(ports, p)
	}
	return ports
}

// SelectServer implements spec §4.6 step 1: among the servers bound to
// port, pick the one whose ServerNames contains host; fall back to the
// first declared server for that port.
func (t *Tree) SelectServer(port int, host string) *ServerConfig {
	servers := t.ports[port]
	if len(servers) == 0 {
		return nil
	}
	for _, s := range servers {
		for _, name := range s.ServerNames {
			if name == host {
				return s
			}
		}
	}
	return servers[0]
}

// SelectLocation implements spec §4.6 step 2: the location whose Path is
// a prefix of uriPath with maximal length (ties are impossible by the
// uniqueness invariant in spec §3.1).
func (s *ServerConfig) SelectLocation(uriPath string) *LocationConfig {
	var best *LocationConfig
	for _, loc := range s.Locations {
		if !hasPathPrefix(uriPath, loc.Path) {
			continue
		}
		if best == nil || len(loc.Path) > len(best.Path) {
			best = loc
		}
	}
	return best
}

func hasPathPrefix(uriPath, prefix string) bool {
	if len(uriPath) < len(prefix) {
		return false
	}
	return uriPath[:len(prefix)] == prefix
}

// ErrorPage resolves a status code to a file path via spec §4.7: location
// first, then server; returns "", false if neither configures it.
func ErrorPage(s *ServerConfig, l *LocationConfig, status int) (string, bool) {
	if l != nil {
		if p, ok := l.ErrorPages[status]; ok {
			return p, true
		}
	}
	if p, ok := s.ErrorPages[status]; ok {
		return p, true
	}
	return "", false
}
