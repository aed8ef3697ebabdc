package webconfig

import (
	"fmt"
	"io"
	"os"
	"strconv"
)

// Load reads and parses the config file at path into a Tree (spec §6).
// A nonzero-exit-worthy error is returned verbatim for the CLI to report
// and exit on (spec §6 CLI contract). Parse is the reader-based
// counterpart.
func Load(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config %q: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse builds a Tree from r, applying the invariants of spec §3.1: every
// port appears in at least one server, locations are unique within a
// server, and so on.
func Parse(r io.Reader) (*Tree, error) {
	toks := tokenize(r)
	p := &parser{toks: toks}

	var servers []*ServerConfig
	for !p.atEOF() {
		word := p.expectWord("server")
		if p.err != nil {
			return nil, p.err
		}
		if word != "server" {
			return nil, fmt.Errorf("line %d: expected \"server\", got %q", p.peekLine(), word)
		}
		p.expectPunct("{")
		srv := p.parseServer()
		p.expectPunct("}")
		if p.err != nil {
			return nil, p.err
		}
		servers = append(servers, srv)
	}

	tree := &Tree{Servers: servers, ports: make(map[int][]*ServerConfig)}
	for _, s := range servers {
		if len(s.Listen) == 0 {
			return nil, fmt.Errorf("server block has no listen directive")
		}
		for _, port := range s.Listen {
			tree.ports[port] = append(tree.ports[port], s)
		}
	}
	if err := validate(tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func validate(t *Tree) error {
	for _, s := range t.Servers {
		seen := make(map[string]bool)
		for _, loc := range s.Locations {
			if seen[loc.Path] {
				return fmt.Errorf("duplicate location path %q in server", loc.Path)
			}
			seen[loc.Path] = true
		}
	}
	return nil
}

type parser struct {
	toks []token
	pos  int
	err  error
}

func (p *parser) atEOF() bool { return p.pos >= len(p.toks) || p.err != nil }

func (p *parser) peekLine() int {
	if p.pos < len(p.toks) {
		return p.toks[p.pos].line
	}
	return -1
}

func (p *parser) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf(format, args...)
	}
}

// next returns the next token's text, advancing past it.
func (p *parser) next() string {
	if p.pos >= len(p.toks) {
		p.fail("unexpected end of config")
		return ""
	}
	t := p.toks[p.pos]
	p.pos++
	return t.text
}

func (p *parser) expectWord(what string) string {
	if p.pos >= len(p.toks) {
		p.fail("expected %s, got end of config", what)
		return ""
	}
	return p.next()
}

func (p *parser) expectPunct(want string) {
	got := p.next()
	if got != want {
		p.fail("line %d: expected %q, got %q", p.peekLine(), want, got)
	}
}

// parseServer consumes directives and location blocks until the matching
// "}" (not consumed here; the caller consumes it).
func (p *parser) parseServer() *ServerConfig {
	s := &ServerConfig{
		MaxBodySize: defaultMaxBodySize,
		ErrorPages:  make(map[int]string),
	}
	for p.pos < len(p.toks) && p.toks[p.pos].text != "}" && p.err == nil {
		directive := p.next()
		switch directive {
		case "listen":
			port := p.next()
			n, err := strconv.Atoi(port)
			if err != nil {
				p.fail("line %d: invalid listen port %q", p.peekLine(), port)
				return s
			}
			s.Listen = append(s.Listen, n)
			p.expectPunct(";")
		case "server_name":
			s.ServerNames = append(s.ServerNames, p.collectUntilSemi()...)
		case "root":
			s.Root = p.next()
			p.expectPunct(";")
		case "client_max_body_size":
			v := p.next()
			n, err := parseSize(v)
			if err != nil {
				p.fail("line %d: %v", p.peekLine(), err)
				return s
			}
			s.MaxBodySize = n
			p.expectPunct(";")
		case "error_page":
			code := p.next()
			page := p.next()
			n, err := strconv.Atoi(code)
			if err != nil {
				p.fail("line %d: invalid error_page code %q", p.peekLine(), code)
				return s
			}
			s.ErrorPages[n] = page
			p.expectPunct(";")
		case "location":
			path := p.next()
			p.expectPunct("{")
			loc := p.parseLocation(path)
			p.expectPunct("}")
			s.Locations = append(s.Locations, loc)
		default:
			p.fail("line %d: unknown server directive %q", p.peekLine(), directive)
			return s
		}
	}
	return s
}

func (p *parser) parseLocation(path string) *LocationConfig {
	l := &LocationConfig{Path: path, ErrorPages: make(map[int]string)}
	for p.pos < len(p.toks) && p.toks[p.pos].text != "}" && p.err == nil {
		directive := p.next()
		switch directive {
		case "root":
			v := p.next()
			l.Root = &v
			p.expectPunct(";")
		case "index":
			v := p.next()
			l.Index = &v
			p.expectPunct(";")
		case "allow_methods":
			methods := p.collectUntilSemi()
			l.AllowedMethods = make(map[string]bool, len(methods))
			for _, m := range methods {
				l.AllowedMethods[m] = true
			}
		case "cgi_path":
			l.CGIPath = p.next()
			p.expectPunct(";")
		case "cgi_ext":
			l.CGIExt = p.next()
			p.expectPunct(";")
		case "cgi_timeout":
			v := p.next()
			n, err := strconv.Atoi(v)
			if err != nil {
				p.fail("line %d: invalid cgi_timeout %q", p.peekLine(), v)
				return l
			}
			l.CGITimeout = n
			p.expectPunct(";")
		case "client_max_body_size":
			v := p.next()
			n, err := parseSize(v)
			if err != nil {
				p.fail("line %d: %v", p.peekLine(), err)
				return l
			}
			l.MaxBodySize = &n
			p.expectPunct(";")
		case "error_page":
			code := p.next()
			page := p.next()
			n, err := strconv.Atoi(code)
			if err != nil {
				p.fail("line %d: invalid error_page code %q", p.peekLine(), code)
				return l
			}
			l.ErrorPages[n] = page
			p.expectPunct(";")
		case "redirect":
			l.Redirect = p.next()
			l.RedirectStatus = 301
			p.expectPunct(";")
		case "upload_path":
			l.UploadPath = p.next()
			p.expectPunct(";")
		case "autoindex":
			v := p.next()
			l.Autoindex = v == "on"
			p.expectPunct(";")
		default:
			p.fail("line %d: unknown location directive %q", p.peekLine(), directive)
			return l
		}
	}
	return l
}

// collectUntilSemi gathers bare words up to (and consuming) the next ";".
func (p *parser) collectUntilSemi() []string {
	var words []string
	for p.pos < len(p.toks) && p.err == nil {
		t := p.next()
		if t == ";" {
			return words
		}
		words = append(words, t)
	}
	p.fail("unterminated directive, expected \";\"")
	return words
}
