// Package reqparser is the resumable HTTP/1.1 request parser of spec §3.5
// / §4.2 / §4.3: a state machine that consumes arbitrary byte chunks via
// Feed and never blocks, grounded in original_source/HttpRequestParser.cpp
// but rebuilt over a single growable-buffer cursor (cursor.go) instead of
// per-line string erasure.
package reqparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danisayumin/webserv/internal/httpmsg"
)

// Phase is the top-level parser state (spec §3.5).
type Phase int

const (
	PhaseRequestLine Phase = iota
	PhaseHeaders
	PhaseIdentityBody
	PhaseChunkedBody
	PhaseMultipartBody
	PhaseComplete
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseRequestLine:
		return "REQUEST_LINE"
	case PhaseHeaders:
		return "HEADERS"
	case PhaseIdentityBody:
		return "IDENTITY_BODY"
	case PhaseChunkedBody:
		return "CHUNKED_BODY"
	case PhaseMultipartBody:
		return "MULTIPART_BODY"
	case PhaseComplete:
		return "COMPLETE"
	case PhaseError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Parser is one request's resumable parse state. A fresh Parser is
// assigned per request on a connection (spec §5: "A new parser instance
// is assigned per request on the same connection").
type Parser struct {
	phase Phase
	err   error

	cur cursor
	req *httpmsg.Request

	contentLength int64
	bodyRead      int64

	chunk chunkState
	multi multipartState
}

// New returns a Parser ready to receive the first bytes of a request.
func New() *Parser {
	return &Parser{
		phase: PhaseRequestLine,
		req:   httpmsg.NewRequest(),
	}
}

// Phase returns the current top-level state.
func (p *Parser) Phase() Phase { return p.phase }

// Err returns the reason the parser entered PhaseError, or nil.
func (p *Parser) Err() error { return p.err }

// Request returns the request parsed so far (valid fields grow as parsing
// progresses; fully populated once Phase() == PhaseComplete).
func (p *Parser) Request() *httpmsg.Request { return p.req }

// ContentLength returns the request's declared Content-Length, if any
// non-chunked framing supplied one (0 otherwise). Used by the router for
// the body-size check of spec §4.6 step 3.
func (p *Parser) ContentLength() int64 { return p.contentLength }

// Feed advances the machine with the next chunk of bytes read from the
// connection and returns the resulting phase. It is idempotent against
// empty input and never blocks: any byte not yet classified stays owed
// to the caller's buffer for the next Feed call (spec §4.2).
func (p *Parser) Feed(data []byte) Phase {
	if len(data) > 0 {
		p.cur.write(data)
	}
	for {
		switch p.phase {
		case PhaseRequestLine:
			line, _, ok := p.cur.findLine()
			if !ok {
				return p.phase
			}
			if err := p.parseRequestLine(line); err != nil {
				return p.fail(err)
			}
			p.cur.advance(lineConsumed(line, p.cur.bytes()))
			p.phase = PhaseHeaders

		case PhaseHeaders:
			line, consumed, ok := p.cur.findLine()
			if !ok {
				return p.phase
			}
			if len(line) == 0 {
				p.cur.advance(consumed)
				if err := p.afterHeaders(); err != nil {
					return p.fail(err)
				}
				continue
			}
			if err := p.parseHeaderLine(line); err != nil {
				return p.fail(err)
			}
			p.cur.advance(consumed)

		case PhaseIdentityBody:
			n := p.cur.len()
			remaining := p.contentLength - p.bodyRead
			if int64(n) > remaining {
				n = int(remaining)
			}
			if n > 0 {
				p.req.Body = append(p.req.Body, p.cur.bytes()[:n]...)
				p.cur.advance(n)
				p.bodyRead += int64(n)
			}
			if p.bodyRead >= p.contentLength {
				p.phase = PhaseComplete
				return p.phase
			}
			return p.phase

		case PhaseChunkedBody:
			done, err := p.feedChunked()
			if err != nil {
				return p.fail(err)
			}
			if done {
				p.phase = PhaseComplete
				return p.phase
			}
			return p.phase

		case PhaseMultipartBody:
			done, err := p.feedMultipart()
			if err != nil {
				return p.fail(err)
			}
			if done {
				p.phase = PhaseComplete
				return p.phase
			}
			return p.phase

		case PhaseComplete, PhaseError:
			return p.phase
		}
	}
}

func (p *Parser) fail(err error) Phase {
	p.err = err
	p.phase = PhaseError
	return p.phase
}

// lineConsumed returns how many bytes of the tail (line content plus line
// ending) were consumed, given the line content returned by findLine.
// findLine's sepLen already tells us this, but callers that need to
// re-derive it (request line only, since we don't keep the sepLen around)
// recompute it from the gap between the line and the remaining tail.
func lineConsumed(line []byte, tailBeforeAdvance []byte) int {
	// tailBeforeAdvance starts with `line`, followed by the line ending
	// ("\r\n" or "\n"), which is 1 or 2 bytes depending on whether the
	// byte right after `line` is '\r'.
	if len(tailBeforeAdvance) > len(line) && tailBeforeAdvance[len(line)] == '\r' {
		return len(line) + 2
	}
	return len(line) + 1
}

func (p *Parser) parseRequestLine(line []byte) error {
	fields := strings.Fields(string(line))
	if len(fields) < 2 {
		return fmt.Errorf("%w: malformed request line %q", ErrBadRequestLine, line)
	}
	p.req.Method = fields[0]
	p.req.URI = fields[1]
	if len(fields) >= 3 {
		p.req.Version = fields[2]
	} else {
		p.req.Version = "HTTP/1.0"
	}
	return nil
}

func (p *Parser) parseHeaderLine(line []byte) error {
	s := string(line)
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return fmt.Errorf("%w: header line missing colon: %q", ErrBadHeader, s)
	}
	name := s[:i]
	value := strings.Trim(s[i+1:], " \t\r\n")
	p.req.Headers.Set(name, value)
	return nil
}

// afterHeaders implements spec §4.2's branch on the headers just parsed:
// chunked, multipart, or identity framing.
func (p *Parser) afterHeaders() error {
	if te, _ := p.req.Headers.Get("Transfer-Encoding"); strings.EqualFold(te, "chunked") {
		p.phase = PhaseChunkedBody
		p.chunk = chunkState{}
		return nil
	}

	if p.req.Headers.HasPrefix("Content-Type", "multipart/form-data") {
		ct, _ := p.req.Headers.Get("Content-Type")
		boundary, ok := extractBoundary(ct)
		if !ok {
			return fmt.Errorf("%w: missing boundary in %q", ErrBadMultipart, ct)
		}
		p.phase = PhaseMultipartBody
		p.multi = multipartState{boundary: "--" + boundary}
		if cl, _ := p.req.Headers.Get("Content-Length"); cl != "" {
			if n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64); err == nil && n >= 0 {
				p.contentLength = n
			}
		}
		return nil
	}

	cl, _ := p.req.Headers.Get("Content-Length")
	if cl != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: invalid Content-Length %q", ErrBadRequestLine, cl)
		}
		p.contentLength = n
	} else {
		p.contentLength = 0
	}
	p.phase = PhaseIdentityBody
	if p.contentLength == 0 {
		p.phase = PhaseComplete
	}
	return nil
}

func extractBoundary(contentType string) (string, bool) {
	i := strings.Index(contentType, "boundary=")
	if i < 0 {
		return "", false
	}
	b := contentType[i+len("boundary="):]
	if j := strings.IndexByte(b, ';'); j >= 0 {
		b = b[:j]
	}
	b = strings.Trim(b, "\"")
	b = strings.TrimSpace(b)
	if b == "" {
		return "", false
	}
	return b, true
}
