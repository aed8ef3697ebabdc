package reqparser

import (
	"bytes"
	"fmt"
	"strings"
)

// multipartSubphase is the nested state for MULTIPART_BODY (spec §3.5,
// §4.3).
type multipartSubphase int

const (
	multipartStart multipartSubphase = iota
	multipartHeaders
	multipartBody
	multipartEnd
)

type multipartState struct {
	sub      multipartSubphase
	boundary string // includes the leading "--"

	fieldName   string
	filename    string
	contentType string
	isFile      bool
	partBody    []byte
}

// feedMultipart advances the MULTIPART_BODY sub-machine (spec §4.3). It
// never emits more than one "boundary_length" byte tail without a match
// decision (spec §3.5 invariant): when no boundary is found in the
// buffered tail, all but the last len(boundary)+2 bytes are safely emitted
// as part body, since that suffix could still become a CRLF + boundary
// prefix.
func (p *Parser) feedMultipart() (bool, error) {
	for {
		switch p.multi.sub {
		case multipartStart:
			data := p.cur.bytes()
			boundary := p.multi.boundary
			if len(data) < len(boundary) {
				return false, nil
			}
			if !bytes.HasPrefix(data, []byte(boundary)) {
				return false, fmt.Errorf("%w: expected initial boundary", ErrBadMultipart)
			}
			rest := data[len(boundary):]
			if len(rest) >= 1 && rest[0] == '\r' && len(rest) < 2 {
				return false, nil // need to know if \r is followed by \n
			}
			consumed := len(boundary)
			if len(rest) >= 2 && rest[0] == '\r' && rest[1] == '\n' {
				consumed += 2
			} else if len(rest) >= 1 && rest[0] == '\n' {
				consumed += 1
			}
			p.cur.advance(consumed)
			p.multi.sub = multipartHeaders

		case multipartHeaders:
			data := p.cur.bytes()
			headerEnd, sepLen, ok := findBlankLine(data)
			if !ok {
				return false, nil
			}
			raw := data[:headerEnd]
			p.cur.advance(headerEnd + sepLen)
			p.parsePartHeaders(raw)
			p.multi.sub = multipartBody

		case multipartBody:
			data := p.cur.bytes()
			boundary := p.multi.boundary
			m, found, needMore := locateBoundary(data, boundary)
			if !found {
				if !needMore {
					// No candidate delimiter anywhere in the buffered tail;
					// hold back enough that a CRLF/LF + boundary split across
					// reads is never missed (spec §8 boundary safety).
					safe := 0
					if guard := len(boundary) + 2; len(data) > guard {
						safe = len(data) - guard
					}
					if safe > 0 {
						p.multi.partBody = append(p.multi.partBody, data[:safe]...)
						p.cur.advance(safe)
					}
				}
				return false, nil
			}

			partData := data[:m.idx-m.prefixLen]
			p.multi.partBody = append(p.multi.partBody, partData...)
			p.commitPart()

			if m.final {
				consumed := m.idx + len(boundary) + 2
				tail := data[consumed:]
				if len(tail) >= 2 && tail[0] == '\r' && tail[1] == '\n' {
					consumed += 2
				} else if len(tail) >= 1 && tail[0] == '\n' {
					consumed += 1
				}
				p.cur.advance(consumed)
				p.multi.sub = multipartEnd
				return true, nil
			}

			consumed := m.idx + len(boundary)
			tail := data[consumed:]
			if tail[0] == '\r' && tail[1] == '\n' {
				consumed += 2
			} else if tail[0] == '\n' {
				consumed += 1
			}
			p.cur.advance(consumed)
			p.multi.sub = multipartHeaders

		case multipartEnd:
			return true, nil
		}
	}
}

func (p *Parser) commitPart() {
	if p.multi.isFile {
		p.req.AddUploadedFile(p.multi.fieldName, p.multi.filename, p.multi.contentType, p.multi.partBody)
	} else {
		p.req.AddFormField(p.multi.fieldName, string(p.multi.partBody))
	}
	p.multi.partBody = nil
	p.multi.isFile = false
	p.multi.filename = ""
	p.multi.fieldName = ""
	p.multi.contentType = ""
}

// parsePartHeaders extracts the field name, optional filename, and
// optional content type from a part's Content-Disposition/Content-Type
// headers (spec §4.3 HEADERS phase).
func (p *Parser) parsePartHeaders(raw []byte) {
	lines := strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n")
	for _, line := range lines {
		i := strings.IndexByte(line, ':')
		if i < 0 {
			continue
		}
		key := strings.TrimSpace(line[:i])
		value := strings.TrimSpace(line[i+1:])
		switch strings.ToLower(key) {
		case "content-disposition":
			if name, ok := extractQuoted(value, "name="); ok {
				p.multi.fieldName = name
			}
			if filename, ok := extractQuoted(value, "filename="); ok {
				p.multi.filename = filename
				p.multi.isFile = true
			}
		case "content-type":
			p.multi.contentType = value
		}
	}
}

func extractQuoted(s, key string) (string, bool) {
	i := strings.Index(s, key)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(key):]
	if len(rest) == 0 || rest[0] != '"' {
		return "", false
	}
	end := strings.IndexByte(rest[1:], '"')
	if end < 0 {
		return "", false
	}
	return rest[1 : 1+end], true
}

// findBlankLine locates the earliest "\r\n\r\n" or "\n\n" in data,
// returning the length of content before it and the separator length.
func findBlankLine(data []byte) (headerLen, sepLen int, ok bool) {
	crlf := bytes.Index(data, []byte("\r\n\r\n"))
	lf := bytes.Index(data, []byte("\n\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf <= lf):
		return crlf, 4, true
	case lf >= 0:
		return lf, 2, true
	default:
		return 0, 0, false
	}
}

// boundaryMatch describes a delimiter line found by locateBoundary.
type boundaryMatch struct {
	idx       int // start of the matched boundary text within data
	prefixLen int // CRLF (2) or bare LF (1) bytes immediately preceding idx
	final     bool
}

// locateBoundary scans data for the next genuine boundary delimiter line
// (spec §4.3). A plain textual match of the boundary string is not
// enough to trust as the terminator (spec §8 boundary safety): part
// content can itself contain the boundary string, so a candidate is only
// accepted if it is preceded by CRLF/LF *and* — unless it is the
// terminal "--boundary--" form — is immediately followed by a line that
// looks like the start of the next part's headers (a blank line, or one
// containing ':'). Content that merely contains the boundary bytes on a
// line of its own, with non-header bytes following, is rejected and the
// scan continues past it.
//
// Returns ok=false, needMore=true when a CRLF/LF-prefixed candidate
// exists but the buffered tail doesn't yet extend far enough to judge
// it; ok=false, needMore=false when no candidate exists at all in the
// buffered data yet.
func locateBoundary(data []byte, boundary string) (m boundaryMatch, ok bool, needMore bool) {
	needle := []byte(boundary)
	from := 0
	for {
		rel := bytes.Index(data[from:], needle)
		if rel < 0 {
			return boundaryMatch{}, false, false
		}
		pos := from + rel

		var prefixLen int
		switch {
		case pos >= 2 && data[pos-2] == '\r' && data[pos-1] == '\n':
			prefixLen = 2
		case pos >= 1 && data[pos-1] == '\n':
			prefixLen = 1
		default:
			from = pos + 1
			continue
		}

		need := pos + len(boundary) + 2
		if len(data) < need {
			return boundaryMatch{}, false, true
		}

		after := data[pos+len(boundary):]
		if after[0] == '-' && after[1] == '-' {
			return boundaryMatch{idx: pos, prefixLen: prefixLen, final: true}, true, false
		}

		var sepLen int
		switch {
		case after[0] == '\r' && len(after) >= 2 && after[1] == '\n':
			sepLen = 2
		case after[0] == '\n':
			sepLen = 1
		default:
			from = pos + 1
			continue
		}

		rest := data[pos+len(boundary)+sepLen:]
		lineEnd := bytes.IndexAny(rest, "\r\n")
		if lineEnd < 0 {
			return boundaryMatch{}, false, true
		}
		line := rest[:lineEnd]
		if len(line) == 0 || bytes.IndexByte(line, ':') >= 0 {
			return boundaryMatch{idx: pos, prefixLen: prefixLen}, true, false
		}
		from = pos + 1
	}
}
