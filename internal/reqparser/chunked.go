package reqparser

import (
	"fmt"
	"strconv"
	"strings"
)

// chunkSubphase is the nested state for CHUNKED_BODY (spec §3.5).
type chunkSubphase int

const (
	chunkSize chunkSubphase = iota
	chunkData
	chunkEndCRLF
	chunkTrailer
	chunkDone
)

type chunkState struct {
	sub        chunkSubphase
	size       int64
	readInThis int64
}

// feedChunked advances the CHUNKED_BODY sub-machine as far as the
// currently buffered bytes allow (spec §4.2 "Chunked body"). Returns
// (true, nil) once the terminating trailer's blank line has been seen.
func (p *Parser) feedChunked() (bool, error) {
	for {
		switch p.chunk.sub {
		case chunkSize:
			line, consumed, ok := p.cur.findLine()
			if !ok {
				return false, nil
			}
			sizeStr := string(line)
			if i := strings.IndexByte(sizeStr, ';'); i >= 0 {
				sizeStr = sizeStr[:i]
			}
			sizeStr = strings.TrimSpace(sizeStr)
			n, err := strconv.ParseInt(sizeStr, 16, 64)
			if err != nil || n < 0 {
				return false, fmt.Errorf("%w: %q", ErrBadChunkSize, line)
			}
			p.cur.advance(consumed)
			p.chunk.size = n
			p.chunk.readInThis = 0
			if n == 0 {
				p.chunk.sub = chunkTrailer
			} else {
				p.chunk.sub = chunkData
			}

		case chunkData:
			remaining := p.chunk.size - p.chunk.readInThis
			avail := int64(p.cur.len())
			n := remaining
			if avail < n {
				n = avail
			}
			if n > 0 {
				p.req.Body = append(p.req.Body, p.cur.bytes()[:n]...)
				p.cur.advance(int(n))
				p.chunk.readInThis += n
			}
			if p.chunk.readInThis < p.chunk.size {
				return false, nil
			}
			p.chunk.sub = chunkEndCRLF

		case chunkEndCRLF:
			tail := p.cur.bytes()
			if len(tail) >= 2 && tail[0] == '\r' && tail[1] == '\n' {
				p.cur.advance(2)
			} else if len(tail) >= 1 && tail[0] == '\n' {
				p.cur.advance(1)
			} else {
				return false, nil
			}
			p.chunk.sub = chunkSize

		case chunkTrailer:
			line, consumed, ok := p.cur.findLine()
			if !ok {
				return false, nil
			}
			p.cur.advance(consumed)
			if len(line) == 0 {
				p.chunk.sub = chunkDone
				return true, nil
			}
			// Trailer headers are currently discarded (spec §9 Open
			// Questions: merging into request headers is unspecified).

		case chunkDone:
			return true, nil
		}
	}
}
