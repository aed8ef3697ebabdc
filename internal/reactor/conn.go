package reactor

import (
	"github.com/google/uuid"

	"github.com/danisayumin/webserv/internal/cgi"
	"github.com/danisayumin/webserv/internal/reqparser"
	"github.com/danisayumin/webserv/internal/webconfig"
)

// Connection is the per-client state of spec §3.4: owned by the event
// loop, keyed by client FD.
type Connection struct {
	FD   int
	Port int

	// RequestID correlates log lines for this connection (and any CGI
	// child it spawns) across the loop's interleaved dispatch; a
	// [SUPPLEMENT] of SPEC_FULL.md, not part of the wire protocol.
	RequestID string

	Parser *reqparser.Parser

	writeBuf []byte
	writeOff int

	Server   *webconfig.ServerConfig
	Location *webconfig.LocationConfig

	cgiProc *cgi.Process
}

func newConnection(fd, port int) *Connection {
	return &Connection{
		FD:        fd,
		Port:      port,
		RequestID: uuid.NewString(),
		Parser:    reqparser.New(),
	}
}

// queueWrite arms the connection with resp, to be drained by writes as
// the client becomes write-ready.
func (c *Connection) queueWrite(resp []byte) {
	c.writeBuf = resp
	c.writeOff = 0
}

func (c *Connection) writeRemaining() []byte {
	return c.writeBuf[c.writeOff:]
}

func (c *Connection) writeDone() bool {
	return c.writeOff >= len(c.writeBuf)
}
