// Package reactor is the single-threaded, readiness-based I/O loop of
// spec §4.1 / §5: it owns every file descriptor in the process (listening
// sockets, client sockets, CGI pipes) and dispatches readiness into
// exactly one of the four handlers spec §4.1 names.
package reactor

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/danisayumin/webserv/internal/cgi"
	"github.com/danisayumin/webserv/internal/reqparser"
	"github.com/danisayumin/webserv/internal/router"
	"github.com/danisayumin/webserv/internal/webconfig"
)

// Reactor is the event loop: one epoll instance, the listeners bound
// into it, and every live connection and CGI pipe it is driving.
type Reactor struct {
	log  *zap.Logger
	tree *webconfig.Tree
	ep   *epoller

	listeners map[int]int // listen fd -> port

	conns     map[int]*Connection // client fd -> Connection
	cgiStdout map[int]*Connection // cgi stdout fd -> owning Connection
	cgiStdin  map[int]*Connection // cgi stdin fd -> owning Connection

	pendingReap []*cgi.Process
}

// New binds a listener for every port in tree and registers each with a
// fresh epoll instance (spec §4.1 listener setup).
func New(log *zap.Logger, tree *webconfig.Tree) (*Reactor, error) {
	ep, err := newEpoller()
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}

	r := &Reactor{
		log:       log,
		tree:      tree,
		ep:        ep,
		listeners: make(map[int]int),
		conns:     make(map[int]*Connection),
		cgiStdout: make(map[int]*Connection),
		cgiStdin:  make(map[int]*Connection),
	}

	for _, port := range tree.Ports() {
		fd, err := listenTCP(port)
		if err != nil {
			return nil, fmt.Errorf("reactor: listen on port %d: %w", port, err)
		}
		if err := ep.add(fd, uint32(readEvents)); err != nil {
			return nil, fmt.Errorf("reactor: register listener fd %d: %w", fd, err)
		}
		r.listeners[fd] = port
		log.Info("listening", zap.Int("port", port), zap.Int("fd", fd))
	}

	return r, nil
}

// Run blocks, servicing readiness events until an unrecoverable epoll
// error occurs. A 1-second poll timeout drives the CGI timeout tick of
// spec §4.1 even when no FD is otherwise ready.
func (r *Reactor) Run() error {
	events := make([]unix.EpollEvent, 256)
	for {
		r.tickTimeouts()

		n, err := r.ep.wait(events, 1000)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("reactor: epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			r.dispatch(int(events[i].Fd), events[i].Events)
		}
	}
}

func (r *Reactor) dispatch(fd int, ev uint32) {
	if port, ok := r.listeners[fd]; ok {
		r.acceptLoop(fd, port)
		return
	}
	if c, ok := r.cgiStdout[fd]; ok {
		r.handleCGIReadable(c)
		return
	}
	if c, ok := r.cgiStdin[fd]; ok {
		r.handleCGIWritable(c)
		return
	}
	if c, ok := r.conns[fd]; ok {
		if ev&uint32(writeEvents) != 0 {
			r.handleClientWritable(c)
			return
		}
		r.handleClientReadable(c)
	}
}

func (r *Reactor) acceptLoop(listenFD, port int) {
	for {
		nfd, _, err := unix.Accept4(listenFD, unix.SOCK_NONBLOCK)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			if err == unix.EINTR {
				continue
			}
			r.log.Warn("accept failed", zap.Int("listen_fd", listenFD), zap.Error(err))
			return
		}

		conn := newConnection(nfd, port)
		if err := r.ep.add(nfd, uint32(readEvents)); err != nil {
			r.log.Warn("register client fd failed", zap.Int("fd", nfd), zap.Error(err))
			unix.Close(nfd)
			continue
		}
		r.conns[nfd] = conn
		r.log.Debug("accepted connection",
			zap.Int("fd", nfd), zap.Int("port", port), zap.String("request_id", conn.RequestID))
	}
}

func (r *Reactor) handleClientReadable(c *Connection) {
	buf := make([]byte, 64*1024)
	for {
		n, err := unix.Read(c.FD, buf)
		if n > 0 {
			phase := c.Parser.Feed(buf[:n])
			switch phase {
			case reqparser.PhaseComplete:
				r.routeAndRespond(c)
				return
			case reqparser.PhaseError:
				r.log.Info("protocol error", zap.String("request_id", c.RequestID), zap.Error(c.Parser.Err()))
				c.queueWrite(router.ErrorResponse(c.Server, c.Location, 400).Bytes())
				r.armWrite(c)
				return
			}
		}
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			if err == unix.EINTR {
				continue
			}
			r.closeConnection(c, "read error")
			return
		}
		if n == 0 {
			r.closeConnection(c, "peer closed")
			return
		}
	}
}

func (r *Reactor) routeAndRespond(c *Connection) {
	req := c.Parser.Request()
	bodySize := int64(len(req.Body))
	if cl := c.Parser.ContentLength(); cl > bodySize {
		bodySize = cl
	}

	res := router.Route(r.tree, c.Port, req, bodySize)
	c.Server = res.Server
	c.Location = res.Location

	if res.Action == router.ActionCGI {
		r.spawnCGI(c, res)
		return
	}

	r.log.Info("routed request",
		zap.String("request_id", c.RequestID),
		zap.String("method", req.Method),
		zap.String("uri", req.URI),
		zap.Int("status", res.Response.Status))

	c.queueWrite(res.Response.Bytes())
	r.armWrite(c)
}

func (r *Reactor) armWrite(c *Connection) {
	if err := r.ep.modify(c.FD, uint32(writeEvents)); err != nil {
		r.closeConnection(c, "arm write failed")
	}
}

func (r *Reactor) handleClientWritable(c *Connection) {
	for !c.writeDone() {
		n, err := unix.Write(c.FD, c.writeRemaining())
		if n > 0 {
			c.writeOff += n
		}
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			if err == unix.EINTR {
				continue
			}
			r.closeConnection(c, "write error")
			return
		}
		if n == 0 {
			return
		}
	}
	// Per spec §9's Open Question decision (documented in DESIGN.md): the
	// connection is closed once a response has been fully written, rather
	// than kept alive for a further request.
	r.closeConnection(c, "response complete")
}

func (r *Reactor) closeConnection(c *Connection, reason string) {
	if c.cgiProc != nil {
		r.teardownCGI(c)
	}
	r.ep.remove(c.FD)
	unix.Close(c.FD)
	delete(r.conns, c.FD)
	r.log.Debug("connection closed", zap.Int("fd", c.FD), zap.String("request_id", c.RequestID), zap.String("reason", reason))
}

func (r *Reactor) tickTimeouts() {
	now := time.Now()
	for _, c := range r.conns {
		if c.cgiProc != nil && c.cgiProc.TimedOut(now) {
			r.timeoutCGI(c)
		}
	}
	r.drainPendingReaps()
}

// Close releases the epoll fd and every open listener. Connections are
// not individually drained; this is intended for process shutdown.
func (r *Reactor) Close() {
	for fd := range r.listeners {
		unix.Close(fd)
	}
	r.ep.close()
}
