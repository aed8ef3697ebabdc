package reactor

import (
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/danisayumin/webserv/internal/cgi"
	"github.com/danisayumin/webserv/internal/router"
)

func (r *Reactor) spawnCGI(c *Connection, res *router.Result) {
	req := c.Parser.Request()
	remoteAddr, remotePort := peerAddr(c.FD)

	serverName := req.Host()
	if c.Server != nil && len(c.Server.ServerNames) > 0 {
		serverName = c.Server.ServerNames[0]
	}

	env := cgi.BuildEnv(req, c.Location, res.CGI.DocumentRoot, res.CGI.ScriptPath, res.CGI.PathInfo,
		remoteAddr, remotePort, serverName, c.Port)

	dir := res.CGI.DocumentRoot
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	timeout := time.Duration(res.CGI.Timeout) * time.Second
	proc, err := cgi.Spawn(res.CGI.ScriptPath, dir, env, req.Body, timeout)
	if err != nil {
		r.log.Warn("cgi spawn failed", zap.String("request_id", c.RequestID), zap.Error(err))
		c.queueWrite(router.ErrorResponse(c.Server, c.Location, 500).Bytes())
		r.armWrite(c)
		return
	}

	c.cgiProc = proc
	r.cgiStdout[proc.StdoutFD] = c
	if err := r.ep.add(proc.StdoutFD, uint32(readEvents)); err != nil {
		r.log.Warn("cgi stdout registration failed", zap.Error(err))
	}
	if proc.WantsStdinWrite() {
		r.cgiStdin[proc.StdinFD] = c
		if err := r.ep.add(proc.StdinFD, uint32(writeEvents)); err != nil {
			r.log.Warn("cgi stdin registration failed", zap.Error(err))
		}
	}

	r.log.Debug("cgi spawned",
		zap.String("request_id", c.RequestID), zap.Int("pid", proc.PID()), zap.String("script", res.CGI.ScriptPath))
}

func (r *Reactor) handleCGIWritable(c *Connection) {
	p := c.cgiProc
	if p == nil {
		return
	}
	if err := p.WriteStdin(); err != nil {
		r.log.Info("cgi stdin write failed", zap.String("request_id", c.RequestID), zap.Error(err))
		r.finishCGI(c, 500)
		return
	}
	if !p.WantsStdinWrite() {
		r.ep.remove(p.StdinFD)
		delete(r.cgiStdin, p.StdinFD)
	}
}

func (r *Reactor) handleCGIReadable(c *Connection) {
	p := c.cgiProc
	if p == nil {
		return
	}
	done, err := p.ReadStdout()
	if err != nil {
		r.log.Info("cgi stdout read failed", zap.String("request_id", c.RequestID), zap.Error(err))
		r.finishCGI(c, 500)
		return
	}
	if !done {
		return
	}

	r.ep.remove(p.StdoutFD)
	delete(r.cgiStdout, p.StdoutFD)
	if p.WantsStdinWrite() {
		r.ep.remove(p.StdinFD)
		delete(r.cgiStdin, p.StdinFD)
	}

	// The child has closed its stdout, so it is at or very near exit; a
	// blocking wait here is bounded (spec §5 suspension-points note).
	p.Reap(true)

	resp, ierr := cgi.Interpret(p.Output)
	p.Close()
	c.cgiProc = nil

	if ierr != nil {
		r.log.Info("cgi output rejected", zap.String("request_id", c.RequestID), zap.Error(ierr))
		c.queueWrite(router.ErrorResponse(c.Server, c.Location, 500).Bytes())
	} else {
		c.queueWrite(resp.Bytes())
	}
	r.armWrite(c)
}

func (r *Reactor) timeoutCGI(c *Connection) {
	p := c.cgiProc
	r.log.Info("cgi timed out", zap.String("request_id", c.RequestID), zap.Int("pid", p.PID()))
	p.Kill()
	r.teardownCGIPipes(p)
	p.Close()
	if _, reaped, _ := p.Reap(false); !reaped {
		r.pendingReap = append(r.pendingReap, p)
	}
	c.cgiProc = nil

	c.queueWrite(router.ErrorResponse(c.Server, c.Location, 504).Bytes())
	r.armWrite(c)
}

// finishCGI tears down an in-flight CGI after a hard pipe error and
// synthesizes status for the still-open client (spec §4.4 "Exit
// cleanup").
func (r *Reactor) finishCGI(c *Connection, status int) {
	p := c.cgiProc
	p.Kill()
	r.teardownCGIPipes(p)
	p.Close()
	if _, reaped, _ := p.Reap(false); !reaped {
		r.pendingReap = append(r.pendingReap, p)
	}
	c.cgiProc = nil

	c.queueWrite(router.ErrorResponse(c.Server, c.Location, status).Bytes())
	r.armWrite(c)
}

// teardownCGI is used when the owning connection itself is being closed
// (peer disconnect mid-CGI, spec §5 "Cancellation"): the child is killed
// and reaped without producing a response, since there is no client left
// to write one to.
func (r *Reactor) teardownCGI(c *Connection) {
	p := c.cgiProc
	p.Kill()
	r.teardownCGIPipes(p)
	p.Close()
	if _, reaped, _ := p.Reap(false); !reaped {
		r.pendingReap = append(r.pendingReap, p)
	}
	c.cgiProc = nil
}

func (r *Reactor) teardownCGIPipes(p *cgi.Process) {
	if _, ok := r.cgiStdout[p.StdoutFD]; ok {
		r.ep.remove(p.StdoutFD)
		delete(r.cgiStdout, p.StdoutFD)
	}
	if _, ok := r.cgiStdin[p.StdinFD]; ok {
		r.ep.remove(p.StdinFD)
		delete(r.cgiStdin, p.StdinFD)
	}
}

func (r *Reactor) drainPendingReaps() {
	if len(r.pendingReap) == 0 {
		return
	}
	remaining := r.pendingReap[:0]
	for _, p := range r.pendingReap {
		if _, reaped, _ := p.Reap(false); !reaped {
			remaining = append(remaining, p)
		}
	}
	r.pendingReap = remaining
}
