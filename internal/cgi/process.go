package cgi

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Process is one in-flight CGI child (spec §4.4). The reactor registers
// StdinFD for write-readiness while there is request body left to push,
// and StdoutFD for read-readiness until the child closes its end.
type Process struct {
	cmd *exec.Cmd

	stdinW  *os.File
	stdoutR *os.File

	StdinFD  int
	StdoutFD int

	body    []byte
	bodyOff int

	Output   []byte
	Deadline time.Time

	mu     sync.Mutex
	exited bool
	killed bool
}

// Spawn forks scriptPath as a CGI child with argv[0] set to scriptPath,
// working directory dir, and the given environment. Parent/child ends of
// two pipes replace fork+dup2+execve (spec §4.4): stdinW is the parent's
// write end of the child's stdin, stdoutR is the parent's read end of the
// child's merged stdout+stderr.
func Spawn(scriptPath, dir string, env []string, body []byte, timeout time.Duration) (*Process, error) {
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("cgi: stdin pipe: %w", err)
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		return nil, fmt.Errorf("cgi: stdout pipe: %w", err)
	}

	cmd := exec.Command(scriptPath)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stdoutW

	if err := cmd.Start(); err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("cgi: start %s: %w", scriptPath, err)
	}

	// The child now holds its own dup'd copies; the parent's copies of the
	// child-facing ends are no longer needed.
	stdinR.Close()
	stdoutW.Close()

	if err := unix.SetNonblock(int(stdinW.Fd()), true); err != nil {
		cmd.Process.Kill()
		stdinW.Close()
		stdoutR.Close()
		return nil, fmt.Errorf("cgi: set stdin nonblocking: %w", err)
	}
	if err := unix.SetNonblock(int(stdoutR.Fd()), true); err != nil {
		cmd.Process.Kill()
		stdinW.Close()
		stdoutR.Close()
		return nil, fmt.Errorf("cgi: set stdout nonblocking: %w", err)
	}

	p := &Process{
		cmd:      cmd,
		stdinW:   stdinW,
		stdoutR:  stdoutR,
		StdinFD:  int(stdinW.Fd()),
		StdoutFD: int(stdoutR.Fd()),
		body:     body,
		Deadline: time.Now().Add(timeout),
	}
	if len(body) == 0 {
		p.CloseStdin()
	}
	return p, nil
}

// PID returns the child's process id.
func (p *Process) PID() int {
	if p.cmd.Process == nil {
		return -1
	}
	return p.cmd.Process.Pid
}

// WantsStdinWrite reports whether there is still body left to push.
func (p *Process) WantsStdinWrite() bool {
	return p.stdinW != nil && p.bodyOff < len(p.body)
}

// WriteStdin pushes as much of the remaining body as the pipe will accept
// without blocking, writing until the pipe reports EAGAIN. It closes the write end once the body is
// exhausted, signalling EOF to the child.
func (p *Process) WriteStdin() error {
	if p.stdinW == nil {
		return nil
	}
	for p.bodyOff < len(p.body) {
		n, err := unix.Write(p.StdinFD, p.body[p.bodyOff:])
		if n > 0 {
			p.bodyOff += n
		}
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return nil
			}
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("cgi: write stdin: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
	p.CloseStdin()
	return nil
}

// CloseStdin closes the parent's write end, delivering EOF to the child.
func (p *Process) CloseStdin() {
	if p.stdinW != nil {
		p.stdinW.Close()
		p.stdinW = nil
	}
}

// ReadStdout drains everything currently available on the child's merged
// stdout/stderr. It returns done=true once the pipe reports EOF (the
// child closed its write end, usually because it exited).
func (p *Process) ReadStdout() (done bool, err error) {
	buf := make([]byte, 64*1024)
	for {
		n, rerr := unix.Read(p.StdoutFD, buf)
		if n > 0 {
			p.Output = append(p.Output, buf[:n]...)
		}
		if rerr != nil {
			if rerr == unix.EAGAIN || rerr == unix.EWOULDBLOCK {
				return false, nil
			}
			if rerr == unix.EINTR {
				continue
			}
			return false, fmt.Errorf("cgi: read stdout: %w", rerr)
		}
		if n == 0 {
			return true, nil
		}
	}
}

// TimedOut reports whether the deadline set at Spawn time has passed.
func (p *Process) TimedOut(now time.Time) bool {
	return now.After(p.Deadline)
}

// Kill sends SIGKILL to the child. Safe to call more than once.
func (p *Process) Kill() {
	if p.killed || p.cmd.Process == nil {
		return
	}
	p.killed = true
	p.cmd.Process.Signal(syscall.SIGKILL)
}

// Close releases the pipe file descriptors. Reap must be called
// separately to avoid leaving a zombie.
func (p *Process) Close() {
	p.CloseStdin()
	if p.stdoutR != nil {
		p.stdoutR.Close()
		p.stdoutR = nil
	}
}

// Reap waits for the child to exit, blocking only when block is true
// (spec §4.4: "the child is reaped with a blocking wait once its stdout
// reaches EOF; a timed-out child is killed and reaped non-blockingly").
// Guarded so a child is only actually waited on once: a non-blocking call
// that finds the child still running (reaped=false, err=nil) may be
// retried later without risk of double-reaping.
func (p *Process) Reap(block bool) (exitCode int, reaped bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exited {
		return 0, true, nil
	}

	var ws syscall.WaitStatus
	options := 0
	if !block {
		options = syscall.WNOHANG
	}
	pid := p.cmd.Process.Pid
	for {
		wpid, werr := syscall.Wait4(pid, &ws, options, nil)
		if werr == syscall.EINTR {
			continue
		}
		if werr != nil {
			return 0, false, fmt.Errorf("cgi: wait4: %w", werr)
		}
		if !block && wpid == 0 {
			return 0, false, nil
		}
		break
	}
	p.exited = true
	return ws.ExitStatus(), true, nil
}
