package reactor

import "golang.org/x/sys/unix"

// epoller wraps the three epoll syscalls the loop needs. Level-triggered
// mode throughout (no EPOLLET), per spec §4.1's "any readiness primitive
// with the same level-triggered contract is acceptable".
type epoller struct {
	fd int
}

func newEpoller() (*epoller, error) {
	fd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &epoller{fd: fd}, nil
}

func (e *epoller) add(fd int, events uint32) error {
	return unix.EpollCtl(e.fd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: events, Fd: int32(fd)})
}

func (e *epoller) modify(fd int, events uint32) error {
	return unix.EpollCtl(e.fd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{Events: events, Fd: int32(fd)})
}

// remove is tolerant of ENOENT/EBADF: callers may ask to remove an fd
// that was already closed (and therefore auto-dropped from the epoll
// set) along some other cleanup path.
func (e *epoller) remove(fd int) error {
	err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_DEL, fd, nil)
	if err == unix.ENOENT || err == unix.EBADF {
		return nil
	}
	return err
}

func (e *epoller) wait(events []unix.EpollEvent, timeoutMillis int) (int, error) {
	return unix.EpollWait(e.fd, events, timeoutMillis)
}

func (e *epoller) close() error {
	return unix.Close(e.fd)
}

const (
	readEvents  = unix.EPOLLIN
	writeEvents = unix.EPOLLOUT
)
