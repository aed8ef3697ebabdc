package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// listenTCP implements spec §4.1's listener setup: a stream socket,
// SO_REUSEADDR, non-blocking mode, bind to INADDR_ANY:port, listen with a
// large backlog.
func listenTCP(port int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("set nonblocking: %w", err)
	}

	addr := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind :%d: %w", port, err)
	}

	const backlog = 1024
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("listen :%d: %w", port, err)
	}

	return fd, nil
}

// peerAddr returns the IPv4 address and port of the socket fd is
// connected to, used for the CGI REMOTE_ADDR/REMOTE_PORT variables
// (spec §4.4 — "drawn from the accepted socket, never from a header").
func peerAddr(fd int) (ip string, port string) {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return "", ""
	}
	a, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return "", ""
	}
	return fmt.Sprintf("%d.%d.%d.%d", a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3]), fmt.Sprintf("%d", a.Port)
}
