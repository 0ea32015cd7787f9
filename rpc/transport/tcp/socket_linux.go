//go:build linux

package tcp

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/skv/rpc/common"
	"github.com/ValentinKolb/skv/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sys/unix"
	"net"
	"os"
	"strconv"
)

var Logger = logger.GetLogger("transport/tcp")

const listenBacklog = 1024

var _ transport.Socket = (*Socket)(nil)

// --------------------------------------------------------------------------
// Socket
// --------------------------------------------------------------------------

// Socket is a non-blocking TCP stream socket (implements transport.Socket)
type Socket struct {
	fd   int
	peer string
}

func (s *Socket) Fd() int {
	return s.fd
}

// String returns a short description of the socket used in log lines
func (s *Socket) String() string {
	return "fd " + strconv.Itoa(s.fd) + " (" + s.peer + ")"
}

// Peer returns the remote address of the socket
func (s *Socket) Peer() string {
	return s.peer
}

func (s *Socket) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(s.fd, p)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, transport.ErrWouldBlock
		default:
			return 0, os.NewSyscallError("read", err)
		}
	}
}

func (s *Socket) Write(p []byte) (int, error) {
	for {
		n, err := unix.Write(s.fd, p)
		switch {
		case err == nil:
			return n, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, transport.ErrWouldBlock
		default:
			return 0, os.NewSyscallError("write", err)
		}
	}
}

func (s *Socket) Close() error {
	return unix.Close(s.fd)
}

// ConnectError returns the pending error of a non-blocking connect (nil once connected)
func (s *Socket) ConnectError() error {
	errno, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return os.NewSyscallError("getsockopt", err)
	}
	if errno != 0 {
		return os.NewSyscallError("connect", unix.Errno(errno))
	}
	return nil
}

// --------------------------------------------------------------------------
// Listener
// --------------------------------------------------------------------------

// Listener is a non-blocking TCP listening socket
type Listener struct {
	fd   int
	addr *net.TCPAddr
	conf common.TransportConfig
}

// Listen creates a non-blocking listening socket on the endpoint of config.
// Port 0 binds an ephemeral port, see Addr.
func Listen(config common.TransportConfig) (*Listener, error) {
	addr, err := net.ResolveTCPAddr("tcp", config.Endpoint())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", config.Endpoint(), err)
	}

	family, sa := sockaddr(addr)
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError("setsockopt", err)
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to bind %s: %w", config.Endpoint(), os.NewSyscallError("bind", err))
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		_ = unix.Close(fd)
		return nil, os.NewSyscallError("listen", err)
	}

	// resolve the bound address (relevant for port 0)
	if bound, err := unix.Getsockname(fd); err == nil {
		if tcpAddr := tcpAddrOf(bound); tcpAddr != nil {
			addr = tcpAddr
		}
	}

	Logger.Infof("listening on %s", addr)

	return &Listener{fd: fd, addr: addr, conf: config}, nil
}

// Port returns the bound port of the listener
func (l *Listener) Port() int {
	return l.addr.Port
}

func (l *Listener) Fd() int {
	return l.fd
}

// Addr returns the bound address of the listener
func (l *Listener) Addr() *net.TCPAddr {
	return l.addr
}

// Accept accepts one pending connection. It returns transport.ErrWouldBlock
// if no connection is pending. Accepted sockets are non-blocking and have the
// socket options of the listener's configuration applied.
func (l *Listener) Accept() (*Socket, error) {
	for {
		fd, sa, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		switch {
		case err == nil:
			s := &Socket{fd: fd, peer: addrString(sa)}
			if err := applyOptions(fd, l.conf); err != nil {
				// options are best effort, the connection is still usable
				Logger.Warningf("failed to apply socket options to %s: %v", s.peer, err)
			}
			return s, nil
		case errors.Is(err, unix.EINTR), errors.Is(err, unix.ECONNABORTED):
			continue
		case errors.Is(err, unix.EAGAIN):
			return nil, transport.ErrWouldBlock
		default:
			return nil, os.NewSyscallError("accept", err)
		}
	}
}

func (l *Listener) Close() error {
	return unix.Close(l.fd)
}

// --------------------------------------------------------------------------
// Dialing
// --------------------------------------------------------------------------

// Dial starts a non-blocking connect to the endpoint of config.
// The connection is established once the socket reports writability,
// use ConnectError to check the outcome.
func Dial(config common.TransportConfig) (*Socket, error) {
	addr, err := net.ResolveTCPAddr("tcp", config.Endpoint())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", config.Endpoint(), err)
	}

	family, sa := sockaddr(addr)
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}

	if err := applyOptions(fd, config); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	for {
		err = unix.Connect(fd, sa)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		break
	}
	if err != nil && !errors.Is(err, unix.EINPROGRESS) {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, os.NewSyscallError("connect", err))
	}

	return &Socket{fd: fd, peer: addr.String()}, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// applyOptions applies the TCPConf and SocketConf values of config to fd
func applyOptions(fd int, config common.TransportConfig) error {
	if config.TCPNoDelay {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			return os.NewSyscallError("setsockopt TCP_NODELAY", err)
		}
	}

	if config.WriteBufferSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, config.WriteBufferSize); err != nil {
			return os.NewSyscallError("setsockopt SO_SNDBUF", err)
		}
	}

	if config.ReadBufferSize > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, config.ReadBufferSize); err != nil {
			return os.NewSyscallError("setsockopt SO_RCVBUF", err)
		}
	}

	if config.TCPKeepAliveSec > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
			return os.NewSyscallError("setsockopt SO_KEEPALIVE", err)
		}
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, config.TCPKeepAliveSec); err != nil {
			return os.NewSyscallError("setsockopt TCP_KEEPIDLE", err)
		}
	}

	if config.TCPLingerSec >= 0 {
		linger := &unix.Linger{Onoff: 1, Linger: int32(config.TCPLingerSec)}
		if err := unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, linger); err != nil {
			return os.NewSyscallError("setsockopt SO_LINGER", err)
		}
	}

	return nil
}

func sockaddr(addr *net.TCPAddr) (int, unix.Sockaddr) {
	if addr.IP == nil || addr.IP.To4() != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		if ip4 := addr.IP.To4(); ip4 != nil {
			copy(sa.Addr[:], ip4)
		}
		return unix.AF_INET, sa
	}

	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	return unix.AF_INET6, sa
}

func tcpAddrOf(sa unix.Sockaddr) *net.TCPAddr {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(sa.Addr[:]).To16(), Port: sa.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(sa.Addr[:]), Port: sa.Port}
	default:
		return nil
	}
}

func addrString(sa unix.Sockaddr) string {
	if addr := tcpAddrOf(sa); addr != nil {
		return addr.String()
	}
	return "unknown"
}
