//go:build !linux

package tcp

import (
	"errors"
	"github.com/ValentinKolb/skv/rpc/common"
	"net"
)

var errUnsupported = errors.New("tcp: non-blocking sockets are only available on linux")

// Socket is not available on this platform
type Socket struct{}

func (s *Socket) Fd() int                   { return -1 }
func (s *Socket) Peer() string              { return "" }
func (s *Socket) Read([]byte) (int, error)  { return 0, errUnsupported }
func (s *Socket) Write([]byte) (int, error) { return 0, errUnsupported }
func (s *Socket) Close() error              { return nil }
func (s *Socket) ConnectError() error       { return errUnsupported }
func (s *Socket) String() string            { return "unsupported" }

// Listener is not available on this platform
type Listener struct{}

func Listen(common.TransportConfig) (*Listener, error) { return nil, errUnsupported }
func Dial(common.TransportConfig) (*Socket, error)     { return nil, errUnsupported }

func (l *Listener) Fd() int                  { return -1 }
func (l *Listener) Port() int                { return 0 }
func (l *Listener) Addr() *net.TCPAddr       { return nil }
func (l *Listener) Accept() (*Socket, error) { return nil, errUnsupported }
func (l *Listener) Close() error             { return nil }
