// Package tcp implements non-blocking TCP sockets for the skv reactor.
//
// Unlike the sockets of the net package, these sockets are not managed by the
// Go runtime poller: they are plain file descriptors opened with SOCK_NONBLOCK
// and meant to be registered with a reactor.Loop. Every operation returns
// transport.ErrWouldBlock instead of blocking.
//
// Key Components:
//
//   - Listener: listening socket with non-blocking Accept
//
//   - Socket: connected stream socket implementing transport.Socket
//
//   - Dial: non-blocking connect, completion is signalled by writability
//
// Socket options (TCP_NODELAY, buffer sizes, keep-alive, linger) are taken
// from common.TransportConfig and applied to every accepted or dialed socket.
package tcp
