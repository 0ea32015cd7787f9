// Package transport defines the socket abstraction the skv reactor works on.
//
// A Socket is a non-blocking byte stream bound to a file descriptor. Reads and
// writes never block: if the kernel can not make progress they return
// ErrWouldBlock, which is normal control flow and must not be treated as a
// failure. Every other error is fatal for the socket.
//
// Implementations:
//
//   - tcp: raw non-blocking TCP sockets (listen, accept, dial) for linux
package transport
