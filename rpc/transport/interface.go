package transport

import (
	"errors"
)

var (
	// ErrWouldBlock is returned by non-blocking operations that can not make progress
	ErrWouldBlock = errors.New("transport: operation would block")
	// ErrWriteZero is returned when a write could not transfer a single byte
	ErrWriteZero = errors.New("transport: unable to write to socket")
)

// Socket is a non-blocking stream socket
type Socket interface {
	// Fd returns the file descriptor used for readiness registration
	Fd() int
	// Read reads up to len(p) bytes. n == 0 with a nil error means the peer
	// closed its write side. ErrWouldBlock is returned if no data is available.
	Read(p []byte) (n int, err error)
	// Write writes up to len(p) bytes and returns how many were accepted.
	// ErrWouldBlock is returned if the send buffer is full.
	Write(p []byte) (n int, err error)
	// Close releases the socket
	Close() error
}
