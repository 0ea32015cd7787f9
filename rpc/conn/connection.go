package conn

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/skv/lib/latency"
	"github.com/ValentinKolb/skv/rpc/protocol"
	"github.com/ValentinKolb/skv/rpc/reactor"
	"github.com/ValentinKolb/skv/rpc/transport"
	"slices"
)

const (
	// DefaultBufferSize is the initial capacity of the read and write buffers
	DefaultBufferSize = 4096

	// minReadSpace is the free capacity guaranteed before every read
	minReadSpace = 512
)

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

// Connection is one TCP endpoint managed by the reactor. It accumulates bytes
// read from the socket until complete lines can be decoded and buffers
// outgoing bytes until the socket accepts them.
//
// Thread-safety: A Connection is owned by the loop goroutine and is not thread-safe.
type Connection struct {
	socket   transport.Socket
	readBuf  []byte
	writeBuf []byte
	interest reactor.Interest

	// Latency holds the send timestamps of unacknowledged messages (benchmark only, may be nil)
	Latency *latency.Tracker
}

// New creates a connection for socket with read-only interest
func New(socket transport.Socket, bufferSize int) *Connection {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Connection{
		socket:   socket,
		readBuf:  make([]byte, 0, bufferSize),
		writeBuf: make([]byte, 0, bufferSize),
		interest: reactor.Readable,
	}
}

// Fd returns the file descriptor of the underlying socket
func (c *Connection) Fd() int {
	return c.socket.Fd()
}

// Interest returns the readiness kinds the connection currently needs.
// This is the set the registration must be re-armed with.
func (c *Connection) Interest() reactor.Interest {
	return c.interest
}

// SetInterest replaces the interest set
func (c *Connection) SetInterest(interest reactor.Interest) {
	c.interest = interest
}

// ReadBuffered returns the number of received but not yet consumed bytes
func (c *Connection) ReadBuffered() int {
	return len(c.readBuf)
}

// WriteBuffered returns the number of bytes waiting to be written
func (c *Connection) WriteBuffered() int {
	return len(c.writeBuf)
}

// ReadBuffer returns the received but not yet consumed bytes.
// The slice is only valid until the next call to Fill or Consume.
func (c *Connection) ReadBuffer() []byte {
	return c.readBuf
}

// --------------------------------------------------------------------------
// Read Path
// --------------------------------------------------------------------------

// Fill drains all currently available bytes from the socket into the read buffer.
// eof is true if the peer closed its write side, the connection should be removed
// after the buffered bytes were handled. A would-block result ends the drain
// and is not an error.
func (c *Connection) Fill() (eof bool, err error) {
	for {
		if cap(c.readBuf)-len(c.readBuf) < minReadSpace {
			c.readBuf = slices.Grow(c.readBuf, max(cap(c.readBuf), minReadSpace))
		}

		n, err := c.socket.Read(c.readBuf[len(c.readBuf):cap(c.readBuf)])
		c.readBuf = c.readBuf[:len(c.readBuf)+n]

		switch {
		case errors.Is(err, transport.ErrWouldBlock):
			return false, nil
		case err != nil:
			return false, fmt.Errorf("read: %w", err)
		case n == 0:
			return true, nil
		}
	}
}

// Frames decodes all complete lines of the read buffer and removes them from it.
// A trailing partial line stays buffered.
func (c *Connection) Frames() []protocol.Frame {
	frames, consumed := protocol.Decode(c.readBuf)
	c.Consume(consumed)
	return frames
}

// Consume removes n bytes from the front of the read buffer.
// Consuming more bytes than are buffered empties the buffer.
func (c *Connection) Consume(n int) {
	c.readBuf = drain(c.readBuf, n)
}

// --------------------------------------------------------------------------
// Write Path
// --------------------------------------------------------------------------

// Send appends resp and the line terminator to the write buffer and
// adds writable interest.
func (c *Connection) Send(resp string) {
	c.interest = c.interest.Add(reactor.Writable)
	c.writeBuf = protocol.AppendResponse(c.writeBuf, resp)
}

// AppendWrite exposes the write buffer to an encoder: fn receives the current
// buffer and returns the extended one. Writable interest is added.
func (c *Connection) AppendWrite(fn func(buf []byte) []byte) {
	c.interest = c.interest.Add(reactor.Writable)
	c.writeBuf = fn(c.writeBuf)
}

// Flush writes as much of the write buffer as the socket accepts and returns
// the number of bytes written. Written bytes are removed from the front of the
// buffer, the rest stays for the next writable notification. Once the buffer
// is empty the writable interest is dropped.
//
// Errors:
//   - transport.ErrWriteZero if the socket accepted zero bytes without blocking
//   - any other socket error
func (c *Connection) Flush() (int, error) {
	idx := 0
	for idx < len(c.writeBuf) {
		n, err := c.socket.Write(c.writeBuf[idx:])
		idx += n

		switch {
		case errors.Is(err, transport.ErrWouldBlock):
			// socket is full: keep the unwritten rest for the next writable event
			c.writeBuf = drain(c.writeBuf, idx)
			return idx, nil
		case err != nil:
			c.writeBuf = drain(c.writeBuf, idx)
			return idx, fmt.Errorf("write: %w", err)
		case n == 0:
			c.writeBuf = drain(c.writeBuf, idx)
			return idx, transport.ErrWriteZero
		}
	}

	c.writeBuf = c.writeBuf[:0]
	c.interest = c.interest.Remove(reactor.Writable)
	return idx, nil
}

// Close closes the socket and drops all buffered bytes
func (c *Connection) Close() error {
	c.readBuf = nil
	c.writeBuf = nil
	c.Latency = nil
	return c.socket.Close()
}

func (c *Connection) String() string {
	return fmt.Sprintf("Connection{fd: %d, interest: %s, read: %d, write: %d}",
		c.socket.Fd(), c.interest, len(c.readBuf), len(c.writeBuf))
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// drain removes the first n bytes of buf while keeping its capacity
func drain(buf []byte, n int) []byte {
	if n <= 0 {
		return buf
	}
	if n >= len(buf) {
		return buf[:0]
	}
	return buf[:copy(buf, buf[n:])]
}
