package bench

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/ValentinKolb/skv/lib/latency"
	"github.com/ValentinKolb/skv/rpc/conn"
	"github.com/ValentinKolb/skv/rpc/protocol"
	"github.com/ValentinKolb/skv/rpc/reactor"
	"github.com/ValentinKolb/skv/rpc/transport/tcp"
	"github.com/eapache/queue"
)

var (
	// ErrMalformedAck is returned if the server sent anything but "OK\n"
	ErrMalformedAck = errors.New("malformed acknowledgement")
	// ErrPeerClosed is returned if the server closed the connection
	ErrPeerClosed = errors.New("connection closed by server")
)

var ack = []byte(protocol.Ack)

// connection is one benchmark connection. Besides the buffers it tracks the
// boundaries of the requests that are not completely written yet.
type connection struct {
	*conn.Connection
	socket *tcp.Socket

	boundaries *queue.Queue // lengths of buffered requests, oldest first
	partial    int          // bytes of the oldest buffered request already written
	connected  bool
}

func newConnection(socket *tcp.Socket) *connection {
	c := &connection{
		Connection: conn.New(socket, conn.DefaultBufferSize),
		socket:     socket,
		boundaries: queue.New(),
	}
	c.Latency = latency.NewTracker()

	// the first writable notification signals the completed connect
	c.SetInterest(reactor.Readable | reactor.Writable)
	return c
}

// inFlight returns the number of requests that are buffered or unacknowledged
func (c *connection) inFlight() int {
	return c.boundaries.Length() + c.Latency.Outstanding()
}

// enqueue appends one request produced by appendFn to the write buffer
func (c *connection) enqueue(appendFn func([]byte) []byte) {
	before := c.WriteBuffered()
	c.AppendWrite(appendFn)
	c.boundaries.Add(c.WriteBuffered() - before)
}

// advance accounts n written bytes against the buffered request boundaries
// and returns the number of requests that are now completely written
func (c *connection) advance(n int) int {
	c.partial += n

	complete := 0
	for c.boundaries.Length() > 0 {
		head := c.boundaries.Peek().(int)
		if c.partial < head {
			break
		}
		c.partial -= head
		c.boundaries.Remove()
		complete++
	}
	return complete
}

// countAcks returns the number of complete acknowledgements at the start of buf.
// A trailing partial acknowledgement is allowed, any other content is an error.
func countAcks(buf []byte) (int, error) {
	full := len(buf) / len(ack)
	for i := 0; i < full; i++ {
		chunk := buf[i*len(ack) : (i+1)*len(ack)]
		if !bytes.Equal(chunk, ack) {
			return 0, fmt.Errorf("%w: %q at offset %d", ErrMalformedAck, chunk, i*len(ack))
		}
	}

	if rest := buf[full*len(ack):]; !bytes.HasPrefix(ack, rest) {
		return 0, fmt.Errorf("%w: %q at offset %d", ErrMalformedAck, rest, full*len(ack))
	}
	return full, nil
}
