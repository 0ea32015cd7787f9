package conn

import (
	"bytes"
	"errors"
	"github.com/ValentinKolb/skv/rpc/protocol"
	"github.com/ValentinKolb/skv/rpc/reactor"
	"github.com/ValentinKolb/skv/rpc/transport"
	"testing"
)

// --------------------------------------------------------------------------
// Fake socket
// --------------------------------------------------------------------------

// fakeSocket serves scripted reads and accepts writes up to a per-call limit
type fakeSocket struct {
	reads   [][]byte // returned one per Read call, then ErrWouldBlock
	eof     bool     // return 0, nil once reads are exhausted
	readErr error

	written    bytes.Buffer
	writeLimit []int // bytes accepted per Write call, -1 = would block, then unlimited
	writeErr   error
	closed     bool
}

func (s *fakeSocket) Fd() int { return 42 }

func (s *fakeSocket) Read(p []byte) (int, error) {
	if len(s.reads) == 0 {
		if s.readErr != nil {
			return 0, s.readErr
		}
		if s.eof {
			return 0, nil
		}
		return 0, transport.ErrWouldBlock
	}

	chunk := s.reads[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		s.reads[0] = chunk[n:]
	} else {
		s.reads = s.reads[1:]
	}
	return n, nil
}

func (s *fakeSocket) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	n := len(p)
	if len(s.writeLimit) > 0 {
		limit := s.writeLimit[0]
		s.writeLimit = s.writeLimit[1:]
		if limit < 0 {
			return 0, transport.ErrWouldBlock
		}
		n = min(n, limit)
	}
	s.written.Write(p[:n])
	return n, nil
}

func (s *fakeSocket) Close() error {
	s.closed = true
	return nil
}

// --------------------------------------------------------------------------
// Read path
// --------------------------------------------------------------------------

func TestFillDrainsUntilWouldBlock(t *testing.T) {
	s := &fakeSocket{reads: [][]byte{[]byte("GET a\n"), []byte("PUT b c\n")}}
	c := New(s, 0)

	eof, err := c.Fill()
	if err != nil || eof {
		t.Fatalf("Fill() = %v, %v, expected no eof and no error", eof, err)
	}
	if c.ReadBuffered() != len("GET a\nPUT b c\n") {
		t.Errorf("Expected all bytes buffered, got %d", c.ReadBuffered())
	}

	frames := c.Frames()
	want := []protocol.Frame{protocol.NewGetFrame("a"), protocol.NewPutFrame("b", "c")}
	if len(frames) != len(want) {
		t.Fatalf("Expected %d frames, got %v", len(want), frames)
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Errorf("Frame %d: expected %v, got %v", i, want[i], frames[i])
		}
	}
	if c.ReadBuffered() != 0 {
		t.Errorf("Expected decoded bytes to be consumed, %d left", c.ReadBuffered())
	}
}

func TestFillGrowsBuffer(t *testing.T) {
	big := bytes.Repeat([]byte("x"), 10*DefaultBufferSize)
	s := &fakeSocket{reads: [][]byte{big}}
	c := New(s, 16)

	if _, err := c.Fill(); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if !bytes.Equal(c.ReadBuffer(), big) {
		t.Errorf("Expected %d bytes buffered, got %d", len(big), c.ReadBuffered())
	}
}

func TestSplitLineAcrossReads(t *testing.T) {
	s := &fakeSocket{}
	c := New(s, 0)

	s.reads = [][]byte{[]byte("PUT 00000000000000")}
	if _, err := c.Fill(); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if frames := c.Frames(); len(frames) != 0 {
		t.Fatalf("Partial line must not be decoded, got %v", frames)
	}

	s.reads = [][]byte{[]byte("01 hello\nGET")}
	if _, err := c.Fill(); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	frames := c.Frames()
	if len(frames) != 1 || frames[0] != protocol.NewPutFrame("0000000000000001", "hello") {
		t.Fatalf("Unexpected frames %v", frames)
	}
	if string(c.ReadBuffer()) != "GET" {
		t.Errorf("Expected trailing partial line to stay buffered, got %q", c.ReadBuffer())
	}
}

func TestFillEOF(t *testing.T) {
	s := &fakeSocket{reads: [][]byte{[]byte("GET a\n")}, eof: true}
	c := New(s, 0)

	eof, err := c.Fill()
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	if !eof {
		t.Errorf("Expected eof after zero-length read")
	}
	if len(c.Frames()) != 1 {
		t.Errorf("Bytes read before eof must still be decodable")
	}
}

func TestFillError(t *testing.T) {
	boom := errors.New("connection reset")
	c := New(&fakeSocket{readErr: boom}, 0)

	if _, err := c.Fill(); !errors.Is(err, boom) {
		t.Errorf("Expected wrapped socket error, got %v", err)
	}
}

func TestConsume(t *testing.T) {
	c := New(&fakeSocket{reads: [][]byte{[]byte("OK\nOK\nO")}}, 0)
	if _, err := c.Fill(); err != nil {
		t.Fatalf("Fill failed: %v", err)
	}

	c.Consume(protocol.AckLen * 2)
	if string(c.ReadBuffer()) != "O" {
		t.Errorf("Expected %q left, got %q", "O", c.ReadBuffer())
	}

	c.Consume(0)
	if c.ReadBuffered() != 1 {
		t.Errorf("Consume(0) must not change the buffer")
	}

	c.Consume(10)
	c.Consume(10)
	if c.ReadBuffered() != 0 {
		t.Errorf("Expected empty buffer, got %d bytes", c.ReadBuffered())
	}
}

// --------------------------------------------------------------------------
// Write path
// --------------------------------------------------------------------------

func TestPartialWriteKeepsRemainder(t *testing.T) {
	// the socket accepts 5 bytes, then blocks
	s := &fakeSocket{writeLimit: []int{5, -1}}
	c := New(s, 0)

	msg := []byte("GET abcdefg\n") // 12 bytes
	c.AppendWrite(func(buf []byte) []byte { return append(buf, msg...) })

	n, err := c.Flush()
	if err != nil {
		t.Fatalf("Would-block must not be an error: %v", err)
	}
	if n != 5 {
		t.Errorf("Expected 5 bytes written, got %d", n)
	}
	if c.WriteBuffered() != 7 {
		t.Fatalf("Expected 7 bytes buffered, got %d", c.WriteBuffered())
	}
	if !c.Interest().IsWritable() {
		t.Errorf("Writable interest must stay armed while bytes remain")
	}

	// next writable notification: the rest goes out
	n, err = c.Flush()
	if err != nil || n != 7 {
		t.Fatalf("Flush() = %d, %v, expected 7, nil", n, err)
	}
	if !bytes.Equal(s.written.Bytes(), msg) {
		t.Errorf("Expected %q on the wire, got %q", msg, s.written.Bytes())
	}
	if c.WriteBuffered() != 0 {
		t.Errorf("Expected empty write buffer, got %d", c.WriteBuffered())
	}
	if c.Interest().IsWritable() {
		t.Errorf("Writable interest must be dropped after a full flush")
	}
}

func TestFlushEmptyIsNoop(t *testing.T) {
	s := &fakeSocket{}
	c := New(s, 0)

	for i := 0; i < 2; i++ {
		n, err := c.Flush()
		if n != 0 || err != nil {
			t.Errorf("Flush() on empty buffer = %d, %v", n, err)
		}
	}
	if s.written.Len() != 0 {
		t.Errorf("Nothing must be written")
	}
	if c.Interest() != reactor.Readable {
		t.Errorf("Expected read-only interest, got %s", c.Interest())
	}
}

func TestFlushWriteZero(t *testing.T) {
	s := &fakeSocket{writeLimit: []int{0}}
	c := New(s, 0)
	c.Send(protocol.RespOK)

	if _, err := c.Flush(); !errors.Is(err, transport.ErrWriteZero) {
		t.Errorf("Expected ErrWriteZero, got %v", err)
	}
	if c.WriteBuffered() != protocol.AckLen {
		t.Errorf("Unwritten bytes must stay buffered, got %d", c.WriteBuffered())
	}
}

func TestFlushError(t *testing.T) {
	boom := errors.New("broken pipe")
	c := New(&fakeSocket{writeErr: boom}, 0)
	c.Send(protocol.RespErr)

	if _, err := c.Flush(); !errors.Is(err, boom) {
		t.Errorf("Expected wrapped socket error, got %v", err)
	}
}

func TestInterestToggles(t *testing.T) {
	c := New(&fakeSocket{}, 0)

	if c.Interest() != reactor.Readable {
		t.Fatalf("New connection must start read-only, got %s", c.Interest())
	}

	c.Send("value")
	if c.Interest() != reactor.Readable|reactor.Writable {
		t.Errorf("Send must add writable interest, got %s", c.Interest())
	}

	if _, err := c.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if c.Interest() != reactor.Readable {
		t.Errorf("Full flush must drop writable interest, got %s", c.Interest())
	}

	c.AppendWrite(func(buf []byte) []byte { return protocol.AppendGet(buf, "k") })
	if !c.Interest().IsWritable() || c.WriteBuffered() != len("GET k\n") {
		t.Errorf("AppendWrite must buffer bytes and add writable interest")
	}
}

func TestResponsesInOrder(t *testing.T) {
	s := &fakeSocket{writeLimit: []int{1, 2, -1}}
	c := New(s, 0)

	c.Send("hello")
	c.Send(protocol.RespNone)
	c.Send(protocol.RespOK)

	for c.WriteBuffered() > 0 {
		if _, err := c.Flush(); err != nil {
			t.Fatalf("Flush failed: %v", err)
		}
	}
	if got := s.written.String(); got != "hello\nNONE\nOK\n" {
		t.Errorf("Unexpected bytes on the wire %q", got)
	}
}

func TestDrainIdempotent(t *testing.T) {
	buf := []byte("abc")
	buf = drain(buf, 3)
	if len(buf) != 0 {
		t.Fatalf("Expected empty buffer")
	}
	buf = drain(buf, 3)
	if len(buf) != 0 {
		t.Errorf("Draining consumed bytes must be a no-op")
	}

	buf = drain([]byte("abcdef"), 2)
	if string(buf) != "cdef" {
		t.Errorf("Expected %q, got %q", "cdef", buf)
	}
}

func TestClose(t *testing.T) {
	s := &fakeSocket{}
	c := New(s, 0)
	c.Send("x")

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !s.closed {
		t.Errorf("Socket must be closed")
	}
	if c.WriteBuffered() != 0 || c.ReadBuffered() != 0 {
		t.Errorf("Buffered bytes must be dropped")
	}
}
