package protocol

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// Terminator ends every request and response line
	Terminator byte = '\n'

	CmdGet = "GET"
	CmdPut = "PUT"

	RespNone = "NONE" // GET of an absent key
	RespOK   = "OK"   // successful PUT
	RespErr  = "ERR"  // unparsable request line

	// Ack is the complete acknowledgement of a PUT as it appears on the wire
	Ack = RespOK + "\n"
	// AckLen is the length of Ack in bytes
	AckLen = len(Ack)
)

// --------------------------------------------------------------------------
// Frame Type
// --------------------------------------------------------------------------

// FrameType identifies the kind of decoded request
type FrameType int

const (
	FrameTError FrameType = iota
	FrameTGet
	FrameTPut
)

func (t FrameType) String() string {
	switch t {
	case FrameTGet:
		return "Get"
	case FrameTPut:
		return "Put"
	case FrameTError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Frame is one decoded request line. Which fields are set depends on the type:
// Get uses Key, Put uses Key and Value, Error uses none.
type Frame struct {
	Type  FrameType
	Key   string
	Value string
}

func (f Frame) String() string {
	switch f.Type {
	case FrameTGet:
		return fmt.Sprintf("Get(%s)", f.Key)
	case FrameTPut:
		return fmt.Sprintf("Put(%s, %s)", f.Key, f.Value)
	default:
		return f.Type.String()
	}
}

// NewGetFrame creates a new Get frame
func NewGetFrame(key string) Frame {
	return Frame{Type: FrameTGet, Key: key}
}

// NewPutFrame creates a new Put frame
func NewPutFrame(key, value string) Frame {
	return Frame{Type: FrameTPut, Key: key, Value: value}
}

// NewErrorFrame creates a frame for a line that could not be decoded
func NewErrorFrame() Frame {
	return Frame{Type: FrameTError}
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// Decode extracts all complete lines from buf and decodes each into a Frame.
// It returns the frames in the order the lines appear and the number of bytes
// that were consumed, i.e. the offset just behind the last terminator.
// Bytes after the last terminator are never consumed.
func Decode(buf []byte) (frames []Frame, consumed int) {
	for {
		idx := bytes.IndexByte(buf[consumed:], Terminator)
		if idx < 0 {
			return frames, consumed
		}
		frames = append(frames, DecodeLine(buf[consumed:consumed+idx]))
		consumed += idx + 1
	}
}

// DecodeLine decodes a single line without its terminator.
// Lines that are not valid UTF-8 or do not follow the request grammar
// decode to an Error frame.
func DecodeLine(line []byte) Frame {
	if !utf8.Valid(line) {
		return NewErrorFrame()
	}

	words := strings.Fields(string(line))
	if len(words) < 2 {
		return NewErrorFrame()
	}

	switch words[0] {
	case CmdGet:
		if len(words) != 2 {
			return NewErrorFrame()
		}
		return NewGetFrame(words[1])
	case CmdPut:
		if len(words) != 3 {
			return NewErrorFrame()
		}
		return NewPutFrame(words[1], words[2])
	default:
		return NewErrorFrame()
	}
}

// --------------------------------------------------------------------------
// Encoding
// --------------------------------------------------------------------------

// AppendResponse appends resp followed by the terminator to buf
func AppendResponse(buf []byte, resp string) []byte {
	buf = append(buf, resp...)
	return append(buf, Terminator)
}

// AppendGet appends a GET request line for key to buf
func AppendGet(buf []byte, key string) []byte {
	buf = append(buf, CmdGet...)
	buf = append(buf, ' ')
	buf = append(buf, key...)
	return append(buf, Terminator)
}

// AppendPut appends a PUT request line for key and value to buf
func AppendPut(buf []byte, key, value string) []byte {
	buf = append(buf, CmdPut...)
	buf = append(buf, ' ')
	buf = append(buf, key...)
	buf = append(buf, ' ')
	buf = append(buf, value...)
	return append(buf, Terminator)
}

// DecodeResponses splits buf into complete response lines (without terminator).
// Like Decode, a trailing partial line is left unconsumed.
func DecodeResponses(buf []byte) (responses []string, consumed int) {
	for {
		idx := bytes.IndexByte(buf[consumed:], Terminator)
		if idx < 0 {
			return responses, consumed
		}
		responses = append(responses, string(buf[consumed:consumed+idx]))
		consumed += idx + 1
	}
}
