package client

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/skv/rpc/common"
	"github.com/ValentinKolb/skv/rpc/protocol"
	"net"
	"strings"
	"time"
	"unicode"
)

var (
	// ErrServer is returned if the server answered a request with ERR
	ErrServer = errors.New("server rejected request")
	// ErrInvalidArgument is returned for keys or values the protocol can not carry
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnexpectedResponse is returned if a response does not match the request
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// Client is a blocking connection to an skv server.
//
// Thread-safety: A Client is not thread-safe.
type Client struct {
	conn    net.Conn
	buf     []byte // request encoding
	resp    []byte // received bytes not yet decoded
	timeout time.Duration
}

// Dial connects to the endpoint of config. timeout limits the connect and
// every request (0 = no timeout).
func Dial(config common.TransportConfig, timeout time.Duration) (*Client, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.Dial("tcp", config.Endpoint())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", config.Endpoint(), err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(config.TCPNoDelay)
	}

	return &Client{
		conn:    conn,
		resp:    make([]byte, 0, 512),
		timeout: timeout,
	}, nil
}

// Get returns the value stored for key. The boolean is false if the key is absent.
func (c *Client) Get(key string) (string, bool, error) {
	if err := checkToken("key", key); err != nil {
		return "", false, err
	}

	resp, err := c.roundTrip(protocol.AppendGet(c.buf[:0], key))
	if err != nil {
		return "", false, err
	}

	switch resp {
	case protocol.RespNone:
		return "", false, nil
	case protocol.RespErr:
		return "", false, ErrServer
	default:
		return resp, true, nil
	}
}

// Put stores value for key, overwriting any previous value
func (c *Client) Put(key, value string) error {
	if err := checkToken("key", key); err != nil {
		return err
	}
	if err := checkToken("value", value); err != nil {
		return err
	}

	resp, err := c.roundTrip(protocol.AppendPut(c.buf[:0], key, value))
	if err != nil {
		return err
	}

	switch resp {
	case protocol.RespOK:
		return nil
	case protocol.RespErr:
		return ErrServer
	default:
		return fmt.Errorf("%w: %q", ErrUnexpectedResponse, resp)
	}
}

// Do sends a raw request line (without terminator) and returns the response line
func (c *Client) Do(line string) (string, error) {
	if strings.ContainsRune(line, rune(protocol.Terminator)) {
		return "", fmt.Errorf("%w: request must be a single line", ErrInvalidArgument)
	}
	return c.roundTrip(protocol.AppendResponse(c.buf[:0], line))
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// roundTrip writes req and reads one response line
func (c *Client) roundTrip(req []byte) (string, error) {
	c.buf = req

	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return "", err
		}
	}

	if _, err := c.conn.Write(req); err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	for {
		responses, consumed := protocol.DecodeResponses(c.resp)
		if consumed > 0 {
			c.resp = c.resp[:copy(c.resp, c.resp[consumed:])]
			// every request is answered by exactly one line
			if len(responses) != 1 || len(c.resp) != 0 {
				return "", fmt.Errorf("%w: %d lines for one request", ErrUnexpectedResponse, len(responses))
			}
			return responses[0], nil
		}

		if len(c.resp) == cap(c.resp) {
			c.resp = append(c.resp, 0)[:len(c.resp)]
		}
		n, err := c.conn.Read(c.resp[len(c.resp):cap(c.resp)])
		c.resp = c.resp[:len(c.resp)+n]
		if err != nil && n == 0 {
			return "", fmt.Errorf("failed to read response: %w", err)
		}
	}
}

// checkToken rejects empty values and values containing whitespace
func checkToken(name, s string) error {
	if s == "" || strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %s must be a non-empty string without whitespace", ErrInvalidArgument, name)
	}
	return nil
}
