// Package client talks to an htkv server over its Unix socket.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/heysubinoy/htkv/internal/protocol"
	"github.com/heysubinoy/htkv/pkg/kv"
)

var (
	// ErrConnectionClosed is returned when the server hangs up.
	ErrConnectionClosed = errors.New("server closed connection")

	// ErrTimeout is returned when a request deadline expires. The request
	// may still be executed by the server later, and any late response would
	// be matched to the next request, so the client should be closed.
	ErrTimeout = errors.New("request timed out")

	// ErrMultiLine is returned for request lines carrying a line terminator.
	ErrMultiLine = errors.New("request must be a single line")
)

// Client is a connection to a single server. It is not safe for concurrent
// use; the protocol has no request IDs, so responses are matched by order.
type Client struct {
	conn    net.Conn
	r       *bufio.Reader
	timeout time.Duration
}

// Dial connects to the server listening on the socket at path. A non-zero
// timeout bounds the dial only: the server serves one client at a time, so a
// connected client may legitimately wait for an earlier session to end.
func Dial(path string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", path, err)
	}
	return New(conn), nil
}

// SetRequestTimeout bounds each request round trip. Zero, the default,
// waits indefinitely.
func (c *Client) SetRequestTimeout(d time.Duration) {
	c.timeout = d
}

// New wraps an established connection.
func New(conn net.Conn) *Client {
	return &Client{conn: conn, r: bufio.NewReader(conn)}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Do sends one raw request line and returns the response line without its
// newline.
func (c *Client) Do(line string) (string, error) {
	if strings.ContainsAny(line, "\r\n") {
		return "", ErrMultiLine
	}

	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return "", err
		}
	}

	if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
		if isClosed(err) {
			return "", ErrConnectionClosed
		}
		if isTimeout(err) {
			return "", fmt.Errorf("write request: %w: %w", ErrTimeout, err)
		}
		return "", fmt.Errorf("write request: %w", err)
	}

	resp, err := c.r.ReadString('\n')
	if err != nil {
		if isClosed(err) {
			return "", ErrConnectionClosed
		}
		if isTimeout(err) {
			return "", fmt.Errorf("read response: %w: %w", ErrTimeout, err)
		}
		return "", fmt.Errorf("read response: %w", err)
	}
	return strings.TrimSuffix(resp, "\n"), nil
}

// Set stores value under key. Out-of-bounds keys and values are rejected
// locally with the kv validation errors and never sent.
func (c *Client) Set(key, value string) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	if err := kv.ValidateValue(value); err != nil {
		return err
	}

	resp, err := c.Do("SET " + key + " " + value)
	if err != nil {
		return err
	}
	if resp != protocol.RespOK {
		return &ServerError{Msg: resp}
	}
	return nil
}

// Get fetches the value stored under key. found is false when the server
// answers NOT_FOUND.
func (c *Client) Get(key string) (value string, found bool, err error) {
	if err := kv.ValidateKey(key); err != nil {
		return "", false, err
	}

	resp, err := c.Do("GET " + key)
	if err != nil {
		return "", false, err
	}
	switch {
	case resp == protocol.RespNotFound:
		return "", false, nil
	case protocol.IsErrorResponse(resp):
		return "", false, &ServerError{Msg: resp}
	}
	return resp, true, nil
}

// ServerError is an ERROR response from the server.
type ServerError struct {
	Msg string
}

func (e *ServerError) Error() string { return e.Msg }

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
