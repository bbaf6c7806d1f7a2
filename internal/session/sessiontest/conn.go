// Package sessiontest provides an in-memory transport for driving sessions in tests.
package sessiontest

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type frame struct {
	messageType int
	data        []byte
	err         error
}

// Conn is a session.Conn whose inbound frames are pushed by the test and whose writes
// are captured in order.
type Conn struct {
	in     chan frame
	writes chan []byte
	closed chan struct{}
	once   sync.Once

	mu       sync.Mutex
	written  [][]byte
	writeErr error
}

func NewConn() *Conn {
	return &Conn{
		in:     make(chan frame, 64),
		writes: make(chan []byte, 1024),
		closed: make(chan struct{}),
	}
}

// Push queues a text frame for the session to read.
func (c *Conn) Push(text string) {
	c.in <- frame{messageType: websocket.TextMessage, data: []byte(text)}
}

func (c *Conn) PushBinary(data []byte) {
	c.in <- frame{messageType: websocket.BinaryMessage, data: data}
}

// PushClose makes the next read fail as if the peer sent a close frame with code.
func (c *Conn) PushClose(code int) {
	c.in <- frame{err: &websocket.CloseError{Code: code}}
}

// PushError makes the next read fail with err.
func (c *Conn) PushError(err error) {
	c.in <- frame{err: err}
}

// SetWriteErr makes every following write fail with err.
func (c *Conn) SetWriteErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

// NextWrite returns the next written frame, or false if none arrives within timeout.
func (c *Conn) NextWrite(timeout time.Duration) ([]byte, bool) {
	select {
	case b := <-c.writes:
		return b, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Written returns every frame written so far.
func (c *Conn) Written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.written))
	copy(out, c.written)
	return out
}

func (c *Conn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Conn) ReadMessage() (int, []byte, error) {
	select {
	case <-c.closed:
		return 0, nil, net.ErrClosed
	default:
	}
	select {
	case f := <-c.in:
		return f.messageType, f.data, f.err
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *Conn) WriteMessage(messageType int, data []byte) error {
	if c.IsClosed() {
		return net.ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	b := append([]byte(nil), data...)
	c.written = append(c.written, b)
	select {
	case c.writes <- b:
	default:
	}
	return nil
}

func (c *Conn) SetWriteDeadline(time.Time) error {
	return nil
}

func (c *Conn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}
