package session

import (
	"context"
	"time"

	"sw/ocpp/central/internal/ocpp"

	"github.com/juju/errors"
)

const (
	ErrSessionClosed    = errors.ConstError("session closed")
	ErrNotConnected     = errors.ConstError("charge point not connected")
	ErrUnsupportedFrame = errors.ConstError("unsupported websocket frame type")
)

// Conn is the transport a Session owns. *websocket.Conn satisfies it. ReadMessage is
// only ever called from the session's read loop, and writes are serialised by the
// session.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Handler answers Calls initiated by the charge point. Returning an *ocpp.Error sends
// that error; any other error is sent as a GenericError. ctx is cancelled when the
// session closes or the handler timeout expires.
type Handler interface {
	HandleCall(ctx context.Context, s *Session, call *ocpp.IncomingCall) (ocpp.Response, error)
}

type HandlerFunc func(ctx context.Context, s *Session, call *ocpp.IncomingCall) (ocpp.Response, error)

func (f HandlerFunc) HandleCall(ctx context.Context, s *Session, call *ocpp.IncomingCall) (ocpp.Response, error) {
	return f(ctx, s, call)
}

type Direction string

const (
	Inbound  Direction = "in"
	Outbound Direction = "out"
)

// Frame describes one text frame that crossed the connection.
type Frame struct {
	ChargePointId string
	Direction     Direction
	MessageType   ocpp.MessageType
	UniqueId      string
	Action        string
	Text          []byte
	Time          time.Time
}

// FrameObserver is told about every frame a session reads or writes. It is called on
// the session's own goroutines and must not block.
type FrameObserver interface {
	ObserveFrame(f Frame)
}

type Config struct {
	// ResponseTimeout bounds the wait for the reply to an outgoing Call.
	ResponseTimeout time.Duration
	// SendTimeout is the write deadline of every frame.
	SendTimeout time.Duration
	// HandlerTimeout bounds how long a reply slot waits for its handler.
	HandlerTimeout time.Duration
	// ReplyQueueSize is the number of inbound Calls that may await their reply.
	ReplyQueueSize int
	// MaxFramesPerSecond limits inbound frames. Zero disables the limit.
	MaxFramesPerSecond float64
}

func DefaultConfig() Config {
	return Config{
		ResponseTimeout: 10 * time.Second,
		SendTimeout:     5 * time.Second,
		HandlerTimeout:  30 * time.Second,
		ReplyQueueSize:  16,
	}
}

type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "Open"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	}
	return "Unknown"
}
