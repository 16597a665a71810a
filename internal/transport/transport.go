package transport

import (
	"context"
	"errors"
)

var (
	ErrUnreachable   = errors.New("transport: server unreachable")
	ErrInvalidURL    = errors.New("transport: invalid stream url")
	ErrChannelClosed = errors.New("transport: channel closed")
	ErrTransient     = errors.New("transport: transient send failure")
)

// StopMessage is sent as a text frame right before a deliberate close.
const StopMessage = "stop"

const NormalClosureReason = "client stopped streaming"

type MessageType int

const (
	MessageText MessageType = iota + 1
	MessageBinary
)

type Message struct {
	Type MessageType
	Data []byte
}

type Dialer interface {
	Open(ctx context.Context, rawURL string) (Channel, error)
}

// Channel is one full-duplex stream. Send may be called from a single
// sender goroutine while Receive runs on another; Close unblocks Receive.
type Channel interface {
	Send(pcm []byte) error
	SendText(text string) error
	Receive() (Message, error)
	Close(reason string) error
}
