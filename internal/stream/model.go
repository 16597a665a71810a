package stream

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrAlreadyRunning = errors.New("stream: already running")
	ErrSessionLocked  = errors.New("stream: session id cannot change while streaming")
	ErrStopped        = errors.New("stream: stopped before streaming began")
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateStopping
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) active() bool {
	return s == StateConnecting || s == StateStreaming || s == StateStopping
}

// Status is a State plus the failure reason when State is StateFailed.
type Status struct {
	State  State
	Reason string
}

func (s Status) String() string {
	if s.State == StateFailed && s.Reason != "" {
		return fmt.Sprintf("%s(%s)", s.State, s.Reason)
	}
	return s.State.String()
}

type EntryKind int

const (
	EntryTranscript EntryKind = iota + 1
	EntryInfo
	EntryError
	EntryDiagnostic
)

func (k EntryKind) String() string {
	switch k {
	case EntryTranscript:
		return "transcript"
	case EntryInfo:
		return "info"
	case EntryError:
		return "error"
	case EntryDiagnostic:
		return "diagnostic"
	default:
		return "unknown"
	}
}

// Entry is one line of the append-only output log. Seq starts at 1 and
// is assigned in dispatch order.
type Entry struct {
	Seq     int
	Kind    EntryKind
	Speaker string
	Text    string
	At      time.Time
}

func (e Entry) String() string {
	switch e.Kind {
	case EntryTranscript:
		return fmt.Sprintf("%s：%s", e.Speaker, e.Text)
	case EntryError:
		return markerError + e.Text
	case EntryDiagnostic:
		return markerDiagnostic + e.Text
	default:
		return markerInfo + e.Text
	}
}

type EventKind int

const (
	EventStatusChanged EventKind = iota + 1
	EventLineAppended
)

type Event struct {
	Kind      EventKind
	StreamID  string
	SessionID string
	Status    Status
	Entry     Entry
}

// Sink receives every event on the dispatcher goroutine, in order.
// Implementations must not call Stop, Sync or Start.
type Sink interface {
	HandleEvent(ev Event)
}

type SinkFunc func(Event)

func (f SinkFunc) HandleEvent(ev Event) { f(ev) }
