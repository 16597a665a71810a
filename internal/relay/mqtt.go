package relay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/mojistream/internal/stream"
)

type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

func TopicStatus(prefix, streamID string) string {
	return fmt.Sprintf("%s/streams/%s/status", prefix, streamID)
}

func TopicEntries(prefix, streamID string) string {
	return fmt.Sprintf("%s/streams/%s/entries", prefix, streamID)
}

type statusMessage struct {
	StreamID  string    `json:"stream_id"`
	SessionID string    `json:"session_id,omitempty"`
	State     string    `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

type entryMessage struct {
	StreamID  string    `json:"stream_id"`
	SessionID string    `json:"session_id,omitempty"`
	Seq       int       `json:"seq"`
	Kind      string    `json:"kind"`
	Speaker   string    `json:"speaker,omitempty"`
	Text      string    `json:"text"`
	Line      string    `json:"line"`
	At        time.Time `json:"at"`
}

// MQTTRelay publishes each status change (retained) and each log entry.
type MQTTRelay struct {
	publisher Publisher
	prefix    string
	now       func() time.Time
}

func NewMQTTRelay(publisher Publisher, prefix string) *MQTTRelay {
	return &MQTTRelay{publisher: publisher, prefix: prefix, now: time.Now}
}

func (r *MQTTRelay) HandleEvent(ev stream.Event) {
	var (
		topic    string
		retained bool
		msg      any
	)
	switch ev.Kind {
	case stream.EventStatusChanged:
		topic, retained = TopicStatus(r.prefix, ev.StreamID), true
		msg = statusMessage{
			StreamID:  ev.StreamID,
			SessionID: ev.SessionID,
			State:     ev.Status.State.String(),
			Reason:    ev.Status.Reason,
			At:        r.now(),
		}
	case stream.EventLineAppended:
		e := ev.Entry
		topic = TopicEntries(r.prefix, ev.StreamID)
		msg = entryMessage{
			StreamID:  ev.StreamID,
			SessionID: ev.SessionID,
			Seq:       e.Seq,
			Kind:      e.Kind.String(),
			Speaker:   e.Speaker,
			Text:      e.Text,
			Line:      e.String(),
			At:        e.At,
		}
	default:
		return
	}
	body, err := json.Marshal(msg)
	if err != nil {
		slog.Error("mqtt relay marshal failed", "error", err, "stream_id", ev.StreamID)
		return
	}
	if err := r.publisher.Publish(topic, retained, body); err != nil {
		slog.Warn("mqtt relay publish failed", "error", err, "topic", topic)
	}
}
