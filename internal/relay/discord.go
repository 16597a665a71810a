package relay

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/foxseedlab/mojistream/internal/discord"
	"github.com/foxseedlab/mojistream/internal/stream"
)

// DiscordMirror posts transcript lines to a text channel as they arrive
// and attaches the full transcript when the run stops.
type DiscordMirror struct {
	client    discord.Client
	channelID string
	timezone  string
	loc       *time.Location
	tracker   *tracker
}

func NewDiscordMirror(client discord.Client, channelID, timezone string, loc *time.Location) *DiscordMirror {
	return &DiscordMirror{
		client:    client,
		channelID: channelID,
		timezone:  timezone,
		loc:       loc,
		tracker:   newTracker(),
	}
}

func (m *DiscordMirror) HandleEvent(ev stream.Event) {
	t, _, finished := m.tracker.observe(ev)
	switch ev.Kind {
	case stream.EventLineAppended:
		if ev.Entry.Kind == stream.EntryTranscript {
			m.send(ev.StreamID, ev.Entry.String())
		}
	case stream.EventStatusChanged:
		switch ev.Status.State {
		case stream.StateStreaming:
			lines := []string{messageMirrorStarted}
			if ev.SessionID != "" {
				lines = append(lines, fmt.Sprintf(messageMirrorSessionFormat, ev.SessionID))
			}
			m.send(ev.StreamID, strings.Join(lines, "\n"))
		case stream.StateFailed:
			m.send(ev.StreamID, mirrorFailed(ev.Status.Reason))
		case stream.StateStopped:
			if finished {
				m.sendTranscript(t)
			}
		}
	}
}

func (m *DiscordMirror) send(streamID, content string) {
	if err := m.client.SendChannelMessage(m.channelID, content); err != nil {
		slog.Error("discord mirror send failed", "error", err, "stream_id", streamID, "channel_id", m.channelID)
	}
}

func (m *DiscordMirror) sendTranscript(t *Transcript) {
	if len(t.Lines) == 0 {
		m.send(t.StreamID, messageMirrorStopped+"\n"+messageMirrorEmptyTranscript)
		return
	}
	err := m.client.SendChannelMessageWithFile(discord.FileMessage{
		ChannelID: m.channelID,
		Content:   messageMirrorStopped + "\n" + messageMirrorAttachment,
		Filename:  transcriptFilename(t, m.loc),
		FileBody:  buildTranscriptText(t, m.timezone, m.loc),
	})
	if err != nil {
		slog.Error("discord transcript upload failed", "error", err, "stream_id", t.StreamID, "channel_id", m.channelID)
		return
	}
	slog.Info("transcript posted to discord", "stream_id", t.StreamID, "channel_id", m.channelID, "lines", len(t.Lines))
}
