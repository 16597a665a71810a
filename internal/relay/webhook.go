package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/foxseedlab/mojistream/internal/stream"
	"github.com/foxseedlab/mojistream/internal/webhook"
)

const webhookTimeout = 30 * time.Second

// WebhookRelay delivers the transcript of every run that stopped cleanly.
type WebhookRelay struct {
	sender   webhook.Sender
	timezone string
	loc      *time.Location
	tracker  *tracker
}

func NewWebhookRelay(sender webhook.Sender, timezone string, loc *time.Location) *WebhookRelay {
	return &WebhookRelay{sender: sender, timezone: timezone, loc: loc, tracker: newTracker()}
}

func (r *WebhookRelay) HandleEvent(ev stream.Event) {
	t, _, finished := r.tracker.observe(ev)
	if !finished || t.Status.State != stream.StateStopped {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()
	if err := r.sender.SendTranscript(ctx, buildTranscriptWebhookPayload(t, r.timezone, r.loc)); err != nil {
		slog.Error("transcript webhook failed", "error", err, "stream_id", t.StreamID)
		return
	}
	slog.Info("transcript webhook delivered", "stream_id", t.StreamID, "lines", len(t.Lines))
}
