package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/foxseedlab/mojistream/internal/repository"
	"github.com/foxseedlab/mojistream/internal/stream"
)

const archiveTimeout = 10 * time.Second

// Archive stores every run and its log entries.
type Archive struct {
	repo    repository.Repository
	tracker *tracker
}

func NewArchive(repo repository.Repository) *Archive {
	return &Archive{repo: repo, tracker: newTracker()}
}

func (a *Archive) HandleEvent(ev stream.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	t, started, finished := a.tracker.observe(ev)
	if started {
		if err := a.repo.CreateStreamRun(ctx, repository.CreateStreamRunInput{
			ID:        t.StreamID,
			SessionID: t.SessionID,
			StartedAt: t.StartedAt,
		}); err != nil {
			slog.Error("failed to archive stream run", "error", err, "stream_id", t.StreamID)
		}
	}

	switch ev.Kind {
	case stream.EventLineAppended:
		e := ev.Entry
		if err := a.repo.InsertEntry(ctx, repository.InsertEntryInput{
			StreamID: ev.StreamID,
			Seq:      e.Seq,
			Kind:     e.Kind.String(),
			Speaker:  e.Speaker,
			Text:     e.Text,
			SpokenAt: e.At,
		}); err != nil {
			slog.Error("failed to archive entry", "error", err, "stream_id", ev.StreamID, "seq", e.Seq)
		}
	case stream.EventStatusChanged:
		if !finished {
			return
		}
		status := repository.StreamStatusCompleted
		if t.Status.State == stream.StateFailed {
			status = repository.StreamStatusFailed
		}
		if err := a.repo.CompleteStreamRun(ctx, repository.CompleteStreamRunInput{
			ID:         t.StreamID,
			EndedAt:    t.EndedAt,
			Status:     status,
			FailReason: t.Status.Reason,
		}); err != nil {
			slog.Error("failed to complete stream run", "error", err, "stream_id", t.StreamID)
			return
		}
		slog.Info("stream run archived", "stream_id", t.StreamID, "status", string(status), "lines", len(t.Lines))
	}
}
