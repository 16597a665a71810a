package relay

import (
	"time"

	"github.com/foxseedlab/mojistream/internal/stream"
)

// Transcript is what one stream run produced, assembled from its events.
type Transcript struct {
	StreamID  string
	SessionID string
	StartedAt time.Time
	EndedAt   time.Time
	Status    stream.Status
	Lines     []stream.Entry
}

func (t *Transcript) Speakers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range t.Lines {
		if seen[l.Speaker] {
			continue
		}
		seen[l.Speaker] = true
		out = append(out, l.Speaker)
	}
	return out
}

// tracker folds events into per-run transcripts. A run starts at its first
// event and finishes at Stopped or Failed.
type tracker struct {
	now  func() time.Time
	runs map[string]*Transcript
}

func newTracker() *tracker {
	return &tracker{now: time.Now, runs: make(map[string]*Transcript)}
}

// observe returns the run the event belongs to, whether the event opened
// it, and whether it finished it. A finished run is forgotten.
func (tr *tracker) observe(ev stream.Event) (t *Transcript, started, finished bool) {
	t, ok := tr.runs[ev.StreamID]
	if !ok {
		at := tr.now()
		if ev.Kind == stream.EventLineAppended && !ev.Entry.At.IsZero() {
			at = ev.Entry.At
		}
		t = &Transcript{StreamID: ev.StreamID, SessionID: ev.SessionID, StartedAt: at}
		tr.runs[ev.StreamID] = t
		started = true
	}
	switch ev.Kind {
	case stream.EventLineAppended:
		if ev.Entry.Kind == stream.EntryTranscript {
			t.Lines = append(t.Lines, ev.Entry)
		}
	case stream.EventStatusChanged:
		t.Status = ev.Status
		if ev.Status.State == stream.StateStopped || ev.Status.State == stream.StateFailed {
			t.EndedAt = tr.now()
			delete(tr.runs, ev.StreamID)
			finished = true
		}
	}
	return t, started, finished
}
