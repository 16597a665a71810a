package relay

import (
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/mojistream/internal/webhook"
)

const (
	transcriptTimeLayout     = "2006-01-02 15:04:05"
	transcriptFilenameLayout = "20060102_150405"
)

func buildTranscriptText(t *Transcript, timezone string, loc *time.Location) []byte {
	loc = safeLocation(loc)
	session := t.SessionID
	if session == "" {
		session = "—"
	}
	lines := []string{
		fmt.Sprintf("串流 ID：%s", t.StreamID),
		fmt.Sprintf("工作階段：%s", session),
		fmt.Sprintf("串流期間：%s ~ %s（%s）", t.StartedAt.In(loc).Format(transcriptTimeLayout), t.EndedAt.In(loc).Format(transcriptTimeLayout), timezone),
		fmt.Sprintf("發言者：%s", strings.Join(t.Speakers(), "、")),
		"",
	}
	for _, l := range t.Lines {
		lines = append(lines, fmt.Sprintf("%s %s", formatElapsedHMS(l.At.Sub(t.StartedAt)), l.String()))
	}
	return []byte(strings.Join(lines, "\n"))
}

func transcriptFilename(t *Transcript, loc *time.Location) string {
	return fmt.Sprintf("transcript_%s.txt", t.StartedAt.In(safeLocation(loc)).Format(transcriptFilenameLayout))
}

func buildTranscriptWebhookPayload(t *Transcript, timezone string, loc *time.Location) webhook.TranscriptWebhookPayload {
	loc = safeLocation(loc)
	transcriptLines := make([]string, 0, len(t.Lines))
	for _, l := range t.Lines {
		transcriptLines = append(transcriptLines, l.String())
	}
	durationSeconds := int64(t.EndedAt.Sub(t.StartedAt).Seconds())
	if durationSeconds < 0 {
		durationSeconds = 0
	}
	return webhook.TranscriptWebhookPayload{
		SchemaVersion:      webhook.TranscriptWebhookSchemaVersion,
		StreamID:           t.StreamID,
		SessionID:          t.SessionID,
		Status:             t.Status.State.String(),
		FailReason:         t.Status.Reason,
		StartAt:            t.StartedAt.In(loc).Format(time.RFC3339),
		EndAt:              t.EndedAt.In(loc).Format(time.RFC3339),
		Timezone:           timezone,
		DurationSeconds:    durationSeconds,
		Speakers:           t.Speakers(),
		SegmentCount:       len(t.Lines),
		TranscriptSegments: buildTranscriptWebhookSegments(t, loc),
		Transcript:         strings.Join(transcriptLines, "\n"),
	}
}

// A segment ends where the next one starts; the last one ends with the run.
func buildTranscriptWebhookSegments(t *Transcript, loc *time.Location) []webhook.TranscriptWebhookSegment {
	out := make([]webhook.TranscriptWebhookSegment, 0, len(t.Lines))
	for i, l := range t.Lines {
		end := t.EndedAt
		if i+1 < len(t.Lines) {
			end = t.Lines[i+1].At
		}
		if end.Before(l.At) {
			end = l.At
		}
		out = append(out, webhook.TranscriptWebhookSegment{
			Seq:        l.Seq,
			Speaker:    l.Speaker,
			StartAt:    l.At.In(loc).Format(time.RFC3339),
			EndAt:      end.In(loc).Format(time.RFC3339),
			Transcript: l.Text,
		})
	}
	return out
}

func formatElapsedHMS(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func safeLocation(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
