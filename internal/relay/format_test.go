package relay

import (
	"strings"
	"testing"
	"time"

	"github.com/foxseedlab/mojistream/internal/stream"
	"github.com/foxseedlab/mojistream/internal/webhook"
)

func testTranscript(startedAt time.Time) *Transcript {
	return &Transcript{
		StreamID:  "run-1",
		SessionID: "room-7",
		StartedAt: startedAt,
		EndedAt:   startedAt.Add(2 * time.Minute),
		Status:    stream.Status{State: stream.StateStopped},
		Lines: []stream.Entry{
			{Seq: 3, Kind: stream.EntryTranscript, Speaker: "B", Text: "你好", At: startedAt.Add(15 * time.Second)},
			{Seq: 4, Kind: stream.EntryTranscript, Speaker: "A", Text: "請多指教", At: startedAt.Add(75 * time.Second)},
			{Seq: 6, Kind: stream.EntryTranscript, Speaker: "B", Text: "再見", At: startedAt.Add(90 * time.Second)},
		},
	}
}

func TestBuildTranscriptText(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}
	startedAt := time.Date(2026, 10, 1, 4, 0, 0, 0, time.UTC)

	body := string(buildTranscriptText(testTranscript(startedAt), "Asia/Taipei", loc))

	for _, want := range []string{
		"串流 ID：run-1",
		"工作階段：room-7",
		"串流期間：2026-10-01 12:00:00 ~ 2026-10-01 12:02:00（Asia/Taipei）",
		"發言者：B、A",
		"00:00:15 B：你好",
		"00:01:15 A：請多指教",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("%q not found in body:\n%s", want, body)
		}
	}
}

func TestBuildTranscriptText_NoSession(t *testing.T) {
	tr := testTranscript(time.Date(2026, 10, 1, 4, 0, 0, 0, time.UTC))
	tr.SessionID = ""
	body := string(buildTranscriptText(tr, "UTC", nil))
	if !strings.Contains(body, "工作階段：—") {
		t.Fatalf("missing session placeholder:\n%s", body)
	}
}

func TestTranscriptFilename(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}
	tr := testTranscript(time.Date(2026, 10, 1, 4, 5, 6, 0, time.UTC))
	if got := transcriptFilename(tr, loc); got != "transcript_20261001_120506.txt" {
		t.Fatalf("filename = %s", got)
	}
}

func TestBuildTranscriptWebhookPayload_SegmentEndAtRules(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}
	startedAt := time.Date(2026, 10, 1, 19, 0, 0, 0, loc)
	tr := testTranscript(startedAt)

	payload := buildTranscriptWebhookPayload(tr, "Asia/Taipei", loc)

	assertTranscriptPayloadCore(t, payload, tr)
	if payload.Timezone != "Asia/Taipei" || payload.SessionID != "room-7" || payload.StreamID != "run-1" {
		t.Fatalf("unexpected identity fields: %+v", payload)
	}
	if payload.DurationSeconds != 120 {
		t.Fatalf("duration = %d, want 120", payload.DurationSeconds)
	}
	if payload.Status != "stopped" || payload.FailReason != "" {
		t.Fatalf("status = %s reason = %s", payload.Status, payload.FailReason)
	}
}

func assertTranscriptPayloadCore(t *testing.T, payload webhook.TranscriptWebhookPayload, tr *Transcript) {
	t.Helper()
	if payload.SchemaVersion != webhook.TranscriptWebhookSchemaVersion {
		t.Fatalf("unexpected schema_version: %s", payload.SchemaVersion)
	}
	segs := payload.TranscriptSegments
	if len(segs) != 3 || payload.SegmentCount != 3 {
		t.Fatalf("unexpected transcript segment count: %d", len(segs))
	}
	if segs[0].EndAt != tr.Lines[1].At.Format(time.RFC3339) {
		t.Fatalf("unexpected first segment end_at: %s", segs[0].EndAt)
	}
	if segs[2].EndAt != tr.EndedAt.Format(time.RFC3339) {
		t.Fatalf("unexpected last segment end_at: %s", segs[2].EndAt)
	}
	if segs[1].Seq != 4 || segs[1].Speaker != "A" {
		t.Fatalf("unexpected segment: %+v", segs[1])
	}
	if len(payload.Speakers) != 2 || payload.Speakers[0] != "B" || payload.Speakers[1] != "A" {
		t.Fatalf("speakers should keep first-appearance order: %+v", payload.Speakers)
	}
	if payload.Transcript != "B：你好\nA：請多指教\nB：再見" {
		t.Fatalf("transcript = %q", payload.Transcript)
	}
}
