package webhook

import "context"

const TranscriptWebhookSchemaVersion = "2026-10-01"

type TranscriptWebhookSegment struct {
	Seq        int    `json:"seq"`
	Speaker    string `json:"speaker"`
	StartAt    string `json:"start_at"`
	EndAt      string `json:"end_at"`
	Transcript string `json:"transcript"`
}

type TranscriptWebhookPayload struct {
	SchemaVersion      string                     `json:"schema_version"`
	StreamID           string                     `json:"stream_id"`
	SessionID          string                     `json:"session_id,omitempty"`
	Status             string                     `json:"status"`
	FailReason         string                     `json:"fail_reason,omitempty"`
	StartAt            string                     `json:"start_at"`
	EndAt              string                     `json:"end_at"`
	Timezone           string                     `json:"timezone"`
	DurationSeconds    int64                      `json:"duration_seconds"`
	Speakers           []string                   `json:"speakers"`
	SegmentCount       int                        `json:"segment_count"`
	TranscriptSegments []TranscriptWebhookSegment `json:"transcript_segments"`
	Transcript         string                     `json:"transcript"`
}

type Sender interface {
	SendTranscript(ctx context.Context, payload TranscriptWebhookPayload) error
}
