package repository

import "time"

type StreamStatus string

const (
	StreamStatusRunning   StreamStatus = "running"
	StreamStatusCompleted StreamStatus = "completed"
	StreamStatusFailed    StreamStatus = "failed"
)

type StreamRun struct {
	ID         string
	SessionID  string
	StartedAt  time.Time
	EndedAt    *time.Time
	Status     StreamStatus
	FailReason string
	EntryCount int
}

type TranscriptEntry struct {
	StreamID  string
	Seq       int
	Kind      string
	Speaker   string
	Text      string
	SpokenAt  time.Time
	CreatedAt time.Time
}
