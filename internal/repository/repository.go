package repository

import (
	"context"
	"time"
)

type CreateStreamRunInput struct {
	ID        string
	SessionID string
	StartedAt time.Time
}

type CompleteStreamRunInput struct {
	ID         string
	EndedAt    time.Time
	Status     StreamStatus
	FailReason string
}

type InsertEntryInput struct {
	StreamID string
	Seq      int
	Kind     string
	Speaker  string
	Text     string
	SpokenAt time.Time
}

type StreamRunRepository interface {
	CreateStreamRun(ctx context.Context, input CreateStreamRunInput) error
	CompleteStreamRun(ctx context.Context, input CompleteStreamRunInput) error
	GetStreamRun(ctx context.Context, id string) (*StreamRun, error)
}

type TranscriptRepository interface {
	InsertEntry(ctx context.Context, input InsertEntryInput) error
	ListEntriesByStreamID(ctx context.Context, streamID string) ([]TranscriptEntry, error)
}

type Repository interface {
	StreamRunRepository
	TranscriptRepository
}
