package repository

import (
	"context"
	"errors"
	"time"

	"github.com/foxseedlab/mojistream/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateStreamRun(ctx context.Context, input repository.CreateStreamRunInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO stream_runs (id, session_id, started_at, status)
		 VALUES ($1, $2, $3, 'running')`,
		input.ID, input.SessionID, input.StartedAt)
	return err
}

func (r *PostgresRepository) CompleteStreamRun(ctx context.Context, input repository.CompleteStreamRunInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE stream_runs SET status = $2, ended_at = $3, fail_reason = $4 WHERE id = $1`,
		input.ID, string(input.Status), input.EndedAt, input.FailReason)
	return err
}

func (r *PostgresRepository) GetStreamRun(ctx context.Context, id string) (*repository.StreamRun, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT s.id, s.session_id, s.started_at, s.ended_at, s.status, s.fail_reason,
		        (SELECT COUNT(*) FROM transcript_entries e WHERE e.stream_id = s.id)
		 FROM stream_runs s WHERE s.id = $1`,
		id)
	var s repository.StreamRun
	var endedAt *time.Time
	var status string
	err := row.Scan(&s.ID, &s.SessionID, &s.StartedAt, &endedAt, &status, &s.FailReason, &s.EntryCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.EndedAt = endedAt
	s.Status = repository.StreamStatus(status)
	return &s, nil
}

func (r *PostgresRepository) InsertEntry(ctx context.Context, input repository.InsertEntryInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO transcript_entries (stream_id, seq, kind, speaker, text, spoken_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (stream_id, seq) DO NOTHING`,
		input.StreamID, input.Seq, input.Kind, input.Speaker, input.Text, input.SpokenAt)
	return err
}

func (r *PostgresRepository) ListEntriesByStreamID(ctx context.Context, streamID string) ([]repository.TranscriptEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT stream_id, seq, kind, speaker, text, spoken_at, created_at
		 FROM transcript_entries WHERE stream_id = $1 ORDER BY seq ASC`,
		streamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.TranscriptEntry
	for rows.Next() {
		var e repository.TranscriptEntry
		if err := rows.Scan(&e.StreamID, &e.Seq, &e.Kind, &e.Speaker, &e.Text, &e.SpokenAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
