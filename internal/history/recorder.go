// Package history persists generation telemetry for the product dashboard.
// The pipeline itself never depends on a database; recording is best-effort
// and a no-op recorder is used when no DATABASE_URL is configured.
package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"promoforge/internal/providers/video"
)

// ArtifactRecord mirrors the published artifact fields worth keeping.
type ArtifactRecord struct {
	ID           string
	RelativePath string
	MimeType     string
	SizeBytes    int64
	ProducedBy   string
	Prompt       string
	Style        string
	Duration     float64
}

// Recorder receives pipeline telemetry. Implementations must be safe for
// concurrent use; errors are logged by the caller, never surfaced to users.
type Recorder interface {
	RecordAttempts(ctx context.Context, requestID string, attempts []video.Attempt) error
	RecordArtifact(ctx context.Context, requestID string, artifact ArtifactRecord) error
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS video_attempts (
	id BIGSERIAL PRIMARY KEY,
	request_id TEXT NOT NULL,
	position INT NOT NULL,
	provider TEXT NOT NULL,
	outcome TEXT NOT NULL,
	error_detail TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS video_artifacts (
	id TEXT PRIMARY KEY,
	request_id TEXT NOT NULL,
	relative_path TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	size_bytes BIGINT NOT NULL,
	produced_by TEXT NOT NULL,
	prompt TEXT NOT NULL,
	style TEXT NOT NULL DEFAULT '',
	duration_seconds DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const insertAttemptSQL = `
INSERT INTO video_attempts (request_id, position, provider, outcome, error_detail, started_at)
VALUES ($1, $2, $3, $4, $5, $6)`

const insertArtifactSQL = `
INSERT INTO video_artifacts (id, request_id, relative_path, mime_type, size_bytes, produced_by, prompt, style, duration_seconds)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// PGRecorder writes telemetry rows to Postgres.
type PGRecorder struct {
	pool *pgxpool.Pool
}

// NewPGRecorder ensures the schema exists and returns a recorder bound to
// the pool.
func NewPGRecorder(ctx context.Context, pool *pgxpool.Pool) (*PGRecorder, error) {
	if pool == nil {
		return nil, fmt.Errorf("history: pool is required")
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("history: ensure schema: %w", err)
	}
	return &PGRecorder{pool: pool}, nil
}

// RecordAttempts inserts one row per provider attempt, preserving order.
func (r *PGRecorder) RecordAttempts(ctx context.Context, requestID string, attempts []video.Attempt) error {
	for i, attempt := range attempts {
		_, err := r.pool.Exec(ctx, insertAttemptSQL,
			requestID, i, attempt.Provider, string(attempt.Outcome), attempt.Err, attempt.StartedAt)
		if err != nil {
			return fmt.Errorf("history: insert attempt: %w", err)
		}
	}
	return nil
}

// RecordArtifact inserts the published artifact reference.
func (r *PGRecorder) RecordArtifact(ctx context.Context, requestID string, artifact ArtifactRecord) error {
	_, err := r.pool.Exec(ctx, insertArtifactSQL,
		artifact.ID, requestID, artifact.RelativePath, artifact.MimeType, artifact.SizeBytes,
		artifact.ProducedBy, artifact.Prompt, artifact.Style, artifact.Duration)
	if err != nil {
		return fmt.Errorf("history: insert artifact: %w", err)
	}
	return nil
}

// Noop discards all telemetry.
type Noop struct{}

// NewNoop returns a recorder that does nothing.
func NewNoop() Noop { return Noop{} }

func (Noop) RecordAttempts(context.Context, string, []video.Attempt) error { return nil }

func (Noop) RecordArtifact(context.Context, string, ArtifactRecord) error { return nil }

var (
	_ Recorder = (*PGRecorder)(nil)
	_ Recorder = Noop{}
)
