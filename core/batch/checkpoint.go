package batch

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/adalundhe/glossforge/core/database"
)

// CheckpointStore persists batch progress so an interrupted run can be
// inspected and re-queued after a restart. Replaying units is safe: the
// cache and version store make re-running a satisfied unit a no-op skip.
type CheckpointStore interface {
	Save(ctx context.Context, progress Progress) error
	Load(ctx context.Context, jobID string) (*Progress, error)
	List(ctx context.Context) ([]Progress, error)
}

// SQLiteCheckpoints stores job progress rows on the pipeline database.
type SQLiteCheckpoints struct {
	pool *database.Pool
}

var checkpointMigrations = []database.Migration{
	{
		Version:     1,
		Description: "batch job checkpoints",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS batch_jobs (
					id TEXT PRIMARY KEY,
					state TEXT NOT NULL,
					succeeded INTEGER NOT NULL,
					failed INTEGER NOT NULL,
					skipped INTEGER NOT NULL,
					remaining INTEGER NOT NULL,
					cost_usd REAL NOT NULL,
					updated_at INTEGER NOT NULL
				);
			`)
			return err
		},
	},
}

// NewSQLiteCheckpoints opens (and migrates) the checkpoint table.
func NewSQLiteCheckpoints(ctx context.Context, pool *database.Pool) (*SQLiteCheckpoints, error) {
	if err := database.NewMigrator(pool, checkpointMigrations).Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate batch checkpoints: %w", err)
	}
	return &SQLiteCheckpoints{pool: pool}, nil
}

func (s *SQLiteCheckpoints) Save(ctx context.Context, progress Progress) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO batch_jobs (id, state, succeeded, failed, skipped, remaining, cost_usd, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			succeeded = excluded.succeeded,
			failed = excluded.failed,
			skipped = excluded.skipped,
			remaining = excluded.remaining,
			cost_usd = excluded.cost_usd,
			updated_at = excluded.updated_at
	`, progress.JobID, string(progress.State), progress.Succeeded, progress.Failed,
		progress.Skipped, progress.Remaining, progress.CostUSD, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", progress.JobID, err)
	}
	return nil
}

func (s *SQLiteCheckpoints) Load(ctx context.Context, jobID string) (*Progress, error) {
	var progress Progress
	var state string

	err := s.pool.QueryRow(ctx, `
		SELECT id, state, succeeded, failed, skipped, remaining, cost_usd
		FROM batch_jobs WHERE id = ?
	`, jobID).Scan(&progress.JobID, &state, &progress.Succeeded, &progress.Failed,
		&progress.Skipped, &progress.Remaining, &progress.CostUSD)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no checkpoint for job %s", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", jobID, err)
	}

	progress.State = JobState(state)
	return &progress, nil
}

func (s *SQLiteCheckpoints) List(ctx context.Context) ([]Progress, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, state, succeeded, failed, skipped, remaining, cost_usd
		FROM batch_jobs ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []Progress
	for rows.Next() {
		var progress Progress
		var state string
		if err := rows.Scan(&progress.JobID, &state, &progress.Succeeded, &progress.Failed,
			&progress.Skipped, &progress.Remaining, &progress.CostUSD); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		progress.State = JobState(state)
		out = append(out, progress)
	}
	return out, rows.Err()
}
