package versions

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adalundhe/glossforge/core/database"
)

// SQLiteStore is the durable Store used in production runs.
type SQLiteStore struct {
	pool *database.Pool
}

var migrations = []database.Migration{
	{
		Version:     1,
		Description: "content versions, selected pointers, ratings",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS content_versions (
					id TEXT PRIMARY KEY,
					term_id TEXT NOT NULL,
					column_id TEXT NOT NULL,
					model_id TEXT NOT NULL,
					phase TEXT NOT NULL,
					content TEXT NOT NULL,
					quality_score REAL,
					feedback TEXT,
					cost_usd REAL NOT NULL DEFAULT 0,
					tokens_in INTEGER NOT NULL DEFAULT 0,
					tokens_out INTEGER NOT NULL DEFAULT 0,
					derived_from TEXT,
					created_at INTEGER NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_versions_unit
					ON content_versions(term_id, column_id);

				CREATE TABLE IF NOT EXISTS selected_versions (
					term_id TEXT NOT NULL,
					column_id TEXT NOT NULL,
					version_id TEXT NOT NULL REFERENCES content_versions(id),
					selected_at INTEGER NOT NULL,
					PRIMARY KEY (term_id, column_id)
				);

				CREATE TABLE IF NOT EXISTS version_ratings (
					version_id TEXT NOT NULL REFERENCES content_versions(id),
					stars INTEGER NOT NULL CHECK (stars BETWEEN 1 AND 5),
					rated_at INTEGER NOT NULL
				);
			`)
			return err
		},
	},
}

// NewSQLiteStore opens (and migrates) the versions database on the pool.
func NewSQLiteStore(ctx context.Context, pool *database.Pool) (*SQLiteStore, error) {
	if err := database.NewMigrator(pool, migrations).Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate versions db: %w", err)
	}
	return &SQLiteStore{pool: pool}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, v *ContentVersion) error {
	if v.ID == "" {
		return fmt.Errorf("version without id")
	}

	var feedback any
	if v.Feedback != nil {
		data, err := json.Marshal(v.Feedback)
		if err != nil {
			return fmt.Errorf("marshal feedback: %w", err)
		}
		feedback = string(data)
	}

	var score any
	if v.QualityScore != nil {
		score = *v.QualityScore
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO content_versions
			(id, term_id, column_id, model_id, phase, content, quality_score,
			 feedback, cost_usd, tokens_in, tokens_out, derived_from, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.TermID, v.ColumnID, v.ModelID, string(v.Phase), v.Content, score,
		feedback, v.CostUSD, v.TokensIn, v.TokensOut, nullable(v.DerivedFrom),
		v.CreatedAt.UnixMilli(),
	)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, versionID string) (*ContentVersion, error) {
	row := s.pool.QueryRow(ctx, selectVersion+` WHERE id = ?`, versionID)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *SQLiteStore) ListByUnit(ctx context.Context, termID, columnID string) ([]*ContentVersion, error) {
	rows, err := s.pool.Query(ctx,
		selectVersion+` WHERE term_id = ? AND column_id = ? ORDER BY created_at, id`,
		termID, columnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ContentVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Select(ctx context.Context, termID, columnID, versionID string) error {
	return s.pool.Transaction(ctx, func(tx *sql.Tx) error {
		var gotTerm, gotColumn string
		err := tx.QueryRowContext(ctx,
			`SELECT term_id, column_id FROM content_versions WHERE id = ?`, versionID).
			Scan(&gotTerm, &gotColumn)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if gotTerm != termID || gotColumn != columnID {
			return fmt.Errorf("version %s does not belong to (%s, %s)", versionID, termID, columnID)
		}

		// UPSERT keeps at most one selected version per unit.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO selected_versions (term_id, column_id, version_id, selected_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (term_id, column_id)
			DO UPDATE SET version_id = excluded.version_id, selected_at = excluded.selected_at`,
			termID, columnID, versionID, time.Now().UnixMilli())
		return err
	})
}

func (s *SQLiteStore) Selected(ctx context.Context, termID, columnID string) (*ContentVersion, error) {
	row := s.pool.QueryRow(ctx, selectVersion+`
		WHERE id = (SELECT version_id FROM selected_versions WHERE term_id = ? AND column_id = ?)`,
		termID, columnID)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func (s *SQLiteStore) Rate(ctx context.Context, versionID string, stars int) error {
	if stars < 1 || stars > 5 {
		return fmt.Errorf("stars %d out of range 1-5", stars)
	}

	if _, err := s.Get(ctx, versionID); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO version_ratings (version_id, stars, rated_at) VALUES (?, ?, ?)`,
		versionID, stars, time.Now().UnixMilli())
	return err
}

func (s *SQLiteStore) Ratings(ctx context.Context, versionID string) ([]Rating, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT version_id, stars, rated_at FROM version_ratings WHERE version_id = ? ORDER BY rated_at`,
		versionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rating
	for rows.Next() {
		var r Rating
		var ratedAt int64
		if err := rows.Scan(&r.VersionID, &r.Stars, &ratedAt); err != nil {
			return nil, err
		}
		r.RatedAt = time.UnixMilli(ratedAt).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

const selectVersion = `
	SELECT id, term_id, column_id, model_id, phase, content, quality_score,
	       feedback, cost_usd, tokens_in, tokens_out, derived_from, created_at
	FROM content_versions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*ContentVersion, error) {
	var v ContentVersion
	var phase string
	var score sql.NullFloat64
	var feedback, derivedFrom sql.NullString
	var createdAt int64

	err := row.Scan(&v.ID, &v.TermID, &v.ColumnID, &v.ModelID, &phase, &v.Content,
		&score, &feedback, &v.CostUSD, &v.TokensIn, &v.TokensOut, &derivedFrom, &createdAt)
	if err != nil {
		return nil, err
	}

	v.Phase = Phase(phase)
	if score.Valid {
		val := score.Float64
		v.QualityScore = &val
	}
	if feedback.Valid && feedback.String != "" {
		var eval Evaluation
		if err := json.Unmarshal([]byte(feedback.String), &eval); err != nil {
			return nil, fmt.Errorf("unmarshal feedback: %w", err)
		}
		v.Feedback = &eval
	}
	if derivedFrom.Valid {
		v.DerivedFrom = derivedFrom.String
	}
	v.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &v, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
