package terms

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/adalundhe/glossforge/core/database"
)

const defaultTermCacheSize = 4096

// SQLiteStore serves terms from a local SQLite database with an LRU
// read-through cache in front of GetTerm. Pending scans always hit the
// database; they are administrative and must observe fresh cell state.
type SQLiteStore struct {
	pool    *database.Pool
	columns []string
	cache   *lru.Cache[string, Term]
}

var migrations = []database.Migration{
	{
		Version:     1,
		Description: "terms and filled cell tracking",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS terms (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					context TEXT NOT NULL DEFAULT ''
				);

				CREATE TABLE IF NOT EXISTS term_cells (
					term_id TEXT NOT NULL REFERENCES terms(id),
					column_id TEXT NOT NULL,
					filled_at INTEGER NOT NULL,
					PRIMARY KEY (term_id, column_id)
				);
			`)
			return err
		},
	},
}

// NewSQLiteStore opens (and migrates) the term database. The column list
// defines the universe for pending scans.
func NewSQLiteStore(ctx context.Context, pool *database.Pool, columns []string) (*SQLiteStore, error) {
	if err := database.NewMigrator(pool, migrations).Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate terms db: %w", err)
	}

	cache, err := lru.New[string, Term](defaultTermCacheSize)
	if err != nil {
		return nil, fmt.Errorf("term cache: %w", err)
	}

	cols := make([]string, len(columns))
	copy(cols, columns)

	return &SQLiteStore{
		pool:    pool,
		columns: cols,
		cache:   cache,
	}, nil
}

// UpsertTerm inserts or replaces a term and drops any cached copy.
func (s *SQLiteStore) UpsertTerm(ctx context.Context, term Term) error {
	if err := term.Validate(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO terms (id, name, context) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, context = excluded.context
	`, term.ID, term.Name, term.Context)
	if err != nil {
		return fmt.Errorf("upsert term %s: %w", term.ID, err)
	}

	s.cache.Remove(term.ID)
	return nil
}

// MarkFilled records accepted content for a (term, column) cell.
func (s *SQLiteStore) MarkFilled(ctx context.Context, termID, columnID string, filledAtUnixMilli int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO term_cells (term_id, column_id, filled_at) VALUES (?, ?, ?)
		ON CONFLICT(term_id, column_id) DO UPDATE SET filled_at = excluded.filled_at
	`, termID, columnID, filledAtUnixMilli)
	if err != nil {
		return fmt.Errorf("mark cell %s/%s: %w", termID, columnID, err)
	}
	return nil
}

func (s *SQLiteStore) GetTerm(ctx context.Context, termID string) (*Term, error) {
	if term, ok := s.cache.Get(termID); ok {
		return &term, nil
	}

	var term Term
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, context FROM terms WHERE id = ?`, termID,
	).Scan(&term.ID, &term.Name, &term.Context)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrTermNotFound, termID)
	}
	if err != nil {
		return nil, fmt.Errorf("get term %s: %w", termID, err)
	}

	s.cache.Add(termID, term)
	return &term, nil
}

func (s *SQLiteStore) ListPendingColumns(ctx context.Context, termID string) ([]string, error) {
	if _, err := s.GetTerm(ctx, termID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT column_id FROM term_cells WHERE term_id = ?`, termID)
	if err != nil {
		return nil, fmt.Errorf("scan cells for %s: %w", termID, err)
	}
	defer rows.Close()

	filled := make(map[string]bool)
	for rows.Next() {
		var columnID string
		if err := rows.Scan(&columnID); err != nil {
			return nil, fmt.Errorf("scan cell row: %w", err)
		}
		filled[columnID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan cells for %s: %w", termID, err)
	}

	pending := make([]string, 0, len(s.columns))
	for _, col := range s.columns {
		if !filled[col] {
			pending = append(pending, col)
		}
	}
	sort.Strings(pending)
	return pending, nil
}

// ListTermIDs returns every term ID, sorted. Batch runs use it to expand
// an "all pending" scan.
func (s *SQLiteStore) ListTermIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM terms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan term id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
