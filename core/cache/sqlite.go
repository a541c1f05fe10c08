package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gobwas/glob"

	"github.com/adalundhe/glossforge/core/database"
	"github.com/adalundhe/glossforge/core/versions"
)

var migrations = []database.Migration{
	{
		Version:     1,
		Description: "content cache entries",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS cache_entries (
					hash TEXT PRIMARY KEY,
					logical TEXT NOT NULL,
					column_id TEXT NOT NULL,
					term_id TEXT NOT NULL,
					model_id TEXT NOT NULL,
					stage TEXT NOT NULL,
					prompt_version TEXT NOT NULL,
					payload TEXT NOT NULL,
					expires_at INTEGER,
					created_at INTEGER NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_cache_logical ON cache_entries(logical);
			`)
			return err
		},
	},
}

// SQLiteCache is the durable ContentCache for production batches. Entries
// survive process restarts so an interrupted batch resumes without paying
// for completed units again.
type SQLiteCache struct {
	pool *database.Pool
	ttl  time.Duration
}

// NewSQLiteCache opens (and migrates) the cache database. TTL of zero
// means no expiry.
func NewSQLiteCache(ctx context.Context, pool *database.Pool, ttl time.Duration) (*SQLiteCache, error) {
	if err := database.NewMigrator(pool, migrations).Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return &SQLiteCache{pool: pool, ttl: ttl}, nil
}

func (c *SQLiteCache) Get(ctx context.Context, key Key) (*versions.ContentVersion, bool) {
	var payload string
	var expiresAt sql.NullInt64

	err := c.pool.QueryRow(ctx,
		`SELECT payload, expires_at FROM cache_entries WHERE hash = ?`, key.Hash()).
		Scan(&payload, &expiresAt)
	if err != nil {
		return nil, false
	}

	if expiresAt.Valid && time.Now().UnixMilli() > expiresAt.Int64 {
		return nil, false
	}

	var v versions.ContentVersion
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return nil, false
	}
	return &v, true
}

func (c *SQLiteCache) Put(ctx context.Context, key Key, v *versions.ContentVersion) error {
	if v == nil {
		return nil
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache payload: %w", err)
	}

	var expiresAt any
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl).UnixMilli()
	}

	// Idempotent overwrite; concurrent units writing the same key is
	// harmless.
	_, err = c.pool.Exec(ctx, `
		INSERT INTO cache_entries
			(hash, logical, column_id, term_id, model_id, stage, prompt_version,
			 payload, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (hash) DO UPDATE SET
			payload = excluded.payload,
			expires_at = excluded.expires_at`,
		key.Hash(), key.Logical(), key.ColumnID, key.TermID, key.ModelID, key.Stage,
		key.PromptVersion, string(payload), expiresAt, time.Now().UnixMilli())
	return err
}

func (c *SQLiteCache) Invalidate(ctx context.Context, pattern string) (int, error) {
	if _, err := glob.Compile(pattern); err != nil {
		return 0, err
	}

	// sqlite GLOB shares * and ? semantics with gobwas/glob for the
	// patterns administrators use; compile above rejects malformed input.
	res, err := c.pool.Exec(ctx, `DELETE FROM cache_entries WHERE logical GLOB ?`, pattern)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	return int(affected), err
}

func (c *SQLiteCache) Close() error {
	return nil
}
