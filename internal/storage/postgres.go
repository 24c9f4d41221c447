package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS execution_stats (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL DEFAULT '',
	language    TEXT NOT NULL,
	status      TEXT NOT NULL,
	success     BOOLEAN NOT NULL,
	duration_ms BIGINT NOT NULL,
	memory_kb   BIGINT NOT NULL DEFAULT 0,
	code_hash   TEXT NOT NULL,
	cached      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS execution_stats_created_at_idx ON execution_stats (created_at);
CREATE INDEX IF NOT EXISTS execution_stats_language_idx ON execution_stats (language);
`

// Store persists execution statistics in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens the pool, verifies connectivity, and ensures the schema.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	log.Info().Msg("statistics store connected")
	return &Store{pool: pool}, nil
}

// InsertStat writes one execution stat row.
func (s *Store) InsertStat(ctx context.Context, stat *ExecutionStat) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO execution_stats
		 (id, user_id, language, status, success, duration_ms, memory_kb, code_hash, cached, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		stat.ID, stat.UserID, stat.Language, stat.Status, stat.Success,
		stat.DurationMS, stat.MemoryKB, stat.CodeHash, stat.Cached, stat.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert stat: %w", err)
	}
	return nil
}

// LanguageCounts returns executions per language since the cutoff.
func (s *Store) LanguageCounts(ctx context.Context, since time.Time) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT language, COUNT(*) FROM execution_stats WHERE created_at >= $1 GROUP BY language`,
		since)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var lang string
		var n int64
		if err := rows.Scan(&lang, &n); err != nil {
			return nil, fmt.Errorf("scan counts: %w", err)
		}
		counts[lang] = n
	}
	return counts, rows.Err()
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
