package cachestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/seanbrar/pollux/pkg/pipeline"
)

// SQLite is the durable Registry backend. It survives restarts, which
// matters because provider-side caches outlive the process that created
// them.
//
// The database runs in WAL mode for concurrent read performance.
type SQLite struct {
	db *sql.DB

	getStmt   *sql.Stmt
	putStmt   *sql.Stmt
	pruneStmt *sql.Stmt
}

const schema = `
CREATE TABLE IF NOT EXISTS cache_refs (
	key        TEXT PRIMARY KEY,
	cache_id   TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_cache_refs_expiry ON cache_refs (expires_at);
`

// NewSQLite opens (creating if necessary) a registry database at path.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("registry db path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening registry db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing registry schema: %w", err)
	}

	s := &SQLite{db: db}
	if s.getStmt, err = db.Prepare(`SELECT cache_id, created_at, expires_at FROM cache_refs WHERE key = ?`); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing get: %w", err)
	}
	if s.putStmt, err = db.Prepare(`INSERT INTO cache_refs (key, cache_id, created_at, expires_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET cache_id = excluded.cache_id, created_at = excluded.created_at, expires_at = excluded.expires_at`); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing put: %w", err)
	}
	if s.pruneStmt, err = db.Prepare(`DELETE FROM cache_refs WHERE expires_at > 0 AND expires_at <= ?`); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing prune: %w", err)
	}
	return s, nil
}

// Get implements Registry.
func (s *SQLite) Get(ctx context.Context, key string) (*pipeline.CacheReference, error) {
	var cacheID string
	var createdAt, expiresAt int64
	err := s.getStmt.QueryRowContext(ctx, key).Scan(&cacheID, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying cache ref %q: %w", key, err)
	}

	ref := pipeline.CacheReference{
		CacheID:   cacheID,
		CreatedAt: time.Unix(createdAt, 0),
	}
	if expiresAt > 0 {
		ref.ExpiresAt = time.Unix(expiresAt, 0)
	}
	if ref.Expired(time.Now()) {
		return nil, nil
	}
	return &ref, nil
}

// Put implements Registry.
func (s *SQLite) Put(ctx context.Context, key string, ref pipeline.CacheReference) error {
	var expiresAt int64
	if !ref.ExpiresAt.IsZero() {
		expiresAt = ref.ExpiresAt.Unix()
	}
	if _, err := s.putStmt.ExecContext(ctx, key, ref.CacheID, ref.CreatedAt.Unix(), expiresAt); err != nil {
		return fmt.Errorf("storing cache ref %q: %w", key, err)
	}
	return nil
}

// PruneExpired implements Registry.
func (s *SQLite) PruneExpired(ctx context.Context) (int, error) {
	res, err := s.pruneStmt.ExecContext(ctx, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("pruning cache refs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

// Close implements Registry.
func (s *SQLite) Close() error {
	for _, stmt := range []*sql.Stmt{s.getStmt, s.putStmt, s.pruneStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
