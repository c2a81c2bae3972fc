package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/shaweiguo/datahub/pkg/lineage"
)

// MemoryPath opens a private in-memory cache.
const MemoryPath = ":memory:"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// Open opens the cache at path, creating its directory, and migrates the
// schema. Use MemoryPath for an in-memory database.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if path == MemoryPath {
		dsn = ":memory:"
	} else {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create cache directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := NewWithDB(db, path)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing connection. The schema is not migrated.
func NewWithDB(db *sql.DB, path string) *SQLiteStore {
	return &SQLiteStore{
		db:   db,
		path: path,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// Get returns the cached result for key and counts the hit.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*lineage.Result, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM extractions WHERE cache_key = ?`, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var res lineage.Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE extractions SET hits = hits + 1, last_hit_at = ? WHERE cache_key = ?`,
		s.now().Unix(), key,
	); err != nil {
		return nil, fmt.Errorf("failed to record cache hit: %w", err)
	}
	return &res, nil
}

// Put stores res under key, replacing any previous entry.
func (s *SQLiteStore) Put(ctx context.Context, key, strategy string, res *lineage.Result) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO extractions (id, cache_key, strategy, result, hits, created_at)
		 VALUES (?, ?, ?, ?, 0, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		     strategy = excluded.strategy,
		     result = excluded.result,
		     created_at = excluded.created_at`,
		generateID(), key, strategy, string(raw), s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Stats summarises the cache contents.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	stats := &Stats{Path: s.path, ByStrategy: make(map[string]int64)}
	var oldest, newest sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(hits), 0), MIN(created_at), MAX(created_at) FROM extractions`,
	).Scan(&stats.Entries, &stats.Hits, &oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache stats: %w", err)
	}
	if oldest.Valid {
		t := time.Unix(oldest.Int64, 0).UTC()
		stats.Oldest = &t
	}
	if newest.Valid {
		t := time.Unix(newest.Int64, 0).UTC()
		stats.Newest = &t
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT strategy, COUNT(*) FROM extractions GROUP BY strategy`)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			strategy string
			n        int64
		)
		if err := rows.Scan(&strategy, &n); err != nil {
			return nil, fmt.Errorf("failed to scan cache stats: %w", err)
		}
		stats.ByStrategy[strategy] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cache stats: %w", err)
	}

	version, err := s.GetMigrationVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}
	stats.Version = version
	return stats, nil
}

// Clear deletes every entry and returns how many were removed.
func (s *SQLiteStore) Clear(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM extractions`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	return n, nil
}
