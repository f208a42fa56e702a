// Package cache persists the last successfully fetched application listing
// so the INITIALISING state can show something meaningful before the first
// remote round-trip completes. It is a display hint, never a substitute for
// a rebuild.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/appscope/appscope/pkg/directory"
)

// FileName is the cache database inside the settings directory.
const FileName = "cache.db"

const schema = `
CREATE TABLE IF NOT EXISTS listing (
	object_id    TEXT PRIMARY KEY,
	app_id       TEXT NOT NULL DEFAULT '',
	display_name TEXT NOT NULL DEFAULT '',
	fetched_at   INTEGER NOT NULL
);
`

// Store is an on-disk listing cache. All methods are best-effort from the
// caller's point of view; a corrupt database should be handled by falling
// back to no cache, not by failing startup.
type Store struct {
	db *sql.DB
}

// Open creates or opens the cache database under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Replace swaps the cached listing wholesale, mirroring the engine's
// wholesale root replacement.
func (s *Store) Replace(apps []directory.AppSummary, fetchedAt time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin cache replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM listing`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO listing (object_id, app_id, display_name, fetched_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare cache insert: %w", err)
	}
	defer stmt.Close()

	ts := fetchedAt.Unix()
	for _, app := range apps {
		if _, err := stmt.Exec(app.ObjectID, app.AppID, app.DisplayName, ts); err != nil {
			return fmt.Errorf("insert %s: %w", app.ObjectID, err)
		}
	}
	return tx.Commit()
}

// Listing returns the cached summaries and when they were fetched. An empty
// cache returns (nil, zero time, nil).
func (s *Store) Listing() ([]directory.AppSummary, time.Time, error) {
	rows, err := s.db.Query(`SELECT object_id, app_id, display_name, fetched_at FROM listing ORDER BY display_name`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("query cache: %w", err)
	}
	defer rows.Close()

	var (
		out    []directory.AppSummary
		newest int64
	)
	for rows.Next() {
		var app directory.AppSummary
		var ts int64
		if err := rows.Scan(&app.ObjectID, &app.AppID, &app.DisplayName, &ts); err != nil {
			return nil, time.Time{}, fmt.Errorf("scan cache row: %w", err)
		}
		if ts > newest {
			newest = ts
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("iterate cache: %w", err)
	}
	if len(out) == 0 {
		return nil, time.Time{}, nil
	}
	return out, time.Unix(newest, 0), nil
}

// Count returns the number of cached applications.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM listing`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cache: %w", err)
	}
	return n, nil
}
