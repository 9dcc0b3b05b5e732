package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT UNIQUE NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'member',
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS landing_pages (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    slug TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'draft',
    meta TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch()),
    FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_lps_user ON landing_pages(user_id);

CREATE TABLE IF NOT EXISTS components (
    id TEXT PRIMARY KEY,
    lp_id TEXT NOT NULL,
    type TEXT NOT NULL,
    position INTEGER NOT NULL DEFAULT 0,
    gen_params TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch()),
    FOREIGN KEY (lp_id) REFERENCES landing_pages(id)
);

CREATE INDEX IF NOT EXISTS idx_components_lp ON components(lp_id, position);

CREATE TABLE IF NOT EXISTS variants (
    id TEXT PRIMARY KEY,
    component_id TEXT NOT NULL,
    letter TEXT NOT NULL,
    html TEXT NOT NULL DEFAULT '',
    css TEXT NOT NULL DEFAULT '',
    js TEXT NOT NULL DEFAULT '',
    meta TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    updated_at INTEGER NOT NULL DEFAULT (unixepoch()),
    FOREIGN KEY (component_id) REFERENCES components(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_variants_component_letter ON variants(component_id, letter);

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    lp_id TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    last_seen_at INTEGER NOT NULL,
    device TEXT NOT NULL DEFAULT '',
    browser TEXT NOT NULL DEFAULT '',
    referrer TEXT NOT NULL DEFAULT '',
    utm_source TEXT NOT NULL DEFAULT '',
    utm_campaign TEXT NOT NULL DEFAULT '',
    assignments TEXT,
    converted INTEGER NOT NULL DEFAULT 0,
    conversion_type TEXT NOT NULL DEFAULT '',
    duration_secs INTEGER NOT NULL DEFAULT 0,
    scroll_depth_pct INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sessions_lp ON sessions(lp_id);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    lp_id TEXT NOT NULL,
    component_id TEXT,
    variant TEXT,
    event_type TEXT NOT NULL,
    payload TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch())
);

CREATE INDEX IF NOT EXISTS idx_events_lp ON events(lp_id, event_type);
CREATE INDEX IF NOT EXISTS idx_events_component ON events(component_id, variant, event_type);
CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);

CREATE TABLE IF NOT EXISTS component_stats (
    component_id TEXT NOT NULL,
    variant TEXT NOT NULL,
    views INTEGER NOT NULL DEFAULT 0,
    clicks INTEGER NOT NULL DEFAULT 0,
    conversions INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (component_id, variant)
);

CREATE TABLE IF NOT EXISTS test_results (
    component_id TEXT PRIMARY KEY,
    visitors_a INTEGER NOT NULL DEFAULT 0,
    conversions_a INTEGER NOT NULL DEFAULT 0,
    rate_a REAL NOT NULL DEFAULT 0,
    visitors_b INTEGER NOT NULL DEFAULT 0,
    conversions_b INTEGER NOT NULL DEFAULT 0,
    rate_b REAL NOT NULL DEFAULT 0,
    improvement_pct REAL NOT NULL DEFAULT 0,
    confidence_pct REAL NOT NULL DEFAULT 0,
    is_significant INTEGER NOT NULL DEFAULT 0,
    winning_variant TEXT NOT NULL DEFAULT '',
    applied INTEGER NOT NULL DEFAULT 0,
    applied_at INTEGER,
    computed_at INTEGER NOT NULL
);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for health checks
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// SizeBytes reports the database file size, 0 if it cannot be determined.
func (s *SQLiteStore) SizeBytes(ctx context.Context) int64 {
	var size int64
	row := s.db.QueryRowContext(ctx, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
	if err := row.Scan(&size); err != nil {
		return 0
	}
	return size
}

func nullableString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func nullableBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
