package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	askerrors "github.com/askpile/askpile/internal/errors"
)

// Store is the SQLite-backed metadata store. It holds document rows and the
// query log in one database file.
type Store struct {
	db *sql.DB
}

var (
	_ DocumentStore = (*Store)(nil)
	_ QueryLog      = (*Store)(nil)
)

// Open opens (or creates) the metadata database at path and applies the
// schema. Use ":memory:" for an in-process database in tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, askerrors.StoreError(
				fmt.Sprintf("failed to create data directory for %s", path), err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, askerrors.StoreError("failed to open metadata database", err)
	}

	// modernc/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent ingestion.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.applyPragmas(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) applyPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return askerrors.StoreError(fmt.Sprintf("failed to apply %q", pragma), err)
		}
	}
	return nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id   TEXT NOT NULL,
		filename    TEXT NOT NULL,
		byte_size   INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		status      TEXT NOT NULL DEFAULT 'pending',
		created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_tenant ON documents(tenant_id);

	CREATE TABLE IF NOT EXISTS query_logs (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant_id     TEXT NOT NULL,
		question      TEXT NOT NULL,
		answer        TEXT NOT NULL,
		response_time REAL NOT NULL,
		confidence    REAL,
		sources       TEXT NOT NULL DEFAULT '',
		created_at    INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_logs_tenant ON query_logs(tenant_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return askerrors.StoreError("failed to initialize schema", err)
	}
	return nil
}

// DB exposes the underlying handle for maintenance queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return askerrors.StoreError("metadata database unreachable", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
