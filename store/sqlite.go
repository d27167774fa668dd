package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// defaultTimeout bounds Init when the caller's context has no deadline.
const defaultTimeout = 5 * time.Second

// SQLite is a ByteStore backed by a single-table SQLite database.
//
// SQLite is safe for concurrent use.
type SQLite struct {
	path string
	log  *slog.Logger

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLite returns a store for the database file at path. The file and its
// directory are created by Init. A nil logger disables logging.
func NewSQLite(path string, log *slog.Logger) *SQLite {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &SQLite{path: path, log: log.With(slog.String("component", "store"))}
}

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

// Init opens the database, enables WAL mode and creates the blob table.
func (s *SQLite) Init(ctx context.Context) error {
	l := s.log.With(slog.String("path", s.path))
	if strings.TrimSpace(s.path) == "" {
		return errors.New("store: sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("store: create dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(s.path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return fmt.Errorf("store: enable WAL: %w", err)
	}
	const ddl = `CREATE TABLE IF NOT EXISTS blobs (
		key        TEXT PRIMARY KEY,
		data       BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return fmt.Errorf("store: create table: %w", err)
	}

	s.mu.Lock()
	old := s.db
	s.db = db
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	l.Info("sqlite store ready")
	return nil
}

func (s *SQLite) handle() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	return s.db, nil
}

// Get implements ByteStore.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	db, err := s.handle()
	if err != nil {
		return nil, false, err
	}
	var data []byte
	err = db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE key = ?`, key).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("store: get %q: %w", key, err)
	}
	return data, true, nil
}

// Write implements ByteStore.
func (s *SQLite) Write(ctx context.Context, key string, data []byte) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = db.ExecContext(ctx,
		`INSERT INTO blobs (key, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, now)
	if err != nil {
		return fmt.Errorf("store: write %q: %w", key, err)
	}
	return nil
}

// Count returns the number of stored keys.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// Close closes the database. Close on an uninitialized store is a no-op.
func (s *SQLite) Close() error {
	s.mu.Lock()
	db := s.db
	s.db = nil
	s.mu.Unlock()
	if db == nil {
		return nil
	}
	return db.Close()
}
