package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
}

// SQLite is a Backend storing each key as a row of a single table.
type SQLite struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLite opens (or creates) the database at path and runs migrations.
func NewSQLite(path string, wal bool) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite database")
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA temp_store=memory",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=30000",
	}
	if wal {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}

	s := &SQLite{db: db}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			s.closeAfter(err)
			return nil, errors.Wrapf(err, "failed to execute %s", pragma)
		}
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			s.closeAfter(err)
			return nil, errors.Wrapf(err, "migration %d failed", i+1)
		}
	}

	zlog.Debug().Str("path", path).Msg("SQLite store opened")
	return s, nil
}

func (s *SQLite) closeAfter(cause error) {
	if err := s.db.Close(); err != nil {
		zlog.Warn().Err(err).AnErr("cause", cause).Msg("Failed to close database after error")
	}
}

func (s *SQLite) checkClosed() error {
	if s.closed {
		return errors.New("database is closed")
	}
	return nil
}

// Get implements Backend.
func (s *SQLite) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkClosed(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", key)
	}
	return value, nil
}

// Put implements Backend.
func (s *SQLite) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(); err != nil {
		return err
	}

	_, err := s.db.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, key, value)
	if err != nil {
		return errors.Wrapf(err, "failed to write %s", key)
	}
	return nil
}

// Delete implements Backend.
func (s *SQLite) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(); err != nil {
		return err
	}

	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return errors.Wrapf(err, "failed to delete %s", key)
	}
	return nil
}

// Clear implements Backend.
func (s *SQLite) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(); err != nil {
		return err
	}

	if _, err := s.db.Exec(`DELETE FROM kv`); err != nil {
		return errors.Wrap(err, "failed to clear store")
	}
	return nil
}

// Close implements Backend.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
