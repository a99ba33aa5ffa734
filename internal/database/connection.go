package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Supported database types
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Config describes where the local store lives
type Config struct {
	Type string // sqlite (default) or postgres
	Path string // sqlite file path
	DSN  string // postgres connection string
}

// Store is the device-local record store. It owns one table per entity and
// hands out repositories bound either to the connection or to a transaction.
type Store struct {
	db  *sqlx.DB
	log *zap.Logger
}

// Open establishes a connection to the database and initializes the schema
func Open(cfg Config, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Type {
	case TypePostgres:
		db, err = sqlx.Connect("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
	case TypeSQLite, "":
		// Create data directory if it doesn't exist
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}

		db, err = sqlx.Connect("sqlite3", cfg.Path+"?_busy_timeout=5000")
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		// SQLite doesn't support multiple writers. A single connection also
		// serializes every store access behind the running transaction.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	s := &Store{db: db, log: log}
	if err := s.initializeSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("local store opened", zap.String("driver", db.DriverName()))
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying connection
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// initializeSchema creates necessary tables if they don't exist
func (s *Store) initializeSchema() error {
	statements := []struct {
		name  string
		query string
	}{
		{"word_progress", `
		CREATE TABLE IF NOT EXISTS word_progress (
			word TEXT NOT NULL,
			dict TEXT NOT NULL,
			wrong_count INTEGER NOT NULL DEFAULT 0,
			correct_count INTEGER NOT NULL DEFAULT 0,
			mistakes TEXT NOT NULL DEFAULT '{}',
			last_activity_time BIGINT NOT NULL DEFAULT 0,
			mode TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (word, dict)
		)`},
		{"word_progress index", `
		CREATE INDEX IF NOT EXISTS idx_word_progress_dict_wrong ON word_progress(dict, wrong_count)`},
		{"chapter_sessions", `
		CREATE TABLE IF NOT EXISTS chapter_sessions (
			dict TEXT NOT NULL,
			chapter INTEGER NOT NULL,
			started_at BIGINT NOT NULL,
			elapsed_seconds INTEGER NOT NULL DEFAULT 0,
			correct_count INTEGER NOT NULL DEFAULT 0,
			wrong_count INTEGER NOT NULL DEFAULT 0,
			total_word_count INTEGER NOT NULL DEFAULT 0,
			correct_word_indexes TEXT NOT NULL DEFAULT '[]',
			mode TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (dict, chapter, started_at)
		)`},
		{"review_sessions", `
		CREATE TABLE IF NOT EXISTS review_sessions (
			dict TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			is_finished BOOLEAN NOT NULL DEFAULT FALSE,
			words TEXT NOT NULL DEFAULT '[]',
			PRIMARY KEY (dict, created_at)
		)`},
		{"schedule_records", `
		CREATE TABLE IF NOT EXISTS schedule_records (
			word TEXT NOT NULL,
			dict TEXT NOT NULL,
			easiness_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
			interval_days INTEGER NOT NULL DEFAULT 0,
			consecutive_correct INTEGER NOT NULL DEFAULT 0,
			next_review_at TEXT NOT NULL DEFAULT '',
			last_reviewed_at BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (word, dict)
		)`},
		{"schedule_records index", `
		CREATE INDEX IF NOT EXISTS idx_schedule_next_review ON schedule_records(next_review_at)`},
		{"ledger_entries", `
		CREATE TABLE IF NOT EXISTS ledger_entries (
			occurred_at BIGINT NOT NULL,
			reason_code TEXT NOT NULL,
			points INTEGER NOT NULL DEFAULT 0,
			detail TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (occurred_at, reason_code)
		)`},
		{"achievement_unlocks", `
		CREATE TABLE IF NOT EXISTS achievement_unlocks (
			achievement_id TEXT PRIMARY KEY,
			unlocked_at BIGINT NOT NULL
		)`},
		{"settings", `
		CREATE TABLE IF NOT EXISTS settings (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`},
		{"sync_meta", `
		CREATE TABLE IF NOT EXISTS sync_meta (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`},
	}

	for _, st := range statements {
		if _, err := s.db.Exec(st.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", st.name, err)
		}
	}
	return nil
}
