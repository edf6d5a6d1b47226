package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sqlx connection shared by the repositories.
type DB struct {
	*sqlx.DB
}

// Connect opens a connection for the given driver ("sqlite3" or "postgres") and
// creates the schema if needed.
func Connect(driver, dsn string) (*DB, error) {
	switch driver {
	case "sqlite", "sqlite3":
		driver = "sqlite3"
		if dsn == "" {
			dsn = filepath.Join("data", "engdrill.db")
		}
		if !strings.HasPrefix(dsn, ":memory:") && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	case "postgres", "postgresql":
		driver = "postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite3" {
		if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
	} else {
		conn.SetMaxOpenConns(20)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(30 * time.Minute)
	}

	db := &DB{DB: conn}
	if err := db.initializeSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

var schema = []struct {
	name string
	stmt string
}{
	{"items", `
		CREATE TABLE IF NOT EXISTS items (
			item_id TEXT PRIMARY KEY,
			item_type TEXT NOT NULL,
			level TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			prompt TEXT NOT NULL,
			answer TEXT NOT NULL DEFAULT '',
			payload TEXT,
			submitted_at BIGINT
		)`},
	{"items level index", `CREATE INDEX IF NOT EXISTS idx_items_level ON items (level, item_type)`},
	{"review_records", `
		CREATE TABLE IF NOT EXISTS review_records (
			user_id BIGINT NOT NULL,
			item_id TEXT NOT NULL,
			state TEXT NOT NULL,
			repetitions INTEGER NOT NULL DEFAULT 0,
			ease_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
			interval_days INTEGER NOT NULL DEFAULT 0,
			next_review_at BIGINT NOT NULL,
			correct_count INTEGER NOT NULL DEFAULT 0,
			incorrect_count INTEGER NOT NULL DEFAULT 0,
			consecutive_correct INTEGER NOT NULL DEFAULT 0,
			consecutive_incorrect INTEGER NOT NULL DEFAULT 0,
			mastery_level DOUBLE PRECISION NOT NULL DEFAULT 0,
			lapse_count INTEGER NOT NULL DEFAULT 0,
			last_review_at BIGINT,
			last_lapse_at BIGINT,
			PRIMARY KEY (user_id, item_id)
		)`},
	{"review_records due index", `CREATE INDEX IF NOT EXISTS idx_review_records_next ON review_records (user_id, next_review_at)`},
	{"user_settings", `
		CREATE TABLE IF NOT EXISTS user_settings (
			user_id BIGINT PRIMARY KEY,
			level TEXT NOT NULL,
			randomize_order BOOLEAN NOT NULL DEFAULT FALSE,
			cards_per_session INTEGER NOT NULL DEFAULT 0,
			sentences_per_session INTEGER NOT NULL DEFAULT 0,
			notifications_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			notification_hour INTEGER NOT NULL DEFAULT 9
		)`},
	{"practice_stats", `
		CREATE TABLE IF NOT EXISTS practice_stats (
			user_id BIGINT NOT NULL,
			item_id TEXT NOT NULL,
			times_shown INTEGER NOT NULL DEFAULT 0,
			last_shown_at BIGINT,
			correct_attempts INTEGER NOT NULL DEFAULT 0,
			total_attempts INTEGER NOT NULL DEFAULT 0,
			needs_review BOOLEAN NOT NULL DEFAULT FALSE,
			consecutive_correct INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, item_id)
		)`},
}

// initializeSchema creates necessary tables if they don't exist
func (db *DB) initializeSchema() error {
	for _, s := range schema {
		if _, err := db.Exec(s.stmt); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.name, err)
		}
	}
	return nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func timeFromNull(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := fromMillis(*ms)
	return &t
}
