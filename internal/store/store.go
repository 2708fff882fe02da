// Package store implements the persistent entity store for Mentor.
//
// It uses SQLite to persist typed records (work entities, entity
// references, training sessions, incidents, lessons, skills, rules,
// feedback) with per-type unique-key enforcement. The store holds no
// in-memory authoritative state: every operation reads and writes
// through the database, so its persistence guarantees are inherited
// directly by the graph and pipeline layers built on top.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Sentinel errors surfaced across the tool boundary.
var (
	// ErrNotFound indicates a referenced entity, session, skill or rule
	// does not exist. Surfaced, never retried.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName indicates a skill/rule name collision within a
	// project. User-actionable, not retried.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrConstraint indicates malformed input, such as an entity type
	// outside the closed set or a bad applicability object.
	ErrConstraint = errors.New("constraint violation")
)

// EntityTypes is the closed set of entity types known to the reference
// graph and the context assembly engine.
var EntityTypes = []string{
	"task", "session", "knowledge", "capability", "impact",
	"ticket", "incident", "lesson", "rule", "skill",
}

// ValidEntityType reports whether t belongs to the closed entity-type set.
func ValidEntityType(t string) bool {
	for _, v := range EntityTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Applicability declares the scope of a rule or skill. An empty or
// absent dimension is a wildcard; matching is AND across dimensions and
// OR within a dimension's list.
type Applicability struct {
	Modules   []string `json:"modules,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	TaskTypes []string `json:"taskTypes,omitempty"`
}

// Config holds store configuration.
type Config struct {
	DataDir string
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".mentor")}
}

// Store is the SQLite-backed entity store. One Store is constructed at
// process start and injected into every component that needs it.
type Store struct {
	db *sql.DB
}

// New creates the data directory if needed, opens SQLite with WAL mode,
// and runs migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "mentor.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("store: migration: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS entities (
			type       TEXT NOT NULL,
			id         TEXT NOT NULL,
			title      TEXT NOT NULL,
			summary    TEXT,
			module_id  TEXT,
			role       TEXT,
			task_type  TEXT,
			status     TEXT NOT NULL DEFAULT 'open',
			detail     TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (type, id)
		);

		CREATE INDEX IF NOT EXISTS idx_entities_module ON entities(module_id);

		CREATE TABLE IF NOT EXISTS entity_refs (
			id           TEXT PRIMARY KEY,
			source_type  TEXT NOT NULL,
			source_id    TEXT NOT NULL,
			target_type  TEXT NOT NULL,
			target_id    TEXT NOT NULL,
			relationship TEXT NOT NULL,
			created_by   TEXT,
			created_at   TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_refs_source ON entity_refs(source_type, source_id);
		CREATE INDEX IF NOT EXISTS idx_refs_target ON entity_refs(target_type, target_id);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_refs_unique
			ON entity_refs(source_type, source_id, target_type, target_id, relationship);

		CREATE TABLE IF NOT EXISTS training_sessions (
			id           TEXT PRIMARY KEY,
			module_id    TEXT NOT NULL,
			project_path TEXT NOT NULL,
			status       TEXT NOT NULL DEFAULT 'active',
			created_at   TEXT NOT NULL DEFAULT (datetime('now')),
			UNIQUE (module_id, project_path)
		);

		CREATE TABLE IF NOT EXISTS incidents (
			id            TEXT PRIMARY KEY,
			session_id    TEXT NOT NULL,
			type          TEXT NOT NULL,
			severity      TEXT NOT NULL,
			title         TEXT NOT NULL,
			description   TEXT,
			context       TEXT,
			status        TEXT NOT NULL DEFAULT 'open',
			resolution    TEXT,
			created_at    TEXT NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (session_id) REFERENCES training_sessions(id)
		);

		CREATE INDEX IF NOT EXISTS idx_incidents_session ON incidents(session_id, status);

		CREATE TABLE IF NOT EXISTS lessons (
			id            TEXT PRIMARY KEY,
			session_id    TEXT NOT NULL,
			incident_ids  TEXT,
			title         TEXT NOT NULL,
			problem       TEXT NOT NULL,
			root_cause    TEXT NOT NULL,
			solution      TEXT NOT NULL,
			applicability TEXT,
			status        TEXT NOT NULL DEFAULT 'draft',
			approved_by   TEXT,
			approved_at   TEXT,
			created_at    TEXT NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (session_id) REFERENCES training_sessions(id)
		);

		CREATE INDEX IF NOT EXISTS idx_lessons_session ON lessons(session_id, status);

		CREATE TABLE IF NOT EXISTS skills (
			id            TEXT PRIMARY KEY,
			project_path  TEXT NOT NULL,
			name          TEXT NOT NULL,
			description   TEXT,
			lesson_ids    TEXT,
			type          TEXT NOT NULL,
			content       TEXT NOT NULL,
			trigger       TEXT,
			applicability TEXT,
			status        TEXT NOT NULL DEFAULT 'draft',
			usage_count   INTEGER NOT NULL DEFAULT 0,
			created_at    TEXT NOT NULL DEFAULT (datetime('now')),
			UNIQUE (project_path, name)
		);

		CREATE TABLE IF NOT EXISTS rules (
			id            TEXT PRIMARY KEY,
			project_path  TEXT NOT NULL,
			name          TEXT NOT NULL,
			description   TEXT,
			skill_ids     TEXT,
			level         TEXT NOT NULL,
			enforcement   TEXT NOT NULL,
			content       TEXT NOT NULL,
			applicability TEXT,
			status        TEXT NOT NULL DEFAULT 'active',
			created_at    TEXT NOT NULL DEFAULT (datetime('now')),
			UNIQUE (project_path, name)
		);

		CREATE TABLE IF NOT EXISTS feedback (
			id          TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id   TEXT NOT NULL,
			task_id     TEXT,
			outcome     TEXT NOT NULL,
			notes       TEXT,
			created_at  TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_feedback_entity ON feedback(entity_type, entity_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// Truncate shortens a string to at most max bytes with ellipsis. The
// cut lands on a rune boundary so multi-byte text stays valid UTF-8.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// isUniqueViolation checks if an error is a SQLite UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Now returns the current time formatted for SQLite.
func Now() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}
