package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// TrainingSession groups the incidents and lessons collected while an
// agent works on one module of one project. At most one session exists
// per (moduleId, projectPath) pair.
type TrainingSession struct {
	ID          string `json:"id"`
	ModuleID    string `json:"moduleId"`
	ProjectPath string `json:"projectPath"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
}

// GetOrCreateSession returns the session for (moduleID, projectPath),
// creating it on first use. Idempotent: repeated calls return the same
// session ID. The INSERT OR IGNORE makes concurrent first calls converge
// on one row.
func (s *Store) GetOrCreateSession(moduleID, projectPath string) (*TrainingSession, error) {
	if moduleID == "" || projectPath == "" {
		return nil, fmt.Errorf("%w: moduleId and projectPath are required", ErrConstraint)
	}

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO training_sessions (id, module_id, project_path) VALUES (?, ?, ?)`,
		uuid.New().String(), moduleID, projectPath,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT id, module_id, project_path, status, created_at
		 FROM training_sessions WHERE module_id = ? AND project_path = ?`,
		moduleID, projectPath,
	)
	var sess TrainingSession
	if err := row.Scan(&sess.ID, &sess.ModuleID, &sess.ProjectPath, &sess.Status, &sess.CreatedAt); err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return &sess, nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(id string) (*TrainingSession, error) {
	row := s.db.QueryRow(
		`SELECT id, module_id, project_path, status, created_at FROM training_sessions WHERE id = ?`, id,
	)
	var sess TrainingSession
	err := row.Scan(&sess.ID, &sess.ModuleID, &sess.ProjectPath, &sess.Status, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// ListSessions returns sessions, optionally filtered by project path.
func (s *Store) ListSessions(projectPath string) ([]TrainingSession, error) {
	query := `SELECT id, module_id, project_path, status, created_at FROM training_sessions`
	args := []any{}
	if projectPath != "" {
		query += " WHERE project_path = ?"
		args = append(args, projectPath)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var result []TrainingSession
	for rows.Next() {
		var sess TrainingSession
		if err := rows.Scan(&sess.ID, &sess.ModuleID, &sess.ProjectPath, &sess.Status, &sess.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

// ArchiveSession marks a session archived. Incidents and lessons keep
// pointing at it.
func (s *Store) ArchiveSession(id string) error {
	res, err := s.db.Exec(`UPDATE training_sessions SET status = 'archived' WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	return nil
}
