package store

import (
	"fmt"

	"github.com/google/uuid"
)

// Feedback records how a skill or rule worked out in practice. Append
// only: feedback is never updated or deleted, and never mutates the
// status of the skill or rule it targets.
type Feedback struct {
	ID         string `json:"id"`
	EntityType string `json:"entityType"` // skill|rule
	EntityID   string `json:"entityId"`
	TaskID     string `json:"taskId,omitempty"`
	Outcome    string `json:"outcome"` // helped|ignored|hindered
	Notes      string `json:"notes,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

// SubmitFeedbackParams holds the input for recording feedback.
type SubmitFeedbackParams struct {
	EntityType string
	EntityID   string
	TaskID     string
	Outcome    string
	Notes      string
}

var feedbackOutcomes = map[string]bool{"helped": true, "ignored": true, "hindered": true}

// SubmitFeedback appends a feedback record. For skills, the skill's
// usage count is incremented in the same transaction; rules are never
// counted.
func (s *Store) SubmitFeedback(p SubmitFeedbackParams) (*Feedback, error) {
	if p.EntityType != "skill" && p.EntityType != "rule" {
		return nil, fmt.Errorf("%w: feedback entity type must be skill or rule, got %q", ErrConstraint, p.EntityType)
	}
	if !feedbackOutcomes[p.Outcome] {
		return nil, fmt.Errorf("%w: unknown outcome %q", ErrConstraint, p.Outcome)
	}

	// The target must exist so feedback never dangles.
	if p.EntityType == "skill" {
		if _, err := s.GetSkill(p.EntityID); err != nil {
			return nil, err
		}
	} else {
		if _, err := s.GetRule(p.EntityID); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("submit feedback: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	id := uuid.New().String()
	_, err = tx.Exec(
		`INSERT INTO feedback (id, entity_type, entity_id, task_id, outcome, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, p.EntityType, p.EntityID, nullableString(p.TaskID), p.Outcome, nullableString(p.Notes),
	)
	if err != nil {
		return nil, fmt.Errorf("submit feedback: %w", err)
	}

	if p.EntityType == "skill" {
		if _, err := tx.Exec(`UPDATE skills SET usage_count = usage_count + 1 WHERE id = ?`, p.EntityID); err != nil {
			return nil, fmt.Errorf("submit feedback: usage count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("submit feedback: commit: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT id, entity_type, entity_id, COALESCE(task_id, ''), outcome, COALESCE(notes, ''), created_at
		 FROM feedback WHERE id = ?`, id,
	)
	var f Feedback
	if err := row.Scan(&f.ID, &f.EntityType, &f.EntityID, &f.TaskID, &f.Outcome, &f.Notes, &f.CreatedAt); err != nil {
		return nil, fmt.Errorf("read feedback: %w", err)
	}
	return &f, nil
}

// ListFeedback returns feedback for one skill or rule, oldest first.
func (s *Store) ListFeedback(entityType, entityID string) ([]Feedback, error) {
	rows, err := s.db.Query(
		`SELECT id, entity_type, entity_id, COALESCE(task_id, ''), outcome, COALESCE(notes, ''), created_at
		 FROM feedback WHERE entity_type = ? AND entity_id = ?
		 ORDER BY created_at ASC`,
		entityType, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var result []Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.EntityType, &f.EntityID, &f.TaskID, &f.Outcome, &f.Notes, &f.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}
