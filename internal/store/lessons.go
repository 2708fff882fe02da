package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Lesson is a distilled learning: the problem seen, its root cause and
// the solution that worked. Created draft; approve is the only modeled
// status-advancing operation, everything else goes through UpdateLesson.
type Lesson struct {
	ID            string         `json:"id"`
	SessionID     string         `json:"sessionId"`
	IncidentIDs   []string       `json:"incidentIds,omitempty"`
	Title         string         `json:"title"`
	Problem       string         `json:"problem"`
	RootCause     string         `json:"rootCause"`
	Solution      string         `json:"solution"`
	Applicability *Applicability `json:"applicability,omitempty"`
	Status        string         `json:"status"`
	ApprovedBy    string         `json:"approvedBy,omitempty"`
	ApprovedAt    string         `json:"approvedAt,omitempty"`
	CreatedAt     string         `json:"createdAt"`
}

// CreateLessonParams holds the input for authoring a lesson.
type CreateLessonParams struct {
	SessionID     string
	IncidentIDs   []string
	Title         string
	Problem       string
	RootCause     string
	Solution      string
	Applicability *Applicability
}

// UpdateLessonParams holds partial update fields for the generic update
// path (reviewed/archived live here).
type UpdateLessonParams struct {
	Title         *string
	Problem       *string
	RootCause     *string
	Solution      *string
	Applicability *Applicability
	Status        *string
}

var lessonStatuses = map[string]bool{
	"draft": true, "reviewed": true, "approved": true, "archived": true,
}

// CreateLesson persists a new draft lesson. The session must exist.
func (s *Store) CreateLesson(p CreateLessonParams) (*Lesson, error) {
	if p.Title == "" || p.Problem == "" || p.RootCause == "" || p.Solution == "" {
		return nil, fmt.Errorf("%w: title, problem, rootCause and solution are required", ErrConstraint)
	}
	if _, err := s.GetSession(p.SessionID); err != nil {
		return nil, err
	}

	incidentIDs, err := marshalStrings(p.IncidentIDs)
	if err != nil {
		return nil, err
	}
	applicability, err := marshalApplicability(p.Applicability)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	_, err = s.db.Exec(
		`INSERT INTO lessons (id, session_id, incident_ids, title, problem, root_cause, solution, applicability)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.SessionID, incidentIDs, p.Title, p.Problem, p.RootCause, p.Solution, applicability,
	)
	if err != nil {
		return nil, fmt.Errorf("create lesson: %w", err)
	}
	return s.GetLesson(id)
}

// GetLesson retrieves a lesson by ID.
func (s *Store) GetLesson(id string) (*Lesson, error) {
	row := s.db.QueryRow(
		`SELECT id, session_id, incident_ids, title, problem, root_cause, solution,
		        applicability, status, approved_by, approved_at, created_at
		 FROM lessons WHERE id = ?`, id,
	)
	l, err := scanLesson(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("lesson %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// ApproveLesson marks a lesson approved, stamping approver and time.
// Repeated approval overwrites the stamp.
func (s *Store) ApproveLesson(id, approver string) (*Lesson, error) {
	if approver == "" {
		return nil, fmt.Errorf("%w: approver is required", ErrConstraint)
	}
	res, err := s.db.Exec(
		`UPDATE lessons SET status = 'approved', approved_by = ?, approved_at = datetime('now') WHERE id = ?`,
		approver, id,
	)
	if err != nil {
		return nil, fmt.Errorf("approve lesson: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, fmt.Errorf("lesson %q: %w", id, ErrNotFound)
	}
	return s.GetLesson(id)
}

// UpdateLesson applies the generic update path.
func (s *Store) UpdateLesson(id string, p UpdateLessonParams) (*Lesson, error) {
	l, err := s.GetLesson(id)
	if err != nil {
		return nil, err
	}

	title, problem, rootCause, solution := l.Title, l.Problem, l.RootCause, l.Solution
	status := l.Status
	applicability := l.Applicability

	if p.Title != nil {
		title = *p.Title
	}
	if p.Problem != nil {
		problem = *p.Problem
	}
	if p.RootCause != nil {
		rootCause = *p.RootCause
	}
	if p.Solution != nil {
		solution = *p.Solution
	}
	if p.Applicability != nil {
		applicability = p.Applicability
	}
	if p.Status != nil {
		if !lessonStatuses[*p.Status] {
			return nil, fmt.Errorf("%w: unknown lesson status %q", ErrConstraint, *p.Status)
		}
		status = *p.Status
	}

	appJSON, err := marshalApplicability(applicability)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`UPDATE lessons SET title = ?, problem = ?, root_cause = ?, solution = ?, applicability = ?, status = ?
		 WHERE id = ?`,
		title, problem, rootCause, solution, appJSON, status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update lesson: %w", err)
	}
	return s.GetLesson(id)
}

// ListLessons returns lessons, optionally filtered by session and status.
func (s *Store) ListLessons(sessionID, status string) ([]Lesson, error) {
	query := `SELECT id, session_id, incident_ids, title, problem, root_cause, solution,
	                 applicability, status, approved_by, approved_at, created_at
	          FROM lessons WHERE 1=1`
	args := []any{}
	if sessionID != "" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var result []Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *l)
	}
	return result, rows.Err()
}

// RecentApprovedLessons returns the most recently approved lessons for a
// session, newest first.
func (s *Store) RecentApprovedLessons(sessionID string, limit int) ([]Lesson, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.Query(
		`SELECT id, session_id, incident_ids, title, problem, root_cause, solution,
		        applicability, status, approved_by, approved_at, created_at
		 FROM lessons WHERE session_id = ? AND status = 'approved'
		 ORDER BY approved_at DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent lessons: %w", err)
	}
	defer rows.Close()

	var result []Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *l)
	}
	return result, rows.Err()
}

func scanLesson(row rowScanner) (*Lesson, error) {
	var l Lesson
	var incidentIDs, applicability, approvedBy, approvedAt *string
	err := row.Scan(&l.ID, &l.SessionID, &incidentIDs, &l.Title, &l.Problem, &l.RootCause,
		&l.Solution, &applicability, &l.Status, &approvedBy, &approvedAt, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	l.ApprovedBy = derefString(approvedBy)
	l.ApprovedAt = derefString(approvedAt)
	if incidentIDs != nil {
		_ = json.Unmarshal([]byte(*incidentIDs), &l.IncidentIDs)
	}
	if applicability != nil {
		var a Applicability
		if json.Unmarshal([]byte(*applicability), &a) == nil {
			l.Applicability = &a
		}
	}
	return &l, nil
}

func marshalStrings(v []string) (*string, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConstraint, err)
	}
	return nullableString(string(b)), nil
}

func marshalApplicability(a *Applicability) (*string, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("%w: applicability: %v", ErrConstraint, err)
	}
	return nullableString(string(b)), nil
}
