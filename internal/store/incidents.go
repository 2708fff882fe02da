package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// IncidentContext captures what the agent was doing when the incident
// occurred.
type IncidentContext struct {
	TaskID       string   `json:"taskId,omitempty"`
	AgentRole    string   `json:"agentRole,omitempty"`
	Files        []string `json:"files,omitempty"`
	Commands     []string `json:"commands,omitempty"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
}

// Incident is a reported mistake, failure, confusion or slowdown.
// Lifecycle: created open; any named status is reachable directly from
// open via explicit update, so triage can jump straight to closed.
type Incident struct {
	ID          string           `json:"id"`
	SessionID   string           `json:"sessionId"`
	Type        string           `json:"type"`
	Severity    string           `json:"severity"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Context     *IncidentContext `json:"context,omitempty"`
	Status      string           `json:"status"`
	Resolution  string           `json:"resolution,omitempty"`
	CreatedAt   string           `json:"createdAt"`
}

// CreateIncidentParams holds the input for reporting an incident.
type CreateIncidentParams struct {
	SessionID   string
	Type        string
	Severity    string
	Title       string
	Description string
	Context     *IncidentContext
}

// UpdateIncidentParams holds partial update fields. Nil means unchanged.
type UpdateIncidentParams struct {
	Status     *string
	Resolution *string
}

var incidentTypes = map[string]bool{
	"mistake": true, "failure": true, "confusion": true, "slow": true, "other": true,
}

var severities = map[string]bool{
	"low": true, "medium": true, "high": true, "critical": true,
}

var incidentStatuses = map[string]bool{
	"open": true, "analyzed": true, "lesson_created": true, "closed": true,
}

// CreateIncident persists a new incident with status open. The session
// must exist.
func (s *Store) CreateIncident(p CreateIncidentParams) (*Incident, error) {
	if p.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrConstraint)
	}
	if !incidentTypes[p.Type] {
		return nil, fmt.Errorf("%w: unknown incident type %q", ErrConstraint, p.Type)
	}
	if !severities[p.Severity] {
		return nil, fmt.Errorf("%w: unknown severity %q", ErrConstraint, p.Severity)
	}
	if _, err := s.GetSession(p.SessionID); err != nil {
		return nil, err
	}

	var contextJSON *string
	if p.Context != nil {
		b, err := json.Marshal(p.Context)
		if err != nil {
			return nil, fmt.Errorf("%w: context: %v", ErrConstraint, err)
		}
		contextJSON = nullableString(string(b))
	}

	id := uuid.New().String()
	_, err := s.db.Exec(
		`INSERT INTO incidents (id, session_id, type, severity, title, description, context)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, p.SessionID, p.Type, p.Severity, p.Title, nullableString(p.Description), contextJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}
	return s.GetIncident(id)
}

// GetIncident retrieves an incident by ID.
func (s *Store) GetIncident(id string) (*Incident, error) {
	row := s.db.QueryRow(
		`SELECT id, session_id, type, severity, title, description, context, status, resolution, created_at
		 FROM incidents WHERE id = ?`, id,
	)
	inc, err := scanIncident(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("incident %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return inc, nil
}

// UpdateIncident applies an explicit status/resolution transition. There
// are no implicit transitions: creating a lesson from an incident does
// not change the incident; the caller decides.
func (s *Store) UpdateIncident(id string, p UpdateIncidentParams) (*Incident, error) {
	inc, err := s.GetIncident(id)
	if err != nil {
		return nil, err
	}

	status := inc.Status
	if p.Status != nil {
		if !incidentStatuses[*p.Status] {
			return nil, fmt.Errorf("%w: unknown incident status %q", ErrConstraint, *p.Status)
		}
		status = *p.Status
	}
	resolution := inc.Resolution
	if p.Resolution != nil {
		resolution = *p.Resolution
	}

	_, err = s.db.Exec(
		`UPDATE incidents SET status = ?, resolution = ? WHERE id = ?`,
		status, nullableString(resolution), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return s.GetIncident(id)
}

// ListIncidents returns incidents for a session, optionally filtered by
// status. Empty sessionID lists across all sessions.
func (s *Store) ListIncidents(sessionID, status string) ([]Incident, error) {
	query := `SELECT id, session_id, type, severity, title, description, context, status, resolution, created_at
	          FROM incidents WHERE 1=1`
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
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var result []Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *inc)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (*Incident, error) {
	var inc Incident
	var description, contextJSON, resolution *string
	err := row.Scan(&inc.ID, &inc.SessionID, &inc.Type, &inc.Severity, &inc.Title,
		&description, &contextJSON, &inc.Status, &resolution, &inc.CreatedAt)
	if err != nil {
		return nil, err
	}
	inc.Description = derefString(description)
	inc.Resolution = derefString(resolution)
	if contextJSON != nil {
		var ctx IncidentContext
		if json.Unmarshal([]byte(*contextJSON), &ctx) == nil {
			inc.Context = &ctx
		}
	}
	return &inc, nil
}
