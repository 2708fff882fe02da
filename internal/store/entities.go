package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// Entity is a generic work-entity record: tasks, knowledge documents,
// capabilities, impact analyses and tickets. Training records (sessions,
// incidents, lessons, skills, rules) live in their own tables and are
// surfaced through ResolveEntity alongside these.
type Entity struct {
	Type      string            `json:"type"`
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Summary   string            `json:"summary,omitempty"`
	ModuleID  string            `json:"moduleId,omitempty"`
	Role      string            `json:"role,omitempty"`
	TaskType  string            `json:"taskType,omitempty"`
	Status    string            `json:"status"`
	Detail    map[string]string `json:"detail,omitempty"`
	CreatedAt string            `json:"createdAt"`
	UpdatedAt string            `json:"updatedAt"`
}

// EntitySummary is the uniform view of any entity, regardless of which
// table it lives in. It is what the context assembly engine buckets and
// renders.
type EntitySummary struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Summary   string `json:"summary,omitempty"`
	ModuleID  string `json:"moduleId,omitempty"`
	Role      string `json:"role,omitempty"`
	TaskType  string `json:"taskType,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// RegisterEntityParams holds the input for creating or updating a work
// entity record.
type RegisterEntityParams struct {
	Type     string
	ID       string
	Title    string
	Summary  string
	ModuleID string
	Role     string
	TaskType string
	Status   string
	Detail   map[string]string
}

// workEntityTypes are the types stored in the entities table. The other
// five live in their own tables.
var workEntityTypes = map[string]bool{
	"task": true, "knowledge": true, "capability": true,
	"impact": true, "ticket": true,
}

// RegisterEntity upserts a work entity record. Training entity types are
// rejected: they are created through their own operations.
func (s *Store) RegisterEntity(p RegisterEntityParams) (*Entity, error) {
	if !ValidEntityType(p.Type) {
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrConstraint, p.Type)
	}
	if !workEntityTypes[p.Type] {
		return nil, fmt.Errorf("%w: %q entities are managed by the training pipeline", ErrConstraint, p.Type)
	}
	if p.ID == "" || p.Title == "" {
		return nil, fmt.Errorf("%w: id and title are required", ErrConstraint)
	}

	status := p.Status
	if status == "" {
		status = "open"
	}

	var detail *string
	if len(p.Detail) > 0 {
		b, err := json.Marshal(p.Detail)
		if err != nil {
			return nil, fmt.Errorf("%w: detail: %v", ErrConstraint, err)
		}
		detail = nullableString(string(b))
	}

	_, err := s.db.Exec(
		`INSERT INTO entities (type, id, title, summary, module_id, role, task_type, status, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (type, id) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			module_id = excluded.module_id,
			role = excluded.role,
			task_type = excluded.task_type,
			status = excluded.status,
			detail = excluded.detail,
			updated_at = datetime('now')`,
		p.Type, p.ID, p.Title, nullableString(p.Summary),
		nullableString(p.ModuleID), nullableString(p.Role), nullableString(p.TaskType),
		status, detail,
	)
	if err != nil {
		return nil, fmt.Errorf("register entity: %w", err)
	}
	return s.GetEntity(p.Type, p.ID)
}

// GetEntity retrieves a work entity by type and ID.
func (s *Store) GetEntity(typ, id string) (*Entity, error) {
	row := s.db.QueryRow(
		`SELECT type, id, title, summary, module_id, role, task_type, status, detail, created_at, updated_at
		 FROM entities WHERE type = ? AND id = ?`, typ, id,
	)

	var e Entity
	var summary, moduleID, role, taskType, detail *string
	err := row.Scan(&e.Type, &e.ID, &e.Title, &summary, &moduleID, &role, &taskType,
		&e.Status, &detail, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s %q: %w", typ, id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	e.Summary = derefString(summary)
	e.ModuleID = derefString(moduleID)
	e.Role = derefString(role)
	e.TaskType = derefString(taskType)
	if detail != nil {
		_ = json.Unmarshal([]byte(*detail), &e.Detail)
	}
	return &e, nil
}

// SetEntityStatus updates the status of a work entity.
func (s *Store) SetEntityStatus(typ, id, status string) error {
	res, err := s.db.Exec(
		`UPDATE entities SET status = ?, updated_at = datetime('now') WHERE type = ? AND id = ?`,
		status, typ, id,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%s %q: %w", typ, id, ErrNotFound)
	}
	return nil
}

// ResolveEntity returns the uniform summary of any entity in the closed
// type set, reading from whichever table owns the type.
func (s *Store) ResolveEntity(typ, id string) (*EntitySummary, error) {
	if !ValidEntityType(typ) {
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrConstraint, typ)
	}

	switch typ {
	case "session":
		sess, err := s.GetSession(id)
		if err != nil {
			return nil, err
		}
		return &EntitySummary{
			Type:      "session",
			ID:        sess.ID,
			Title:     fmt.Sprintf("Training session for %s", sess.ModuleID),
			Summary:   sess.ProjectPath,
			ModuleID:  sess.ModuleID,
			Status:    sess.Status,
			CreatedAt: sess.CreatedAt,
		}, nil
	case "incident":
		inc, err := s.GetIncident(id)
		if err != nil {
			return nil, err
		}
		return &EntitySummary{
			Type:      "incident",
			ID:        inc.ID,
			Title:     inc.Title,
			Summary:   Truncate(inc.Description, 200),
			Status:    inc.Status,
			CreatedAt: inc.CreatedAt,
		}, nil
	case "lesson":
		l, err := s.GetLesson(id)
		if err != nil {
			return nil, err
		}
		return &EntitySummary{
			Type:      "lesson",
			ID:        l.ID,
			Title:     l.Title,
			Summary:   Truncate(l.Solution, 200),
			Status:    l.Status,
			CreatedAt: l.CreatedAt,
		}, nil
	case "skill":
		sk, err := s.GetSkill(id)
		if err != nil {
			return nil, err
		}
		return &EntitySummary{
			Type:      "skill",
			ID:        sk.ID,
			Title:     sk.Name,
			Summary:   Truncate(sk.Content, 200),
			Status:    sk.Status,
			CreatedAt: sk.CreatedAt,
		}, nil
	case "rule":
		r, err := s.GetRule(id)
		if err != nil {
			return nil, err
		}
		return &EntitySummary{
			Type:      "rule",
			ID:        r.ID,
			Title:     r.Name,
			Summary:   Truncate(r.Content, 200),
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
		}, nil
	default:
		e, err := s.GetEntity(typ, id)
		if err != nil {
			return nil, err
		}
		return &EntitySummary{
			Type:      e.Type,
			ID:        e.ID,
			Title:     e.Title,
			Summary:   e.Summary,
			ModuleID:  e.ModuleID,
			Role:      e.Role,
			TaskType:  e.TaskType,
			Status:    e.Status,
			CreatedAt: e.CreatedAt,
		}, nil
	}
}
