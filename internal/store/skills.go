package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// SkillTrigger declares when a skill should fire.
type SkillTrigger struct {
	When       string   `json:"when,omitempty"` // always|task_start|task_end|before_commit|on_error
	Conditions []string `json:"conditions,omitempty"`
}

// Skill is a reusable procedure, checklist, template or rule distilled
// from approved lessons. Name is unique per project path. UsageCount
// increments only via feedback submission.
type Skill struct {
	ID            string         `json:"id"`
	ProjectPath   string         `json:"projectPath"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	LessonIDs     []string       `json:"lessonIds,omitempty"`
	Type          string         `json:"type"`
	Content       string         `json:"content"`
	Trigger       *SkillTrigger  `json:"trigger,omitempty"`
	Applicability *Applicability `json:"applicability,omitempty"`
	Status        string         `json:"status"`
	UsageCount    int            `json:"usageCount"`
	CreatedAt     string         `json:"createdAt"`
}

// CreateSkillParams holds the input for creating a skill.
type CreateSkillParams struct {
	ProjectPath   string
	Name          string
	Description   string
	LessonIDs     []string
	Type          string
	Content       string
	Trigger       *SkillTrigger
	Applicability *Applicability
}

// UpdateSkillParams holds partial update fields. Any status may be set
// directly on update.
type UpdateSkillParams struct {
	Description   *string
	Content       *string
	Trigger       *SkillTrigger
	Applicability *Applicability
	Status        *string
}

var skillTypes = map[string]bool{
	"procedure": true, "checklist": true, "template": true, "rule": true,
}

var skillStatuses = map[string]bool{
	"draft": true, "active": true, "deprecated": true,
}

var triggerWhens = map[string]bool{
	"": true, "always": true, "task_start": true, "task_end": true,
	"before_commit": true, "on_error": true,
}

// CreateSkill persists a new draft skill. A name collision within the
// project path is ErrDuplicateName; the same name in another project is
// fine.
func (s *Store) CreateSkill(p CreateSkillParams) (*Skill, error) {
	if p.ProjectPath == "" || p.Name == "" || p.Content == "" {
		return nil, fmt.Errorf("%w: projectPath, name and content are required", ErrConstraint)
	}
	if !skillTypes[p.Type] {
		return nil, fmt.Errorf("%w: unknown skill type %q", ErrConstraint, p.Type)
	}
	if p.Trigger != nil && !triggerWhens[p.Trigger.When] {
		return nil, fmt.Errorf("%w: unknown trigger %q", ErrConstraint, p.Trigger.When)
	}

	lessonIDs, err := marshalStrings(p.LessonIDs)
	if err != nil {
		return nil, err
	}
	applicability, err := marshalApplicability(p.Applicability)
	if err != nil {
		return nil, err
	}
	var trigger *string
	if p.Trigger != nil {
		b, err := json.Marshal(p.Trigger)
		if err != nil {
			return nil, fmt.Errorf("%w: trigger: %v", ErrConstraint, err)
		}
		trigger = nullableString(string(b))
	}

	id := uuid.New().String()
	_, err = s.db.Exec(
		`INSERT INTO skills (id, project_path, name, description, lesson_ids, type, content, trigger, applicability)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.ProjectPath, p.Name, nullableString(p.Description), lessonIDs,
		p.Type, p.Content, trigger, applicability,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("skill %q already exists in %s: %w", p.Name, p.ProjectPath, ErrDuplicateName)
		}
		return nil, fmt.Errorf("create skill: %w", err)
	}
	return s.GetSkill(id)
}

// GetSkill retrieves a skill by ID.
func (s *Store) GetSkill(id string) (*Skill, error) {
	row := s.db.QueryRow(skillSelect+` WHERE id = ?`, id)
	sk, err := scanSkill(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("skill %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return sk, nil
}

// UpdateSkill applies partial updates, including direct status changes.
func (s *Store) UpdateSkill(id string, p UpdateSkillParams) (*Skill, error) {
	sk, err := s.GetSkill(id)
	if err != nil {
		return nil, err
	}

	description, content := sk.Description, sk.Content
	trigger, applicability := sk.Trigger, sk.Applicability
	status := sk.Status

	if p.Description != nil {
		description = *p.Description
	}
	if p.Content != nil {
		content = *p.Content
	}
	if p.Trigger != nil {
		if !triggerWhens[p.Trigger.When] {
			return nil, fmt.Errorf("%w: unknown trigger %q", ErrConstraint, p.Trigger.When)
		}
		trigger = p.Trigger
	}
	if p.Applicability != nil {
		applicability = p.Applicability
	}
	if p.Status != nil {
		if !skillStatuses[*p.Status] {
			return nil, fmt.Errorf("%w: unknown skill status %q", ErrConstraint, *p.Status)
		}
		status = *p.Status
	}

	appJSON, err := marshalApplicability(applicability)
	if err != nil {
		return nil, err
	}
	var triggerJSON *string
	if trigger != nil {
		b, err := json.Marshal(trigger)
		if err != nil {
			return nil, fmt.Errorf("%w: trigger: %v", ErrConstraint, err)
		}
		triggerJSON = nullableString(string(b))
	}

	_, err = s.db.Exec(
		`UPDATE skills SET description = ?, content = ?, trigger = ?, applicability = ?, status = ?
		 WHERE id = ?`,
		nullableString(description), content, triggerJSON, appJSON, status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update skill: %w", err)
	}
	return s.GetSkill(id)
}

// ListSkills returns skills for a project, optionally filtered by status.
func (s *Store) ListSkills(projectPath, status string) ([]Skill, error) {
	query := skillSelect + ` WHERE 1=1`
	args := []any{}
	if projectPath != "" {
		query += " AND project_path = ?"
		args = append(args, projectPath)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"
	return s.querySkills(query, args...)
}

// ActiveSkills returns the active skills for a project. Applicability
// filtering happens above the store.
func (s *Store) ActiveSkills(projectPath string) ([]Skill, error) {
	return s.ListSkills(projectPath, "active")
}

const skillSelect = `SELECT id, project_path, name, description, lesson_ids, type, content,
                            trigger, applicability, status, usage_count, created_at
                     FROM skills`

func (s *Store) querySkills(query string, args ...any) ([]Skill, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query skills: %w", err)
	}
	defer rows.Close()

	var result []Skill
	for rows.Next() {
		sk, err := scanSkill(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *sk)
	}
	return result, rows.Err()
}

func scanSkill(row rowScanner) (*Skill, error) {
	var sk Skill
	var description, lessonIDs, trigger, applicability *string
	err := row.Scan(&sk.ID, &sk.ProjectPath, &sk.Name, &description, &lessonIDs, &sk.Type,
		&sk.Content, &trigger, &applicability, &sk.Status, &sk.UsageCount, &sk.CreatedAt)
	if err != nil {
		return nil, err
	}
	sk.Description = derefString(description)
	if lessonIDs != nil {
		_ = json.Unmarshal([]byte(*lessonIDs), &sk.LessonIDs)
	}
	if trigger != nil {
		var t SkillTrigger
		if json.Unmarshal([]byte(*trigger), &t) == nil {
			sk.Trigger = &t
		}
	}
	if applicability != nil {
		var a Applicability
		if json.Unmarshal([]byte(*applicability), &a) == nil {
			sk.Applicability = &a
		}
	}
	return &sk, nil
}
