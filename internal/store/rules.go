package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Rule is an enforceable constraint hardened from skills. Name is unique
// per project path. Created active; the only lifecycle transition is
// deprecation.
type Rule struct {
	ID            string         `json:"id"`
	ProjectPath   string         `json:"projectPath"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	SkillIDs      []string       `json:"skillIds,omitempty"`
	Level         string         `json:"level"`
	Enforcement   string         `json:"enforcement"`
	Content       string         `json:"content"`
	Applicability *Applicability `json:"applicability,omitempty"`
	Status        string         `json:"status"`
	CreatedAt     string         `json:"createdAt"`
}

// CreateRuleParams holds the input for creating a rule.
type CreateRuleParams struct {
	ProjectPath   string
	Name          string
	Description   string
	SkillIDs      []string
	Level         string
	Enforcement   string
	Content       string
	Applicability *Applicability
}

// UpdateRuleParams holds partial update fields.
type UpdateRuleParams struct {
	Description   *string
	Level         *string
	Enforcement   *string
	Content       *string
	Applicability *Applicability
	Status        *string
}

var ruleLevels = map[string]bool{"must": true, "should": true, "may": true}

var ruleEnforcements = map[string]bool{"manual": true, "hook": true, "gate": true}

var ruleStatuses = map[string]bool{"active": true, "deprecated": true}

// CreateRule persists a new active rule. A name collision within the
// project path is ErrDuplicateName.
func (s *Store) CreateRule(p CreateRuleParams) (*Rule, error) {
	if p.ProjectPath == "" || p.Name == "" || p.Content == "" {
		return nil, fmt.Errorf("%w: projectPath, name and content are required", ErrConstraint)
	}
	if !ruleLevels[p.Level] {
		return nil, fmt.Errorf("%w: unknown rule level %q", ErrConstraint, p.Level)
	}
	if !ruleEnforcements[p.Enforcement] {
		return nil, fmt.Errorf("%w: unknown enforcement %q", ErrConstraint, p.Enforcement)
	}

	skillIDs, err := marshalStrings(p.SkillIDs)
	if err != nil {
		return nil, err
	}
	applicability, err := marshalApplicability(p.Applicability)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	_, err = s.db.Exec(
		`INSERT INTO rules (id, project_path, name, description, skill_ids, level, enforcement, content, applicability)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.ProjectPath, p.Name, nullableString(p.Description), skillIDs,
		p.Level, p.Enforcement, p.Content, applicability,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("rule %q already exists in %s: %w", p.Name, p.ProjectPath, ErrDuplicateName)
		}
		return nil, fmt.Errorf("create rule: %w", err)
	}
	return s.GetRule(id)
}

// GetRule retrieves a rule by ID.
func (s *Store) GetRule(id string) (*Rule, error) {
	row := s.db.QueryRow(ruleSelect+` WHERE id = ?`, id)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("rule %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateRule applies partial updates, including deprecation.
func (s *Store) UpdateRule(id string, p UpdateRuleParams) (*Rule, error) {
	r, err := s.GetRule(id)
	if err != nil {
		return nil, err
	}

	description, level, enforcement, content := r.Description, r.Level, r.Enforcement, r.Content
	applicability := r.Applicability
	status := r.Status

	if p.Description != nil {
		description = *p.Description
	}
	if p.Level != nil {
		if !ruleLevels[*p.Level] {
			return nil, fmt.Errorf("%w: unknown rule level %q", ErrConstraint, *p.Level)
		}
		level = *p.Level
	}
	if p.Enforcement != nil {
		if !ruleEnforcements[*p.Enforcement] {
			return nil, fmt.Errorf("%w: unknown enforcement %q", ErrConstraint, *p.Enforcement)
		}
		enforcement = *p.Enforcement
	}
	if p.Content != nil {
		content = *p.Content
	}
	if p.Applicability != nil {
		applicability = p.Applicability
	}
	if p.Status != nil {
		if !ruleStatuses[*p.Status] {
			return nil, fmt.Errorf("%w: unknown rule status %q", ErrConstraint, *p.Status)
		}
		status = *p.Status
	}

	appJSON, err := marshalApplicability(applicability)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`UPDATE rules SET description = ?, level = ?, enforcement = ?, content = ?, applicability = ?, status = ?
		 WHERE id = ?`,
		nullableString(description), level, enforcement, content, appJSON, status, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}
	return s.GetRule(id)
}

// ListRules returns rules for a project, optionally filtered by status.
func (s *Store) ListRules(projectPath, status string) ([]Rule, error) {
	query := ruleSelect + ` WHERE 1=1`
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
	return s.queryRules(query, args...)
}

// ActiveRules returns the active rules for a project.
func (s *Store) ActiveRules(projectPath string) ([]Rule, error) {
	return s.ListRules(projectPath, "active")
}

const ruleSelect = `SELECT id, project_path, name, description, skill_ids, level, enforcement,
                           content, applicability, status, created_at
                    FROM rules`

func (s *Store) queryRules(query string, args ...any) ([]Rule, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var result []Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

func scanRule(row rowScanner) (*Rule, error) {
	var r Rule
	var description, skillIDs, applicability *string
	err := row.Scan(&r.ID, &r.ProjectPath, &r.Name, &description, &skillIDs, &r.Level,
		&r.Enforcement, &r.Content, &applicability, &r.Status, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Description = derefString(description)
	if skillIDs != nil {
		_ = json.Unmarshal([]byte(*skillIDs), &r.SkillIDs)
	}
	if applicability != nil {
		var a Applicability
		if json.Unmarshal([]byte(*applicability), &a) == nil {
			r.Applicability = &a
		}
	}
	return &r, nil
}
