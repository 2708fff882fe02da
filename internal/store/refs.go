package store

import (
	"fmt"

	"github.com/google/uuid"
)

// EntityReference is a directed, typed edge between two entities. The
// graph is stored as a flat edge table; traversal is a query plus an
// in-memory visited set (see internal/assemble).
type EntityReference struct {
	ID           string `json:"id"`
	SourceType   string `json:"sourceType"`
	SourceID     string `json:"sourceId"`
	TargetType   string `json:"targetType"`
	TargetID     string `json:"targetId"`
	Relationship string `json:"relationship"`
	CreatedBy    string `json:"createdBy,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

// CreateReferenceParams holds the input for creating a reference.
type CreateReferenceParams struct {
	SourceType   string
	SourceID     string
	TargetType   string
	TargetID     string
	Relationship string
	CreatedBy    string
}

// RefFilter selects references. Empty fields match everything.
type RefFilter struct {
	SourceType   string
	SourceID     string
	TargetType   string
	TargetID     string
	Relationship string
}

// CreateReference creates a directed edge, or no-ops when the
// (source, target, relationship) triple already exists. Callers link work
// artifacts speculatively, so a duplicate is success, never an error,
// including when two callers race on the same edge (the unique index
// arbitrates).
func (s *Store) CreateReference(p CreateReferenceParams) (*EntityReference, bool, error) {
	if !ValidEntityType(p.SourceType) {
		return nil, false, fmt.Errorf("%w: unknown source type %q", ErrConstraint, p.SourceType)
	}
	if !ValidEntityType(p.TargetType) {
		return nil, false, fmt.Errorf("%w: unknown target type %q", ErrConstraint, p.TargetType)
	}
	if p.SourceID == "" || p.TargetID == "" || p.Relationship == "" {
		return nil, false, fmt.Errorf("%w: source id, target id and relationship are required", ErrConstraint)
	}

	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO entity_refs (id, source_type, source_id, target_type, target_id, relationship, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), p.SourceType, p.SourceID, p.TargetType, p.TargetID,
		p.Relationship, nullableString(p.CreatedBy),
	)
	if err != nil {
		return nil, false, fmt.Errorf("create reference: %w", err)
	}

	n, _ := res.RowsAffected()
	created := n > 0

	refs, err := s.QueryReferences(RefFilter{
		SourceType:   p.SourceType,
		SourceID:     p.SourceID,
		TargetType:   p.TargetType,
		TargetID:     p.TargetID,
		Relationship: p.Relationship,
	})
	if err != nil {
		return nil, created, err
	}
	if len(refs) == 0 {
		return nil, created, fmt.Errorf("reference vanished after insert: %w", ErrNotFound)
	}
	return &refs[0], created, nil
}

// QueryReferences returns edges matching the filter. Order is stable
// within a single store snapshot (creation order).
func (s *Store) QueryReferences(f RefFilter) ([]EntityReference, error) {
	query := `SELECT id, source_type, source_id, target_type, target_id, relationship,
	                 COALESCE(created_by, ''), created_at
	          FROM entity_refs WHERE 1=1`
	args := []any{}

	if f.SourceType != "" {
		query += " AND source_type = ?"
		args = append(args, f.SourceType)
	}
	if f.SourceID != "" {
		query += " AND source_id = ?"
		args = append(args, f.SourceID)
	}
	if f.TargetType != "" {
		query += " AND target_type = ?"
		args = append(args, f.TargetType)
	}
	if f.TargetID != "" {
		query += " AND target_id = ?"
		args = append(args, f.TargetID)
	}
	if f.Relationship != "" {
		query += " AND relationship = ?"
		args = append(args, f.Relationship)
	}

	query += " ORDER BY created_at ASC, id ASC"
	return s.scanRefs(query, args...)
}

// ReferencesTouching returns every edge where the entity is source or
// target. This is the traversal query used by context assembly: edges are
// followed in both directions.
func (s *Store) ReferencesTouching(typ, id string) ([]EntityReference, error) {
	return s.scanRefs(
		`SELECT id, source_type, source_id, target_type, target_id, relationship,
		        COALESCE(created_by, ''), created_at
		 FROM entity_refs
		 WHERE (source_type = ? AND source_id = ?) OR (target_type = ? AND target_id = ?)
		 ORDER BY created_at ASC, id ASC`,
		typ, id, typ, id,
	)
}

func (s *Store) scanRefs(query string, args ...any) ([]EntityReference, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query references: %w", err)
	}
	defer rows.Close()

	var result []EntityReference
	for rows.Next() {
		var r EntityReference
		if err := rows.Scan(&r.ID, &r.SourceType, &r.SourceID, &r.TargetType, &r.TargetID,
			&r.Relationship, &r.CreatedBy, &r.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
