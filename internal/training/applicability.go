package training

import (
	"fmt"

	"github.com/mentor-mcp/mentor/internal/store"
)

// Matches reports whether an applicability declaration covers the query
// (moduleID, role, taskType). Semantics: AND across dimensions, OR
// within a dimension's list; an empty or absent dimension is a wildcard.
// A nil applicability matches everything. An empty query value only
// matches wildcard dimensions.
func Matches(a *store.Applicability, moduleID, role, taskType string) bool {
	if a == nil {
		return true
	}
	return dimensionMatches(a.Modules, moduleID) &&
		dimensionMatches(a.Roles, role) &&
		dimensionMatches(a.TaskTypes, taskType)
}

func dimensionMatches(list []string, value string) bool {
	if len(list) == 0 {
		return true
	}
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

// MatchingRules filters rules down to those whose applicability covers
// the query. Only active rules should be passed in; the filter does not
// re-check status.
func MatchingRules(rules []store.Rule, moduleID, role, taskType string) []store.Rule {
	var out []store.Rule
	for _, r := range rules {
		if Matches(r.Applicability, moduleID, role, taskType) {
			out = append(out, r)
		}
	}
	return out
}

// MatchingSkills filters skills the same way.
func MatchingSkills(skills []store.Skill, moduleID, role, taskType string) []store.Skill {
	var out []store.Skill
	for _, s := range skills {
		if Matches(s.Applicability, moduleID, role, taskType) {
			out = append(out, s)
		}
	}
	return out
}

// RuleText is the canonical form of a rule's content, which callers may
// supply either as a bare string or as an enriched object.
type RuleText struct {
	Rule        string `json:"rule"`
	Rationale   string `json:"rationale,omitempty"`
	Enforcement string `json:"enforcement,omitempty"`
}

// NormalizeRuleText converts the union-typed content field into its
// canonical form. Called once at the tool boundary so nothing downstream
// needs runtime type checks.
func NormalizeRuleText(v any) (RuleText, error) {
	switch c := v.(type) {
	case nil:
		return RuleText{}, fmt.Errorf("rule content is required")
	case string:
		if c == "" {
			return RuleText{}, fmt.Errorf("rule content is required")
		}
		return RuleText{Rule: c}, nil
	case map[string]any:
		rt := RuleText{}
		if s, ok := c["rule"].(string); ok {
			rt.Rule = s
		}
		if s, ok := c["rationale"].(string); ok {
			rt.Rationale = s
		}
		if s, ok := c["enforcement"].(string); ok {
			rt.Enforcement = s
		}
		if rt.Rule == "" {
			return RuleText{}, fmt.Errorf("rule content object must carry a 'rule' field")
		}
		return rt, nil
	default:
		return RuleText{}, fmt.Errorf("rule content must be a string or an object, got %T", v)
	}
}

// Flatten renders the canonical rule text as a single string for storage
// and prompt rendering.
func (r RuleText) Flatten() string {
	out := r.Rule
	if r.Rationale != "" {
		out += "\nRationale: " + r.Rationale
	}
	if r.Enforcement != "" {
		out += "\nEnforcement: " + r.Enforcement
	}
	return out
}

// ParseApplicability converts the loosely-typed applicability argument
// from a tool request into the store type. Missing or empty dimensions
// stay nil (wildcards).
func ParseApplicability(v any) (*store.Applicability, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("applicability must be an object, got %T", v)
	}

	a := &store.Applicability{}
	var err error
	if a.Modules, err = stringList(m["modules"]); err != nil {
		return nil, fmt.Errorf("applicability.modules: %w", err)
	}
	if a.Roles, err = stringList(m["roles"]); err != nil {
		return nil, fmt.Errorf("applicability.roles: %w", err)
	}
	if a.TaskTypes, err = stringList(m["taskTypes"]); err != nil {
		return nil, fmt.Errorf("applicability.taskTypes: %w", err)
	}
	if len(a.Modules) == 0 && len(a.Roles) == 0 && len(a.TaskTypes) == 0 {
		return nil, nil
	}
	return a, nil
}

func stringList(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
	var out []string
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, fmt.Errorf("expected strings, got %T", it)
		}
		out = append(out, s)
	}
	return out, nil
}
