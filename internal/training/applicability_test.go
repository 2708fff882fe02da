package training

import (
	"testing"

	"github.com/mentor-mcp/mentor/internal/store"
)

func TestMatches_NilMatchesEverything(t *testing.T) {
	if !Matches(nil, "auth", "backend", "feature") {
		t.Error("nil applicability should match any query")
	}
	if !Matches(nil, "", "", "") {
		t.Error("nil applicability should match the empty query")
	}
}

func TestMatches_EmptyDimensionIsWildcard(t *testing.T) {
	a := &store.Applicability{Modules: []string{}, Roles: []string{"backend"}}
	if !Matches(a, "anything", "backend", "whatever") {
		t.Error("empty modules list should match any moduleId")
	}
}

func TestMatches_AndAcrossDimensionsOrWithin(t *testing.T) {
	a := &store.Applicability{
		Modules: []string{"auth", "billing"},
		Roles:   []string{"backend"},
	}

	if !Matches(a, "billing", "backend", "") {
		t.Error("OR within modules list failed")
	}
	if Matches(a, "auth", "frontend", "") {
		t.Error("AND across dimensions failed: wrong role should not match")
	}
	if Matches(a, "search", "backend", "") {
		t.Error("moduleId outside the list should not match")
	}
}

func TestMatches_EmptyQueryValueOnlyMatchesWildcard(t *testing.T) {
	a := &store.Applicability{Roles: []string{"backend"}}
	if Matches(a, "", "", "") {
		t.Error("empty role should not match a populated roles dimension")
	}
}

func TestMatchingRules_Filters(t *testing.T) {
	rules := []store.Rule{
		{Name: "everywhere"},
		{Name: "auth-only", Applicability: &store.Applicability{Modules: []string{"auth"}}},
		{Name: "billing-only", Applicability: &store.Applicability{Modules: []string{"billing"}}},
	}
	got := MatchingRules(rules, "auth", "", "")
	if len(got) != 2 {
		t.Fatalf("got %d rules, want 2", len(got))
	}
	if got[0].Name != "everywhere" || got[1].Name != "auth-only" {
		t.Errorf("wrong rules matched: %v", got)
	}
}

// ─── NormalizeRuleText ──────────────────────────────────────────────────────

func TestNormalizeRuleText_String(t *testing.T) {
	rt, err := NormalizeRuleText("never force push")
	if err != nil {
		t.Fatal(err)
	}
	if rt.Rule != "never force push" {
		t.Errorf("rule = %q", rt.Rule)
	}
	if rt.Flatten() != "never force push" {
		t.Errorf("flatten = %q", rt.Flatten())
	}
}

func TestNormalizeRuleText_Object(t *testing.T) {
	rt, err := NormalizeRuleText(map[string]any{
		"rule":        "never force push",
		"rationale":   "history must stay immutable",
		"enforcement": "pre-push hook",
	})
	if err != nil {
		t.Fatal(err)
	}
	flat := rt.Flatten()
	want := "never force push\nRationale: history must stay immutable\nEnforcement: pre-push hook"
	if flat != want {
		t.Errorf("flatten = %q, want %q", flat, want)
	}
}

func TestNormalizeRuleText_Invalid(t *testing.T) {
	if _, err := NormalizeRuleText(nil); err == nil {
		t.Error("nil content should be rejected")
	}
	if _, err := NormalizeRuleText(""); err == nil {
		t.Error("empty string should be rejected")
	}
	if _, err := NormalizeRuleText(map[string]any{"rationale": "no rule"}); err == nil {
		t.Error("object without rule field should be rejected")
	}
	if _, err := NormalizeRuleText(42); err == nil {
		t.Error("number should be rejected")
	}
}

// ─── ParseApplicability ─────────────────────────────────────────────────────

func TestParseApplicability(t *testing.T) {
	a, err := ParseApplicability(map[string]any{
		"modules": []any{"auth"},
		"roles":   []any{"backend", "fullstack"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Modules) != 1 || len(a.Roles) != 2 || a.TaskTypes != nil {
		t.Errorf("parsed wrong: %+v", a)
	}
}

func TestParseApplicability_AllEmptyIsNil(t *testing.T) {
	a, err := ParseApplicability(map[string]any{"modules": []any{}})
	if err != nil {
		t.Fatal(err)
	}
	if a != nil {
		t.Errorf("all-empty applicability should collapse to nil, got %+v", a)
	}

	a, err = ParseApplicability(nil)
	if err != nil || a != nil {
		t.Errorf("nil input should yield nil, got %+v, %v", a, err)
	}
}

func TestParseApplicability_Invalid(t *testing.T) {
	if _, err := ParseApplicability("not an object"); err == nil {
		t.Error("string should be rejected")
	}
	if _, err := ParseApplicability(map[string]any{"modules": []any{1, 2}}); err == nil {
		t.Error("non-string list entries should be rejected")
	}
}
