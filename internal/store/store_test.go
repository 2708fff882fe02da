package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mentor-mcp/mentor/internal/store"
)

// newTestStore creates a Store backed by a temp directory for isolation.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(store.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// seedSession creates the training session most tests hang records off.
func seedSession(t *testing.T, s *store.Store) *store.TrainingSession {
	t.Helper()
	sess, err := s.GetOrCreateSession("auth", "/work/demo")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return sess
}

// ─── New / Initialization ───────────────────────────────────────────────────

func TestNew_CreatesDBFile(t *testing.T) {
	dir := t.TempDir()
	s, err := store.New(store.Config{DataDir: dir})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(dir, "mentor.db")); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}

func TestNew_IdempotentReopen(t *testing.T) {
	dir := t.TempDir()

	s1, err := store.New(store.Config{DataDir: dir})
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	sess, err := s1.GetOrCreateSession("auth", "/work/demo")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	s1.Close()

	s2, err := store.New(store.Config{DataDir: dir})
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s2.Close()

	got, err := s2.GetSession(sess.ID)
	if err != nil {
		t.Fatalf("session not found after reopen: %v", err)
	}
	if got.ModuleID != "auth" {
		t.Errorf("moduleId = %q, want %q", got.ModuleID, "auth")
	}
}

// ─── Entities ───────────────────────────────────────────────────────────────

func TestRegisterEntity_Upsert(t *testing.T) {
	s := newTestStore(t)

	e1, err := s.RegisterEntity(store.RegisterEntityParams{
		Type: "task", ID: "T-1", Title: "Add login form",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if e1.Status != "open" {
		t.Errorf("default status = %q, want open", e1.Status)
	}

	e2, err := s.RegisterEntity(store.RegisterEntityParams{
		Type: "task", ID: "T-1", Title: "Add login form v2", Status: "in_progress",
	})
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if e2.Title != "Add login form v2" {
		t.Errorf("title not updated: %q", e2.Title)
	}
	if e2.Status != "in_progress" {
		t.Errorf("status not updated: %q", e2.Status)
	}
}

func TestRegisterEntity_RejectsTrainingTypes(t *testing.T) {
	s := newTestStore(t)

	for _, typ := range []string{"session", "incident", "lesson", "skill", "rule"} {
		_, err := s.RegisterEntity(store.RegisterEntityParams{Type: typ, ID: "x", Title: "x"})
		if !errors.Is(err, store.ErrConstraint) {
			t.Errorf("type %q: err = %v, want ErrConstraint", typ, err)
		}
	}
}

func TestRegisterEntity_UnknownType(t *testing.T) {
	s := newTestStore(t)
	_, err := s.RegisterEntity(store.RegisterEntityParams{Type: "widget", ID: "x", Title: "x"})
	if !errors.Is(err, store.ErrConstraint) {
		t.Errorf("err = %v, want ErrConstraint", err)
	}
}

func TestGetEntity_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetEntity("task", "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSetEntityStatus(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.RegisterEntity(store.RegisterEntityParams{Type: "task", ID: "T-1", Title: "t"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetEntityStatus("task", "T-1", "completed"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	e, err := s.GetEntity("task", "T-1")
	if err != nil {
		t.Fatal(err)
	}
	if e.Status != "completed" {
		t.Errorf("status = %q, want completed", e.Status)
	}

	if err := s.SetEntityStatus("task", "missing", "completed"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing entity: err = %v, want ErrNotFound", err)
	}
}

// ─── ResolveEntity ──────────────────────────────────────────────────────────

func TestResolveEntity_AllTypes(t *testing.T) {
	s := newTestStore(t)
	sess := seedSession(t, s)

	if _, err := s.RegisterEntity(store.RegisterEntityParams{Type: "knowledge", ID: "K-1", Title: "Auth notes"}); err != nil {
		t.Fatal(err)
	}
	inc, err := s.CreateIncident(store.CreateIncidentParams{
		SessionID: sess.ID, Type: "mistake", Severity: "low", Title: "Broke the build",
	})
	if err != nil {
		t.Fatal(err)
	}
	lesson, err := s.CreateLesson(store.CreateLessonParams{
		SessionID: sess.ID, Title: "Check CI first", Problem: "p", RootCause: "r", Solution: "s",
	})
	if err != nil {
		t.Fatal(err)
	}
	skill, err := s.CreateSkill(store.CreateSkillParams{
		ProjectPath: "/work/demo", Name: "ci-check", Type: "checklist", Content: "run tests",
	})
	if err != nil {
		t.Fatal(err)
	}
	rule, err := s.CreateRule(store.CreateRuleParams{
		ProjectPath: "/work/demo", Name: "no-force-push", Level: "must", Enforcement: "manual", Content: "never force push",
	})
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		typ, id, title string
	}{
		{"knowledge", "K-1", "Auth notes"},
		{"session", sess.ID, "Training session for auth"},
		{"incident", inc.ID, "Broke the build"},
		{"lesson", lesson.ID, "Check CI first"},
		{"skill", skill.ID, "ci-check"},
		{"rule", rule.ID, "no-force-push"},
	}
	for _, tc := range cases {
		sum, err := s.ResolveEntity(tc.typ, tc.id)
		if err != nil {
			t.Errorf("resolve %s/%s: %v", tc.typ, tc.id, err)
			continue
		}
		if sum.Title != tc.title {
			t.Errorf("resolve %s: title = %q, want %q", tc.typ, sum.Title, tc.title)
		}
		if sum.Type != tc.typ {
			t.Errorf("resolve %s: type = %q", tc.typ, sum.Type)
		}
	}
}

func TestResolveEntity_UnknownType(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.ResolveEntity("widget", "x"); !errors.Is(err, store.ErrConstraint) {
		t.Errorf("err = %v, want ErrConstraint", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := store.Truncate("short", 10); got != "short" {
		t.Errorf("short string changed: %q", got)
	}
	if got := store.Truncate("abcdefgh", 5); got != "abcde..." {
		t.Errorf("ascii cut = %q", got)
	}

	// A byte-offset cut inside a multi-byte rune must back up to the
	// rune boundary instead of emitting invalid UTF-8.
	s := strings.Repeat("é", 10)
	got := store.Truncate(s, 5)
	if !utf8.ValidString(got) {
		t.Errorf("truncated string is not valid UTF-8: %q", got)
	}
	if got != "éé..." {
		t.Errorf("multi-byte cut = %q, want %q", got, "éé...")
	}
}
