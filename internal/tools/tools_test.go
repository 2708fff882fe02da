package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mentor-mcp/mentor/internal/assemble"
	"github.com/mentor-mcp/mentor/internal/store"
	"github.com/mentor-mcp/mentor/internal/training"
)

// ─── Test helpers ───────────────────────────────────────────────────────────

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(store.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// decode parses the JSON body every handler returns.
func decode(t *testing.T, r *mcp.CallToolResult) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &body); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, resultText(r))
	}
	return body
}

// toolHandler is the shape every tool in this package shares.
type toolHandler interface {
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// callOK invokes a handler and fails the test unless success=true.
func callOK(t *testing.T, h toolHandler, args map[string]interface{}) map[string]any {
	t.Helper()
	res, err := h.Handle(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("handler returned transport error: %v", err)
	}
	body := decode(t, res)
	if body["success"] != true {
		t.Fatalf("expected success, got: %v", body)
	}
	return body
}

// callFail invokes a handler and fails the test unless success=false,
// returning the error message.
func callFail(t *testing.T, h toolHandler, args map[string]interface{}) string {
	t.Helper()
	res, err := h.Handle(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("handler returned transport error: %v", err)
	}
	body := decode(t, res)
	if body["success"] != false {
		t.Fatalf("expected failure, got: %v", body)
	}
	msg, _ := body["error"].(string)
	if msg == "" {
		t.Fatal("failure result carries no error message")
	}
	return msg
}

func seedSessionID(t *testing.T, s *store.Store) string {
	t.Helper()
	sess, err := s.GetOrCreateSession("auth", "/work/demo")
	if err != nil {
		t.Fatal(err)
	}
	return sess.ID
}

// ─── Entity tools ───────────────────────────────────────────────────────────

func TestEntityRegisterTool_Definition(t *testing.T) {
	tool := NewEntityRegisterTool(newTestStore(t))
	def := tool.Definition()

	if def.Name != "entity_register" {
		t.Errorf("tool name = %q", def.Name)
	}
	props := def.InputSchema.Properties
	for _, p := range []string{"entityType", "entityId", "title"} {
		if _, ok := props[p]; !ok {
			t.Errorf("missing %q parameter", p)
		}
	}
}

func TestEntityLinkTool_DuplicateIsSuccess(t *testing.T) {
	s := newTestStore(t)
	reg := NewEntityRegisterTool(s)
	link := NewEntityLinkTool(s)

	for _, id := range []string{"T-1", "T-2"} {
		callOK(t, reg, map[string]interface{}{
			"entityType": "task", "entityId": id, "title": id,
		})
	}

	args := map[string]interface{}{
		"sourceType": "task", "sourceId": "T-1",
		"targetType": "task", "targetId": "T-2",
		"relationship": "blocks",
	}
	body := callOK(t, link, args)
	if body["created"] != true {
		t.Error("first link should report created=true")
	}

	body = callOK(t, link, args)
	if body["created"] != false {
		t.Error("duplicate link should still succeed with created=false")
	}
}

func TestEntityReferencesTool_Filter(t *testing.T) {
	s := newTestStore(t)
	reg := NewEntityRegisterTool(s)
	link := NewEntityLinkTool(s)
	refs := NewEntityReferencesTool(s)

	for _, id := range []string{"T-1", "T-2"} {
		callOK(t, reg, map[string]interface{}{
			"entityType": "task", "entityId": id, "title": id,
		})
	}
	callOK(t, link, map[string]interface{}{
		"sourceType": "task", "sourceId": "T-1",
		"targetType": "task", "targetId": "T-2",
		"relationship": "blocks",
	})

	body := callOK(t, refs, map[string]interface{}{
		"sourceType": "task", "sourceId": "T-1",
	})
	list, _ := body["references"].([]any)
	if len(list) != 1 {
		t.Errorf("references = %v", body["references"])
	}
}

// ─── Session tools ──────────────────────────────────────────────────────────

func TestSessionGetTool_Idempotent(t *testing.T) {
	tool := NewSessionGetTool(newTestStore(t))
	args := map[string]interface{}{"moduleId": "auth", "projectPath": "/work/demo"}

	b1 := callOK(t, tool, args)
	b2 := callOK(t, tool, args)

	id1 := b1["session"].(map[string]any)["id"]
	id2 := b2["session"].(map[string]any)["id"]
	if id1 != id2 {
		t.Errorf("session ids differ: %v vs %v", id1, id2)
	}
}

func TestSessionGetTool_MissingArgs(t *testing.T) {
	tool := NewSessionGetTool(newTestStore(t))
	callFail(t, tool, map[string]interface{}{
		"moduleId": "auth",
	})
}

// ─── Incident tools ─────────────────────────────────────────────────────────

func TestIncidentCreateTool_SuggestionFlow(t *testing.T) {
	s := newTestStore(t)
	sessionID := seedSessionID(t, s)
	tool := NewIncidentCreateTool(training.NewPipeline(s, 5))

	report := func(title string) map[string]any {
		return callOK(t, tool, map[string]interface{}{
			"sessionId": sessionID, "type": "mistake", "severity": "low", "title": title,
		})
	}

	if body := report("login form crashes on submit"); body["suggestion"] != nil {
		t.Errorf("first incident suggested: %v", body["suggestion"])
	}

	body := report("submit button crashes the login form")
	sug, ok := body["suggestion"].(map[string]any)
	if !ok {
		t.Fatalf("second similar incident should suggest, got: %v", body)
	}
	if sug["action"] != "create_lesson" {
		t.Errorf("suggestion action = %v", sug["action"])
	}
}

func TestIncidentCreateTool_ContextRoundTrip(t *testing.T) {
	s := newTestStore(t)
	sessionID := seedSessionID(t, s)
	tool := NewIncidentCreateTool(training.NewPipeline(s, 5))

	body := callOK(t, tool, map[string]interface{}{
		"sessionId": sessionID, "type": "failure", "severity": "high", "title": "deploy failed",
		"context": map[string]interface{}{
			"taskId":       "T-1",
			"files":        []interface{}{"deploy.sh"},
			"errorMessage": "exit 1",
		},
	})
	inc := body["incident"].(map[string]any)
	ctx, ok := inc["context"].(map[string]any)
	if !ok || ctx["taskId"] != "T-1" {
		t.Errorf("context not round-tripped: %v", inc)
	}
}

func TestIncidentCreateTool_UnknownSession(t *testing.T) {
	s := newTestStore(t)
	tool := NewIncidentCreateTool(training.NewPipeline(s, 5))
	msg := callFail(t, tool, map[string]interface{}{
		"sessionId": "missing", "type": "mistake", "severity": "low", "title": "x",
	})
	if !strings.Contains(msg, "not found") {
		t.Errorf("error message = %q", msg)
	}
}

// ─── Skill tools ────────────────────────────────────────────────────────────

func TestSkillCreateTool_DuplicateName(t *testing.T) {
	tool := NewSkillCreateTool(newTestStore(t))
	args := map[string]interface{}{
		"projectPath": "/work/demo", "name": "ci-check",
		"type": "checklist", "content": "run tests",
	}
	callOK(t, tool, args)
	callFail(t, tool, args)

	args["projectPath"] = "/work/other"
	callOK(t, tool, args)
}

func TestSkillCreateTool_WithTriggerAndApplicability(t *testing.T) {
	tool := NewSkillCreateTool(newTestStore(t))
	body := callOK(t, tool, map[string]interface{}{
		"projectPath": "/work/demo", "name": "commit-check",
		"type": "checklist", "content": "run linters",
		"trigger": map[string]interface{}{
			"when":       "before_commit",
			"conditions": []interface{}{"staged changes exist"},
		},
		"applicability": map[string]interface{}{
			"roles": []interface{}{"backend"},
		},
	})
	skill := body["skill"].(map[string]any)
	trigger, ok := skill["trigger"].(map[string]any)
	if !ok || trigger["when"] != "before_commit" {
		t.Errorf("trigger not stored: %v", skill)
	}
}

// ─── Rule tools ─────────────────────────────────────────────────────────────

func TestRuleCreateTool_ObjectContent(t *testing.T) {
	tool := NewRuleCreateTool(newTestStore(t))
	body := callOK(t, tool, map[string]interface{}{
		"projectPath": "/work/demo", "name": "no-force-push",
		"level": "must", "enforcement": "hook",
		"content": map[string]interface{}{
			"rule":      "never force push to main",
			"rationale": "history must stay immutable",
		},
	})
	rule := body["rule"].(map[string]any)
	content, _ := rule["content"].(string)
	if !strings.Contains(content, "never force push") || !strings.Contains(content, "Rationale:") {
		t.Errorf("content = %q", content)
	}
}

func TestRuleTools_ContentSchemaAcceptsBothForms(t *testing.T) {
	defs := []mcp.Tool{
		NewRuleCreateTool(newTestStore(t)).Definition(),
		NewRuleUpdateTool(newTestStore(t)).Definition(),
	}
	for _, def := range defs {
		prop, ok := def.InputSchema.Properties["content"].(map[string]any)
		if !ok {
			t.Fatalf("%s: content property missing", def.Name)
		}
		// A plain string type would reject the structured form at
		// schema validation, before the handler normalizes it.
		if _, typed := prop["type"]; typed {
			t.Errorf("%s: content is single-typed: %v", def.Name, prop["type"])
		}
		oneOf, ok := prop["oneOf"].([]any)
		if !ok || len(oneOf) != 2 {
			t.Fatalf("%s: content oneOf = %v", def.Name, prop["oneOf"])
		}
	}

	for i, want := range []bool{true, false} {
		required := false
		for _, name := range defs[i].InputSchema.Required {
			if name == "content" {
				required = true
			}
		}
		if required != want {
			t.Errorf("%s: content required = %v, want %v", defs[i].Name, required, want)
		}
	}
}

func TestRuleCheckTool_Wildcard(t *testing.T) {
	s := newTestStore(t)
	create := NewRuleCreateTool(s)
	check := NewRuleCheckTool(training.NewPipeline(s, 5))

	callOK(t, create, map[string]interface{}{
		"projectPath": "/work/demo", "name": "wildcard-modules",
		"level": "should", "enforcement": "manual", "content": "c",
		"applicability": map[string]interface{}{"modules": []interface{}{}},
	})

	body := callOK(t, check, map[string]interface{}{
		"projectPath": "/work/demo", "moduleId": "anything",
	})
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}
}

// ─── Task tools ─────────────────────────────────────────────────────────────

func TestTaskCompleteTool_CreatesReferences(t *testing.T) {
	s := newTestStore(t)
	reg := NewEntityRegisterTool(s)
	callOK(t, reg, map[string]interface{}{
		"entityType": "task", "entityId": "T-1", "title": "build the thing",
	})

	sessionID := seedSessionID(t, s)
	lesson, err := s.CreateLesson(store.CreateLessonParams{
		SessionID: sessionID, Title: "l", Problem: "p", RootCause: "r", Solution: "s",
	})
	if err != nil {
		t.Fatal(err)
	}

	tool := NewTaskCompleteTool(s)
	body := callOK(t, tool, map[string]interface{}{
		"taskId":           "T-1",
		"sessionId":        sessionID,
		"knowledgeCreated": []interface{}{"K-new"},
		"lessonsLearned":   []interface{}{lesson.ID},
	})

	created, _ := body["referencesCreated"].([]any)
	if len(created) != 3 {
		t.Errorf("referencesCreated = %d, want 3 (produced, learned, completed_in)", len(created))
	}

	task, err := s.GetEntity("task", "T-1")
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != "completed" {
		t.Errorf("task status = %q, want completed", task.Status)
	}

	// Unknown knowledge was registered on the fly.
	if _, err := s.GetEntity("knowledge", "K-new"); err != nil {
		t.Errorf("knowledge not auto-registered: %v", err)
	}
}

func TestTaskCompleteTool_UnknownLesson(t *testing.T) {
	s := newTestStore(t)
	reg := NewEntityRegisterTool(s)
	callOK(t, reg, map[string]interface{}{
		"entityType": "task", "entityId": "T-1", "title": "t",
	})

	tool := NewTaskCompleteTool(s)
	callFail(t, tool, map[string]interface{}{
		"taskId":         "T-1",
		"lessonsLearned": []interface{}{"missing"},
	})
}

// ─── Context tools ──────────────────────────────────────────────────────────

func TestEntityContextTool_Depth(t *testing.T) {
	s := newTestStore(t)
	engine := assemble.New(s, 4, 5, 8000)
	reg := NewEntityRegisterTool(s)
	link := NewEntityLinkTool(s)

	for _, id := range []string{"A", "B", "C"} {
		callOK(t, reg, map[string]interface{}{
			"entityType": "task", "entityId": id, "title": "task " + id,
		})
	}
	callOK(t, link, map[string]interface{}{
		"sourceType": "task", "sourceId": "A",
		"targetType": "task", "targetId": "B", "relationship": "blocks",
	})
	callOK(t, link, map[string]interface{}{
		"sourceType": "task", "sourceId": "B",
		"targetType": "task", "targetId": "C", "relationship": "blocks",
	})

	tool := NewEntityContextTool(engine)
	body := callOK(t, tool, map[string]interface{}{
		"entityType": "task", "entityId": "A", "depth": float64(1),
	})
	counts := body["relatedCounts"].(map[string]any)
	if counts["tasks"] != float64(1) {
		t.Errorf("depth 1 tasks = %v, want 1", counts["tasks"])
	}

	payload, _ := body["context"].(string)
	if !strings.Contains(payload, "task B") || strings.Contains(payload, "task C") {
		t.Errorf("depth 1 payload wrong:\n%s", payload)
	}
}

func TestTrainingContextTool_RendersPrompt(t *testing.T) {
	s := newTestStore(t)
	pipeline := training.NewPipeline(s, 5)

	create := NewRuleCreateTool(s)
	callOK(t, create, map[string]interface{}{
		"projectPath": "/work/demo", "name": "no-force-push",
		"level": "must", "enforcement": "manual", "content": "never force push",
	})

	tool := NewTrainingContextTool(pipeline)
	body := callOK(t, tool, map[string]interface{}{
		"moduleId": "auth", "projectPath": "/work/demo",
	})
	prompt, _ := body["prompt"].(string)
	if !strings.Contains(prompt, "no-force-push") {
		t.Errorf("prompt = %q", prompt)
	}
}

// ─── Feedback tool ──────────────────────────────────────────────────────────

func TestFeedbackTool_SkillUsageCount(t *testing.T) {
	s := newTestStore(t)
	sk, err := s.CreateSkill(store.CreateSkillParams{
		ProjectPath: "/work/demo", Name: "ci-check", Type: "checklist", Content: "c",
	})
	if err != nil {
		t.Fatal(err)
	}

	tool := NewFeedbackTool(s)
	callOK(t, tool, map[string]interface{}{
		"entityType": "skill", "entityId": sk.ID, "outcome": "helped",
	})

	got, _ := s.GetSkill(sk.ID)
	if got.UsageCount != 1 {
		t.Errorf("usage count = %d, want 1", got.UsageCount)
	}
}
