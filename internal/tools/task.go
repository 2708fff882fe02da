package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mentor-mcp/mentor/internal/assemble"
	"github.com/mentor-mcp/mentor/internal/store"
)

// ─── TaskStartTool ──────────────────────────────────────────────────────────

// TaskStartTool handles the task_start_with_context MCP tool.
type TaskStartTool struct {
	engine *assemble.Engine
}

// NewTaskStartTool creates a TaskStartTool.
func NewTaskStartTool(engine *assemble.Engine) *TaskStartTool {
	return &TaskStartTool{engine: engine}
}

// Definition returns the MCP tool definition for task_start_with_context.
func (t *TaskStartTool) Definition() mcp.Tool {
	return mcp.NewTool("task_start_with_context",
		mcp.WithDescription(
			"Fetch everything an agent needs before starting a task: the task "+
				"summary plus its full related context (knowledge, impact, governance, "+
				"history) assembled within the token budget. Governance entities are "+
				"filtered to those applicable to the task.",
		),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("ID of the task to start"),
		),
		mcp.WithString("format",
			mcp.Description("Output format (default: claude)"),
			mcp.Enum(assemble.FormatClaude, assemble.FormatJSON, assemble.FormatCompact),
		),
		mcp.WithNumber("maxTokens",
			mcp.Description("Token budget for the payload (default: 8000)"),
		),
	)
}

// Handle processes the task_start_with_context tool call.
func (t *TaskStartTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.engine.Assemble(assemble.Input{
		EntityType: "task",
		EntityID:   req.GetString("taskId", ""),
		Format:     req.GetString("format", ""),
		MaxTokens:  intArg(req, "maxTokens", 0),
	})
	if err != nil {
		return failErr(err), nil
	}
	return okResult(contextPayload(res)), nil
}

// ─── TaskCompleteTool ───────────────────────────────────────────────────────

// TaskCompleteTool handles the task_complete_with_context MCP tool.
type TaskCompleteTool struct {
	store *store.Store
}

// NewTaskCompleteTool creates a TaskCompleteTool.
func NewTaskCompleteTool(s *store.Store) *TaskCompleteTool {
	return &TaskCompleteTool{store: s}
}

// Definition returns the MCP tool definition for task_complete_with_context.
func (t *TaskCompleteTool) Definition() mcp.Tool {
	return mcp.NewTool("task_complete_with_context",
		mcp.WithDescription(
			"Mark a task completed and record what it produced: knowledge entity "+
				"IDs become 'produced' references, lesson IDs become 'learned' "+
				"references. Unknown knowledge IDs are registered on the fly. Returns "+
				"the list of references created.",
		),
		mcp.WithString("taskId",
			mcp.Required(),
			mcp.Description("ID of the task being completed"),
		),
		mcp.WithString("sessionId",
			mcp.Description("Training session the task ran under; linked as 'completed_in'"),
		),
		mcp.WithArray("knowledgeCreated",
			mcp.Description("Knowledge entity IDs produced by this task"),
		),
		mcp.WithArray("lessonsLearned",
			mcp.Description("Lesson IDs learned during this task"),
		),
	)
}

// Handle processes the task_complete_with_context tool call.
func (t *TaskCompleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetString("taskId", "")
	task, err := t.store.GetEntity("task", taskID)
	if err != nil {
		return failErr(err), nil
	}

	var created []store.EntityReference

	for _, knowledgeID := range stringListArg(req, "knowledgeCreated") {
		if _, err := t.store.GetEntity("knowledge", knowledgeID); err != nil {
			// Auto-register knowledge produced by the task so the
			// reference has a real target.
			_, err = t.store.RegisterEntity(store.RegisterEntityParams{
				Type:  "knowledge",
				ID:    knowledgeID,
				Title: knowledgeID,
			})
			if err != nil {
				return failErr(fmt.Errorf("register knowledge %s: %w", knowledgeID, err)), nil
			}
		}
		ref, _, err := t.store.CreateReference(store.CreateReferenceParams{
			SourceType:   "task",
			SourceID:     taskID,
			TargetType:   "knowledge",
			TargetID:     knowledgeID,
			Relationship: "produced",
			CreatedBy:    "task_complete",
		})
		if err != nil {
			return failErr(err), nil
		}
		created = append(created, *ref)
	}

	for _, lessonID := range stringListArg(req, "lessonsLearned") {
		if _, err := t.store.GetLesson(lessonID); err != nil {
			return failErr(fmt.Errorf("lesson %s: %w", lessonID, err)), nil
		}
		ref, _, err := t.store.CreateReference(store.CreateReferenceParams{
			SourceType:   "task",
			SourceID:     taskID,
			TargetType:   "lesson",
			TargetID:     lessonID,
			Relationship: "learned",
			CreatedBy:    "task_complete",
		})
		if err != nil {
			return failErr(err), nil
		}
		created = append(created, *ref)
	}

	if sessionID := req.GetString("sessionId", ""); sessionID != "" {
		if _, err := t.store.GetSession(sessionID); err != nil {
			return failErr(fmt.Errorf("session %s: %w", sessionID, err)), nil
		}
		ref, _, err := t.store.CreateReference(store.CreateReferenceParams{
			SourceType:   "task",
			SourceID:     taskID,
			TargetType:   "session",
			TargetID:     sessionID,
			Relationship: "completed_in",
			CreatedBy:    "task_complete",
		})
		if err != nil {
			return failErr(err), nil
		}
		created = append(created, *ref)
	}

	if err := t.store.SetEntityStatus("task", taskID, "completed"); err != nil {
		return failErr(err), nil
	}
	task.Status = "completed"

	if created == nil {
		created = []store.EntityReference{}
	}
	return okResult(map[string]any{
		"task":              task,
		"referencesCreated": created,
	}), nil
}
