package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mentor-mcp/mentor/internal/store"
	"github.com/mentor-mcp/mentor/internal/training"
)

// ─── LessonCreateTool ───────────────────────────────────────────────────────

// LessonCreateTool handles the lesson_create MCP tool.
type LessonCreateTool struct {
	store *store.Store
}

// NewLessonCreateTool creates a LessonCreateTool.
func NewLessonCreateTool(s *store.Store) *LessonCreateTool {
	return &LessonCreateTool{store: s}
}

// Definition returns the MCP tool definition for lesson_create.
func (t *LessonCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("lesson_create",
		mcp.WithDescription(
			"Author a lesson distilled from one or more incidents: the problem, "+
				"its root cause, the solution, and where it applies. Lessons start "+
				"as drafts and must be approved before they feed into context.",
		),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("Training session the lesson belongs to"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short name for the lesson"),
		),
		mcp.WithString("problem",
			mcp.Required(),
			mcp.Description("What kept going wrong"),
		),
		mcp.WithString("rootCause",
			mcp.Required(),
			mcp.Description("Why it went wrong"),
		),
		mcp.WithString("solution",
			mcp.Required(),
			mcp.Description("How to avoid or fix it"),
		),
		mcp.WithArray("incidentIds",
			mcp.Description("Incidents this lesson was distilled from"),
		),
		mcp.WithObject("applicability",
			mcp.Description("Where the lesson applies: modules, roles, taskTypes (empty = everywhere)"),
		),
	)
}

// Handle processes the lesson_create tool call.
func (t *LessonCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	applicability, err := training.ParseApplicability(req.GetArguments()["applicability"])
	if err != nil {
		return failErr(err), nil
	}
	lesson, err := t.store.CreateLesson(store.CreateLessonParams{
		SessionID:     req.GetString("sessionId", ""),
		IncidentIDs:   stringListArg(req, "incidentIds"),
		Title:         req.GetString("title", ""),
		Problem:       req.GetString("problem", ""),
		RootCause:     req.GetString("rootCause", ""),
		Solution:      req.GetString("solution", ""),
		Applicability: applicability,
	})
	if err != nil {
		return failErr(err), nil
	}
	return okResult(map[string]any{"lesson": lesson}), nil
}

// ─── LessonApproveTool ──────────────────────────────────────────────────────

// LessonApproveTool handles the lesson_approve MCP tool.
type LessonApproveTool struct {
	store *store.Store
}

// NewLessonApproveTool creates a LessonApproveTool.
func NewLessonApproveTool(s *store.Store) *LessonApproveTool {
	return &LessonApproveTool{store: s}
}

// Definition returns the MCP tool definition for lesson_approve.
func (t *LessonApproveTool) Definition() mcp.Tool {
	return mcp.NewTool("lesson_approve",
		mcp.WithDescription(
			"Approve a lesson, stamping who approved it and when. Approved "+
				"lessons appear in training context. Re-approving restamps.",
		),
		mcp.WithString("lessonId",
			mcp.Required(),
			mcp.Description("Lesson to approve"),
		),
		mcp.WithString("approvedBy",
			mcp.Required(),
			mcp.Description("Who is approving the lesson"),
		),
	)
}

// Handle processes the lesson_approve tool call.
func (t *LessonApproveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	approver := req.GetString("approvedBy", "")
	if approver == "" {
		return failErr(fmt.Errorf("approvedBy is required")), nil
	}
	lesson, err := t.store.ApproveLesson(req.GetString("lessonId", ""), approver)
	if err != nil {
		return failErr(err), nil
	}
	return okResult(map[string]any{"lesson": lesson}), nil
}

// ─── LessonListTool ─────────────────────────────────────────────────────────

// LessonListTool handles the lesson_list MCP tool.
type LessonListTool struct {
	store *store.Store
}

// NewLessonListTool creates a LessonListTool.
func NewLessonListTool(s *store.Store) *LessonListTool {
	return &LessonListTool{store: s}
}

// Definition returns the MCP tool definition for lesson_list.
func (t *LessonListTool) Definition() mcp.Tool {
	return mcp.NewTool("lesson_list",
		mcp.WithDescription(
			"List lessons, optionally filtered by session and status.",
		),
		mcp.WithString("sessionId",
			mcp.Description("Filter to this training session"),
		),
		mcp.WithString("status",
			mcp.Description("Filter to this status"),
			mcp.Enum("draft", "reviewed", "approved", "archived"),
		),
	)
}

// Handle processes the lesson_list tool call.
func (t *LessonListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lessons, err := t.store.ListLessons(req.GetString("sessionId", ""), req.GetString("status", ""))
	if err != nil {
		return failErr(err), nil
	}
	if lessons == nil {
		lessons = []store.Lesson{}
	}
	return okResult(map[string]any{
		"lessons": lessons,
		"count":   len(lessons),
	}), nil
}
