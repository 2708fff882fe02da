package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mentor-mcp/mentor/internal/store"
)

// FeedbackTool handles the training_feedback_submit MCP tool.
type FeedbackTool struct {
	store *store.Store
}

// NewFeedbackTool creates a FeedbackTool.
func NewFeedbackTool(s *store.Store) *FeedbackTool {
	return &FeedbackTool{store: s}
}

// Definition returns the MCP tool definition for training_feedback_submit.
func (t *FeedbackTool) Definition() mcp.Tool {
	return mcp.NewTool("training_feedback_submit",
		mcp.WithDescription(
			"Record whether a skill or rule helped, was ignored, or hindered "+
				"during a task. Skill feedback increments the skill's usage count.",
		),
		mcp.WithString("entityType",
			mcp.Required(),
			mcp.Description("What the feedback is about"),
			mcp.Enum("skill", "rule"),
		),
		mcp.WithString("entityId",
			mcp.Required(),
			mcp.Description("ID of the skill or rule"),
		),
		mcp.WithString("outcome",
			mcp.Required(),
			mcp.Description("How it went"),
			mcp.Enum("helped", "ignored", "hindered"),
		),
		mcp.WithString("taskId",
			mcp.Description("Task during which the feedback applies"),
		),
		mcp.WithString("notes",
			mcp.Description("Free-form notes"),
		),
	)
}

// Handle processes the training_feedback_submit tool call.
func (t *FeedbackTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fb, err := t.store.SubmitFeedback(store.SubmitFeedbackParams{
		EntityType: req.GetString("entityType", ""),
		EntityID:   req.GetString("entityId", ""),
		Outcome:    req.GetString("outcome", ""),
		TaskID:     req.GetString("taskId", ""),
		Notes:      req.GetString("notes", ""),
	})
	if err != nil {
		return failErr(err), nil
	}
	return okResult(map[string]any{"feedback": fb}), nil
}
