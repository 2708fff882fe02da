package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mentor-mcp/mentor/internal/training"
)

// TrainingContextTool handles the training_context_get MCP tool.
type TrainingContextTool struct {
	pipeline *training.Pipeline
}

// NewTrainingContextTool creates a TrainingContextTool.
func NewTrainingContextTool(p *training.Pipeline) *TrainingContextTool {
	return &TrainingContextTool{pipeline: p}
}

// Definition returns the MCP tool definition for training_context_get.
func (t *TrainingContextTool) Definition() mcp.Tool {
	return mcp.NewTool("training_context_get",
		mcp.WithDescription(
			"Assemble the governance context for an agent about to work: active "+
				"skills and rules matching (moduleId, role, taskType), recent "+
				"approved lessons, and a rendered prompt section ready to inject.",
		),
		mcp.WithString("moduleId",
			mcp.Required(),
			mcp.Description("Module being worked on"),
		),
		mcp.WithString("projectPath",
			mcp.Required(),
			mcp.Description("Absolute path of the project"),
		),
		mcp.WithString("role",
			mcp.Description("Agent role"),
		),
		mcp.WithString("taskType",
			mcp.Description("Kind of task"),
		),
	)
}

// Handle processes the training_context_get tool call.
func (t *TrainingContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	moduleID := req.GetString("moduleId", "")
	projectPath := req.GetString("projectPath", "")
	if moduleID == "" || projectPath == "" {
		return failResult("moduleId and projectPath are required"), nil
	}
	tc, err := t.pipeline.GetContext(
		moduleID,
		projectPath,
		req.GetString("role", ""),
		req.GetString("taskType", ""),
	)
	if err != nil {
		return failErr(err), nil
	}
	return okResult(map[string]any{
		"session": tc.Session,
		"skills":  tc.Skills,
		"rules":   tc.Rules,
		"lessons": tc.Lessons,
		"prompt":  tc.Prompt,
	}), nil
}
