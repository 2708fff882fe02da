package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mentor-mcp/mentor/internal/store"
)

// ─── SessionGetTool ─────────────────────────────────────────────────────────

// SessionGetTool handles the training_session_get MCP tool.
type SessionGetTool struct {
	store *store.Store
}

// NewSessionGetTool creates a SessionGetTool.
func NewSessionGetTool(s *store.Store) *SessionGetTool {
	return &SessionGetTool{store: s}
}

// Definition returns the MCP tool definition for training_session_get.
func (t *SessionGetTool) Definition() mcp.Tool {
	return mcp.NewTool("training_session_get",
		mcp.WithDescription(
			"Get or create the training session for a (moduleId, projectPath) "+
				"pair. Calling this twice with the same inputs returns the same "+
				"session.",
		),
		mcp.WithString("moduleId",
			mcp.Required(),
			mcp.Description("Module the session belongs to"),
		),
		mcp.WithString("projectPath",
			mcp.Required(),
			mcp.Description("Absolute path of the project"),
		),
	)
}

// Handle processes the training_session_get tool call.
func (t *SessionGetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	moduleID := req.GetString("moduleId", "")
	projectPath := req.GetString("projectPath", "")
	if moduleID == "" || projectPath == "" {
		return failResult("moduleId and projectPath are required"), nil
	}
	session, err := t.store.GetOrCreateSession(moduleID, projectPath)
	if err != nil {
		return failErr(err), nil
	}
	return okResult(map[string]any{"session": session}), nil
}

// ─── SessionListTool ────────────────────────────────────────────────────────

// SessionListTool handles the training_session_list MCP tool.
type SessionListTool struct {
	store *store.Store
}

// NewSessionListTool creates a SessionListTool.
func NewSessionListTool(s *store.Store) *SessionListTool {
	return &SessionListTool{store: s}
}

// Definition returns the MCP tool definition for training_session_list.
func (t *SessionListTool) Definition() mcp.Tool {
	return mcp.NewTool("training_session_list",
		mcp.WithDescription(
			"List training sessions, optionally filtered by project path.",
		),
		mcp.WithString("projectPath",
			mcp.Description("Filter sessions to this project"),
		),
	)
}

// Handle processes the training_session_list tool call.
func (t *SessionListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := t.store.ListSessions(req.GetString("projectPath", ""))
	if err != nil {
		return failErr(err), nil
	}
	if sessions == nil {
		sessions = []store.TrainingSession{}
	}
	return okResult(map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	}), nil
}
