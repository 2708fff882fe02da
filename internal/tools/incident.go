package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mentor-mcp/mentor/internal/store"
	"github.com/mentor-mcp/mentor/internal/training"
)

// ─── IncidentCreateTool ─────────────────────────────────────────────────────

// IncidentCreateTool handles the incident_create MCP tool.
type IncidentCreateTool struct {
	pipeline *training.Pipeline
}

// NewIncidentCreateTool creates an IncidentCreateTool.
func NewIncidentCreateTool(p *training.Pipeline) *IncidentCreateTool {
	return &IncidentCreateTool{pipeline: p}
}

// Definition returns the MCP tool definition for incident_create.
func (t *IncidentCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("incident_create",
		mcp.WithDescription(
			"Report an incident (mistake, failure, confusion, slowdown) in a "+
				"training session. When the title and description overlap with other "+
				"open incidents in the session, the result includes a create_lesson "+
				"suggestion with the similar incident IDs.",
		),
		mcp.WithString("sessionId",
			mcp.Required(),
			mcp.Description("Training session the incident belongs to"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Kind of incident"),
			mcp.Enum("mistake", "failure", "confusion", "slow", "other"),
		),
		mcp.WithString("severity",
			mcp.Required(),
			mcp.Description("How badly it hurt"),
			mcp.Enum("low", "medium", "high", "critical"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short description of what went wrong"),
		),
		mcp.WithString("description",
			mcp.Description("Longer account of the incident"),
		),
		mcp.WithObject("context",
			mcp.Description("What the agent was doing: taskId, agentRole, files, commands, errorMessage"),
		),
	)
}

// Handle processes the incident_create tool call.
func (t *IncidentCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	incidentCtx, err := incidentContextArg(req)
	if err != nil {
		return failErr(err), nil
	}
	incident, suggestion, err := t.pipeline.ReportIncident(store.CreateIncidentParams{
		SessionID:   req.GetString("sessionId", ""),
		Type:        req.GetString("type", ""),
		Severity:    req.GetString("severity", ""),
		Title:       req.GetString("title", ""),
		Description: req.GetString("description", ""),
		Context:     incidentCtx,
	})
	if err != nil {
		return failErr(err), nil
	}
	out := map[string]any{"incident": incident}
	if suggestion != nil {
		out["suggestion"] = suggestion
	}
	return okResult(out), nil
}

// incidentContextArg decodes the optional context object argument.
func incidentContextArg(req mcp.CallToolRequest) (*store.IncidentContext, error) {
	raw, ok := req.GetArguments()["context"]
	if !ok || raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("context must be an object")
	}
	ic := &store.IncidentContext{}
	if v, ok := obj["taskId"].(string); ok {
		ic.TaskID = v
	}
	if v, ok := obj["agentRole"].(string); ok {
		ic.AgentRole = v
	}
	if v, ok := obj["errorMessage"].(string); ok {
		ic.ErrorMessage = v
	}
	if v, ok := obj["files"]; ok {
		list, err := anyStrings(v)
		if err != nil {
			return nil, fmt.Errorf("context.files: %w", err)
		}
		ic.Files = list
	}
	if v, ok := obj["commands"]; ok {
		list, err := anyStrings(v)
		if err != nil {
			return nil, fmt.Errorf("context.commands: %w", err)
		}
		ic.Commands = list
	}
	return ic, nil
}

// ─── IncidentUpdateTool ─────────────────────────────────────────────────────

// IncidentUpdateTool handles the incident_update MCP tool.
type IncidentUpdateTool struct {
	store *store.Store
}

// NewIncidentUpdateTool creates an IncidentUpdateTool.
func NewIncidentUpdateTool(s *store.Store) *IncidentUpdateTool {
	return &IncidentUpdateTool{store: s}
}

// Definition returns the MCP tool definition for incident_update.
func (t *IncidentUpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("incident_update",
		mcp.WithDescription(
			"Update an incident's status or resolution. Status only changes "+
				"when explicitly set.",
		),
		mcp.WithString("incidentId",
			mcp.Required(),
			mcp.Description("Incident to update"),
		),
		mcp.WithString("status",
			mcp.Description("New status"),
			mcp.Enum("open", "analyzed", "lesson_created", "closed"),
		),
		mcp.WithString("resolution",
			mcp.Description("How the incident was resolved"),
		),
	)
}

// Handle processes the incident_update tool call.
func (t *IncidentUpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	incident, err := t.store.UpdateIncident(req.GetString("incidentId", ""), store.UpdateIncidentParams{
		Status:     optStringArg(req, "status"),
		Resolution: optStringArg(req, "resolution"),
	})
	if err != nil {
		return failErr(err), nil
	}
	return okResult(map[string]any{"incident": incident}), nil
}

// ─── IncidentListTool ───────────────────────────────────────────────────────

// IncidentListTool handles the incident_list MCP tool.
type IncidentListTool struct {
	store *store.Store
}

// NewIncidentListTool creates an IncidentListTool.
func NewIncidentListTool(s *store.Store) *IncidentListTool {
	return &IncidentListTool{store: s}
}

// Definition returns the MCP tool definition for incident_list.
func (t *IncidentListTool) Definition() mcp.Tool {
	return mcp.NewTool("incident_list",
		mcp.WithDescription(
			"List incidents, optionally filtered by session and status.",
		),
		mcp.WithString("sessionId",
			mcp.Description("Filter to this training session"),
		),
		mcp.WithString("status",
			mcp.Description("Filter to this status"),
			mcp.Enum("open", "analyzed", "lesson_created", "closed"),
		),
	)
}

// Handle processes the incident_list tool call.
func (t *IncidentListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	incidents, err := t.store.ListIncidents(req.GetString("sessionId", ""), req.GetString("status", ""))
	if err != nil {
		return failErr(err), nil
	}
	if incidents == nil {
		incidents = []store.Incident{}
	}
	return okResult(map[string]any{
		"incidents": incidents,
		"count":     len(incidents),
	}), nil
}
