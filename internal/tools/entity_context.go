package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mentor-mcp/mentor/internal/assemble"
	"github.com/mentor-mcp/mentor/internal/store"
)

// EntityContextTool handles the entity_context MCP tool: a bounded,
// prioritized summary of an entity and everything connected to it.
type EntityContextTool struct {
	engine *assemble.Engine
}

// NewEntityContextTool creates an EntityContextTool.
func NewEntityContextTool(engine *assemble.Engine) *EntityContextTool {
	return &EntityContextTool{engine: engine}
}

// Definition returns the MCP tool definition for entity_context.
func (t *EntityContextTool) Definition() mcp.Tool {
	return mcp.NewTool("entity_context",
		mcp.WithDescription(
			"Assemble a bounded, prioritized context payload for an entity and its "+
				"graph neighborhood. Traverses references in both directions up to the "+
				"requested depth and truncates whole sections to fit the token budget.",
		),
		mcp.WithString("entityType",
			mcp.Required(),
			mcp.Description("Root entity type"),
			mcp.Enum(store.EntityTypes...),
		),
		mcp.WithString("entityId",
			mcp.Required(),
			mcp.Description("Root entity ID"),
		),
		mcp.WithString("format",
			mcp.Description("Output format (default: claude)"),
			mcp.Enum(assemble.FormatClaude, assemble.FormatJSON, assemble.FormatCompact),
		),
		mcp.WithArray("sections",
			mcp.Description("Sections to include: capability, knowledge, impact, governance, history, references (default: all)"),
		),
		mcp.WithNumber("maxTokens",
			mcp.Description("Token budget for the payload, chars/4 approximation (default: 8000)"),
		),
		mcp.WithNumber("depth",
			mcp.Description("Graph traversal depth in hops (default: 1)"),
		),
	)
}

// Handle processes the entity_context tool call.
func (t *EntityContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.engine.Assemble(assemble.Input{
		EntityType: req.GetString("entityType", ""),
		EntityID:   req.GetString("entityId", ""),
		Format:     req.GetString("format", ""),
		Sections:   stringListArg(req, "sections"),
		MaxTokens:  intArg(req, "maxTokens", 0),
		Depth:      intArg(req, "depth", 0),
	})
	if err != nil {
		return failErr(err), nil
	}
	return okResult(contextPayload(res)), nil
}

// contextPayload builds the shared result shape for context-bearing
// tools: entity, related counts, truncation flag and the payload in its
// format-appropriate representation.
func contextPayload(res *assemble.Result) map[string]any {
	out := map[string]any{
		"entity":        res.Entity,
		"relatedCounts": res.RelatedCounts,
		"truncated":     res.Truncated,
		"format":        res.Format,
	}
	if res.Format == assemble.FormatJSON {
		out["context"] = json.RawMessage(res.Payload)
	} else {
		out["context"] = res.Payload
	}
	return out
}
