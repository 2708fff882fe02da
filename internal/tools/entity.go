package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mentor-mcp/mentor/internal/store"
)

// ─── EntityRegisterTool ─────────────────────────────────────────────────────

// EntityRegisterTool handles the entity_register MCP tool.
type EntityRegisterTool struct {
	store *store.Store
}

// NewEntityRegisterTool creates an EntityRegisterTool.
func NewEntityRegisterTool(s *store.Store) *EntityRegisterTool {
	return &EntityRegisterTool{store: s}
}

// Definition returns the MCP tool definition for entity_register.
func (t *EntityRegisterTool) Definition() mcp.Tool {
	return mcp.NewTool("entity_register",
		mcp.WithDescription(
			"Register or update a work entity (task, knowledge, capability, impact, ticket) "+
				"so it can participate in the reference graph and context assembly. "+
				"Upserts: calling again with the same type and id updates the record.",
		),
		mcp.WithString("entityType",
			mcp.Required(),
			mcp.Description("Entity type"),
			mcp.Enum("task", "knowledge", "capability", "impact", "ticket"),
		),
		mcp.WithString("entityId",
			mcp.Required(),
			mcp.Description("Caller-assigned entity identifier"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short human-readable title"),
		),
		mcp.WithString("summary",
			mcp.Description("One-paragraph summary used in assembled context"),
		),
		mcp.WithString("moduleId",
			mcp.Description("Module this entity belongs to (used for governance matching)"),
		),
		mcp.WithString("role",
			mcp.Description("Agent role associated with this entity"),
		),
		mcp.WithString("taskType",
			mcp.Description("Task type (for tasks; used for governance matching)"),
		),
		mcp.WithString("status",
			mcp.Description("Entity status (default: open)"),
		),
	)
}

// Handle processes the entity_register tool call.
func (t *EntityRegisterTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entity, err := t.store.RegisterEntity(store.RegisterEntityParams{
		Type:     req.GetString("entityType", ""),
		ID:       req.GetString("entityId", ""),
		Title:    req.GetString("title", ""),
		Summary:  req.GetString("summary", ""),
		ModuleID: req.GetString("moduleId", ""),
		Role:     req.GetString("role", ""),
		TaskType: req.GetString("taskType", ""),
		Status:   req.GetString("status", ""),
	})
	if err != nil {
		return failErr(err), nil
	}
	return okResult(map[string]any{"entity": entity}), nil
}

// ─── EntityLinkTool ─────────────────────────────────────────────────────────

// EntityLinkTool handles the entity_link MCP tool.
type EntityLinkTool struct {
	store *store.Store
}

// NewEntityLinkTool creates an EntityLinkTool.
func NewEntityLinkTool(s *store.Store) *EntityLinkTool {
	return &EntityLinkTool{store: s}
}

// Definition returns the MCP tool definition for entity_link.
func (t *EntityLinkTool) Definition() mcp.Tool {
	return mcp.NewTool("entity_link",
		mcp.WithDescription(
			"Create a directed, typed reference between two entities. "+
				"Safe to call speculatively: a duplicate reference is reported as success. "+
				"Common relationships: implements, documents, caused_by, resolves, produced, learned.",
		),
		mcp.WithString("sourceType",
			mcp.Required(),
			mcp.Description("Source entity type"),
			mcp.Enum(store.EntityTypes...),
		),
		mcp.WithString("sourceId",
			mcp.Required(),
			mcp.Description("Source entity ID"),
		),
		mcp.WithString("targetType",
			mcp.Required(),
			mcp.Description("Target entity type"),
			mcp.Enum(store.EntityTypes...),
		),
		mcp.WithString("targetId",
			mcp.Required(),
			mcp.Description("Target entity ID"),
		),
		mcp.WithString("relationship",
			mcp.Required(),
			mcp.Description("Relationship label (any non-empty string)"),
		),
		mcp.WithString("createdBy",
			mcp.Description("Who created the link (agent name or user)"),
		),
	)
}

// Handle processes the entity_link tool call.
func (t *EntityLinkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, created, err := t.store.CreateReference(store.CreateReferenceParams{
		SourceType:   req.GetString("sourceType", ""),
		SourceID:     req.GetString("sourceId", ""),
		TargetType:   req.GetString("targetType", ""),
		TargetID:     req.GetString("targetId", ""),
		Relationship: req.GetString("relationship", ""),
		CreatedBy:    req.GetString("createdBy", ""),
	})
	if err != nil {
		return failErr(err), nil
	}
	return okResult(map[string]any{"reference": ref, "created": created}), nil
}

// ─── EntityReferencesTool ───────────────────────────────────────────────────

// EntityReferencesTool handles the entity_references MCP tool.
type EntityReferencesTool struct {
	store *store.Store
}

// NewEntityReferencesTool creates an EntityReferencesTool.
func NewEntityReferencesTool(s *store.Store) *EntityReferencesTool {
	return &EntityReferencesTool{store: s}
}

// Definition returns the MCP tool definition for entity_references.
func (t *EntityReferencesTool) Definition() mcp.Tool {
	return mcp.NewTool("entity_references",
		mcp.WithDescription(
			"Query reference-graph edges. All filters are optional; "+
				"empty filters match everything.",
		),
		mcp.WithString("sourceType", mcp.Description("Filter by source entity type")),
		mcp.WithString("sourceId", mcp.Description("Filter by source entity ID")),
		mcp.WithString("targetType", mcp.Description("Filter by target entity type")),
		mcp.WithString("targetId", mcp.Description("Filter by target entity ID")),
		mcp.WithString("relationship", mcp.Description("Filter by relationship label")),
	)
}

// Handle processes the entity_references tool call.
func (t *EntityReferencesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	for _, key := range []string{"sourceType", "targetType"} {
		if v := req.GetString(key, ""); v != "" && !store.ValidEntityType(v) {
			return failResult("unknown entity type " + strings.TrimSpace(v)), nil
		}
	}

	refs, err := t.store.QueryReferences(store.RefFilter{
		SourceType:   req.GetString("sourceType", ""),
		SourceID:     req.GetString("sourceId", ""),
		TargetType:   req.GetString("targetType", ""),
		TargetID:     req.GetString("targetId", ""),
		Relationship: req.GetString("relationship", ""),
	})
	if err != nil {
		return failErr(err), nil
	}
	if refs == nil {
		refs = []store.EntityReference{}
	}
	return okResult(map[string]any{"references": refs, "count": len(refs)}), nil
}
