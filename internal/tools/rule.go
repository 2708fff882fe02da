package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mentor-mcp/mentor/internal/store"
	"github.com/mentor-mcp/mentor/internal/training"
)

// withRuleContent declares the content property as the union rule form:
// either the rule text as a plain string or a structured
// {rule, rationale?, enforcement?} object. A plain string type here
// would let schema validation reject the object form before it reaches
// the handler.
func withRuleContent(desc string, required bool) mcp.ToolOption {
	return func(t *mcp.Tool) {
		t.InputSchema.Properties["content"] = map[string]any{
			"description": desc,
			"oneOf": []any{
				map[string]any{"type": "string"},
				map[string]any{
					"type": "object",
					"properties": map[string]any{
						"rule":        map[string]any{"type": "string"},
						"rationale":   map[string]any{"type": "string"},
						"enforcement": map[string]any{"type": "string"},
					},
					"required": []any{"rule"},
				},
			},
		}
		if required {
			t.InputSchema.Required = append(t.InputSchema.Required, "content")
		}
	}
}

// ─── RuleCreateTool ─────────────────────────────────────────────────────────

// RuleCreateTool handles the rule_create MCP tool.
type RuleCreateTool struct {
	store *store.Store
}

// NewRuleCreateTool creates a RuleCreateTool.
func NewRuleCreateTool(s *store.Store) *RuleCreateTool {
	return &RuleCreateTool{store: s}
}

// Definition returns the MCP tool definition for rule_create.
func (t *RuleCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("rule_create",
		mcp.WithDescription(
			"Create a governance rule for a project. Content is either the rule "+
				"text or an object with rule, rationale and enforcement fields. "+
				"Names are unique per project; rules start active.",
		),
		mcp.WithString("projectPath",
			mcp.Required(),
			mcp.Description("Project the rule belongs to"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Rule name, unique within the project"),
		),
		mcp.WithString("level",
			mcp.Required(),
			mcp.Description("How binding the rule is"),
			mcp.Enum("must", "should", "may"),
		),
		mcp.WithString("enforcement",
			mcp.Required(),
			mcp.Description("How the rule is enforced"),
			mcp.Enum("manual", "hook", "gate"),
		),
		withRuleContent("Rule text, or an object {rule, rationale?, enforcement?}", true),
		mcp.WithString("description",
			mcp.Description("What the rule is for"),
		),
		mcp.WithArray("skillIds",
			mcp.Description("Skills this rule was promoted from"),
		),
		mcp.WithObject("applicability",
			mcp.Description("Where the rule applies: modules, roles, taskTypes (empty = everywhere)"),
		),
	)
}

// Handle processes the rule_create tool call.
func (t *RuleCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	applicability, err := training.ParseApplicability(req.GetArguments()["applicability"])
	if err != nil {
		return failErr(err), nil
	}
	// Content accepts both the plain-string and structured forms.
	text, err := training.NormalizeRuleText(req.GetArguments()["content"])
	if err != nil {
		return failErr(err), nil
	}
	rule, err := t.store.CreateRule(store.CreateRuleParams{
		ProjectPath:   req.GetString("projectPath", ""),
		Name:          req.GetString("name", ""),
		Description:   req.GetString("description", ""),
		SkillIDs:      stringListArg(req, "skillIds"),
		Level:         req.GetString("level", ""),
		Enforcement:   req.GetString("enforcement", ""),
		Content:       text.Flatten(),
		Applicability: applicability,
	})
	if err != nil {
		return failErr(err), nil
	}
	return okResult(map[string]any{"rule": rule}), nil
}

// ─── RuleUpdateTool ─────────────────────────────────────────────────────────

// RuleUpdateTool handles the rule_update MCP tool.
type RuleUpdateTool struct {
	store *store.Store
}

// NewRuleUpdateTool creates a RuleUpdateTool.
func NewRuleUpdateTool(s *store.Store) *RuleUpdateTool {
	return &RuleUpdateTool{store: s}
}

// Definition returns the MCP tool definition for rule_update.
func (t *RuleUpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("rule_update",
		mcp.WithDescription(
			"Update a rule's description, level, enforcement, content, "+
				"applicability or status.",
		),
		mcp.WithString("ruleId",
			mcp.Required(),
			mcp.Description("Rule to update"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithString("level",
			mcp.Description("New level"),
			mcp.Enum("must", "should", "may"),
		),
		mcp.WithString("enforcement",
			mcp.Description("New enforcement"),
			mcp.Enum("manual", "hook", "gate"),
		),
		withRuleContent("New rule text, or an object {rule, rationale?, enforcement?}", false),
		mcp.WithObject("applicability",
			mcp.Description("New applicability"),
		),
		mcp.WithString("status",
			mcp.Description("New status"),
			mcp.Enum("active", "deprecated"),
		),
	)
}

// Handle processes the rule_update tool call.
func (t *RuleUpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	applicability, err := training.ParseApplicability(req.GetArguments()["applicability"])
	if err != nil {
		return failErr(err), nil
	}
	var content *string
	if raw, ok := req.GetArguments()["content"]; ok && raw != nil {
		text, err := training.NormalizeRuleText(raw)
		if err != nil {
			return failErr(err), nil
		}
		flat := text.Flatten()
		content = &flat
	}
	rule, err := t.store.UpdateRule(req.GetString("ruleId", ""), store.UpdateRuleParams{
		Description:   optStringArg(req, "description"),
		Level:         optStringArg(req, "level"),
		Enforcement:   optStringArg(req, "enforcement"),
		Content:       content,
		Applicability: applicability,
		Status:        optStringArg(req, "status"),
	})
	if err != nil {
		return failErr(err), nil
	}
	return okResult(map[string]any{"rule": rule}), nil
}

// ─── RuleListTool ───────────────────────────────────────────────────────────

// RuleListTool handles the rule_list MCP tool.
type RuleListTool struct {
	store *store.Store
}

// NewRuleListTool creates a RuleListTool.
func NewRuleListTool(s *store.Store) *RuleListTool {
	return &RuleListTool{store: s}
}

// Definition returns the MCP tool definition for rule_list.
func (t *RuleListTool) Definition() mcp.Tool {
	return mcp.NewTool("rule_list",
		mcp.WithDescription(
			"List rules for a project, optionally filtered by status.",
		),
		mcp.WithString("projectPath",
			mcp.Description("Filter to this project"),
		),
		mcp.WithString("status",
			mcp.Description("Filter to this status"),
			mcp.Enum("active", "deprecated"),
		),
	)
}

// Handle processes the rule_list tool call.
func (t *RuleListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules, err := t.store.ListRules(req.GetString("projectPath", ""), req.GetString("status", ""))
	if err != nil {
		return failErr(err), nil
	}
	if rules == nil {
		rules = []store.Rule{}
	}
	return okResult(map[string]any{
		"rules": rules,
		"count": len(rules),
	}), nil
}

// ─── RuleCheckTool ──────────────────────────────────────────────────────────

// RuleCheckTool handles the rule_check MCP tool.
type RuleCheckTool struct {
	pipeline *training.Pipeline
}

// NewRuleCheckTool creates a RuleCheckTool.
func NewRuleCheckTool(p *training.Pipeline) *RuleCheckTool {
	return &RuleCheckTool{pipeline: p}
}

// Definition returns the MCP tool definition for rule_check.
func (t *RuleCheckTool) Definition() mcp.Tool {
	return mcp.NewTool("rule_check",
		mcp.WithDescription(
			"Return the active rules that apply to a (moduleId, role, taskType) "+
				"combination for a project. An empty applicability dimension on a "+
				"rule matches any value.",
		),
		mcp.WithString("projectPath",
			mcp.Required(),
			mcp.Description("Project whose rules to check"),
		),
		mcp.WithString("moduleId",
			mcp.Description("Module being worked on"),
		),
		mcp.WithString("role",
			mcp.Description("Agent role"),
		),
		mcp.WithString("taskType",
			mcp.Description("Kind of task"),
		),
	)
}

// Handle processes the rule_check tool call.
func (t *RuleCheckTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules, err := t.pipeline.CheckRules(
		req.GetString("projectPath", ""),
		req.GetString("moduleId", ""),
		req.GetString("role", ""),
		req.GetString("taskType", ""),
	)
	if err != nil {
		return failErr(err), nil
	}
	if rules == nil {
		rules = []store.Rule{}
	}
	return okResult(map[string]any{
		"rules": rules,
		"count": len(rules),
	}), nil
}
