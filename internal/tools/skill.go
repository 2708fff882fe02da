package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mentor-mcp/mentor/internal/store"
	"github.com/mentor-mcp/mentor/internal/training"
)

// ─── SkillCreateTool ────────────────────────────────────────────────────────

// SkillCreateTool handles the skill_create MCP tool.
type SkillCreateTool struct {
	store *store.Store
}

// NewSkillCreateTool creates a SkillCreateTool.
func NewSkillCreateTool(s *store.Store) *SkillCreateTool {
	return &SkillCreateTool{store: s}
}

// Definition returns the MCP tool definition for skill_create.
func (t *SkillCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("skill_create",
		mcp.WithDescription(
			"Create a reusable skill (procedure, checklist, template or rule "+
				"text) for a project, usually distilled from approved lessons. "+
				"Names are unique per project.",
		),
		mcp.WithString("projectPath",
			mcp.Required(),
			mcp.Description("Project the skill belongs to"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Skill name, unique within the project"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Kind of skill"),
			mcp.Enum("procedure", "checklist", "template", "rule"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The skill body the agent should follow"),
		),
		mcp.WithString("description",
			mcp.Description("What the skill is for"),
		),
		mcp.WithArray("lessonIds",
			mcp.Description("Lessons this skill was distilled from"),
		),
		mcp.WithObject("trigger",
			mcp.Description("When to surface the skill: when (always|task_start|task_end|before_commit|on_error), conditions[]"),
		),
		mcp.WithObject("applicability",
			mcp.Description("Where the skill applies: modules, roles, taskTypes (empty = everywhere)"),
		),
	)
}

// Handle processes the skill_create tool call.
func (t *SkillCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	applicability, err := training.ParseApplicability(req.GetArguments()["applicability"])
	if err != nil {
		return failErr(err), nil
	}
	trigger, err := triggerArg(req)
	if err != nil {
		return failErr(err), nil
	}
	skill, err := t.store.CreateSkill(store.CreateSkillParams{
		ProjectPath:   req.GetString("projectPath", ""),
		Name:          req.GetString("name", ""),
		Description:   req.GetString("description", ""),
		LessonIDs:     stringListArg(req, "lessonIds"),
		Type:          req.GetString("type", ""),
		Content:       req.GetString("content", ""),
		Trigger:       trigger,
		Applicability: applicability,
	})
	if err != nil {
		return failErr(err), nil
	}
	return okResult(map[string]any{"skill": skill}), nil
}

// triggerArg decodes the optional trigger object argument.
func triggerArg(req mcp.CallToolRequest) (*store.SkillTrigger, error) {
	raw, ok := req.GetArguments()["trigger"]
	if !ok || raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("trigger must be an object")
	}
	tr := &store.SkillTrigger{}
	if v, ok := obj["when"].(string); ok {
		tr.When = v
	}
	if v, ok := obj["conditions"]; ok {
		list, err := anyStrings(v)
		if err != nil {
			return nil, fmt.Errorf("trigger.conditions: %w", err)
		}
		tr.Conditions = list
	}
	return tr, nil
}

// ─── SkillUpdateTool ────────────────────────────────────────────────────────

// SkillUpdateTool handles the skill_update MCP tool.
type SkillUpdateTool struct {
	store *store.Store
}

// NewSkillUpdateTool creates a SkillUpdateTool.
func NewSkillUpdateTool(s *store.Store) *SkillUpdateTool {
	return &SkillUpdateTool{store: s}
}

// Definition returns the MCP tool definition for skill_update.
func (t *SkillUpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("skill_update",
		mcp.WithDescription(
			"Update a skill's description, content, trigger, applicability or "+
				"status. Usage counts only move via feedback, never here.",
		),
		mcp.WithString("skillId",
			mcp.Required(),
			mcp.Description("Skill to update"),
		),
		mcp.WithString("description",
			mcp.Description("New description"),
		),
		mcp.WithString("content",
			mcp.Description("New skill body"),
		),
		mcp.WithObject("trigger",
			mcp.Description("New trigger"),
		),
		mcp.WithObject("applicability",
			mcp.Description("New applicability"),
		),
		mcp.WithString("status",
			mcp.Description("New status"),
			mcp.Enum("draft", "active", "deprecated"),
		),
	)
}

// Handle processes the skill_update tool call.
func (t *SkillUpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	applicability, err := training.ParseApplicability(req.GetArguments()["applicability"])
	if err != nil {
		return failErr(err), nil
	}
	trigger, err := triggerArg(req)
	if err != nil {
		return failErr(err), nil
	}
	skill, err := t.store.UpdateSkill(req.GetString("skillId", ""), store.UpdateSkillParams{
		Description:   optStringArg(req, "description"),
		Content:       optStringArg(req, "content"),
		Trigger:       trigger,
		Applicability: applicability,
		Status:        optStringArg(req, "status"),
	})
	if err != nil {
		return failErr(err), nil
	}
	return okResult(map[string]any{"skill": skill}), nil
}

// ─── SkillListTool ──────────────────────────────────────────────────────────

// SkillListTool handles the skill_list MCP tool.
type SkillListTool struct {
	store *store.Store
}

// NewSkillListTool creates a SkillListTool.
func NewSkillListTool(s *store.Store) *SkillListTool {
	return &SkillListTool{store: s}
}

// Definition returns the MCP tool definition for skill_list.
func (t *SkillListTool) Definition() mcp.Tool {
	return mcp.NewTool("skill_list",
		mcp.WithDescription(
			"List skills for a project, optionally filtered by status.",
		),
		mcp.WithString("projectPath",
			mcp.Description("Filter to this project"),
		),
		mcp.WithString("status",
			mcp.Description("Filter to this status"),
			mcp.Enum("draft", "active", "deprecated"),
		),
	)
}

// Handle processes the skill_list tool call.
func (t *SkillListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	skills, err := t.store.ListSkills(req.GetString("projectPath", ""), req.GetString("status", ""))
	if err != nil {
		return failErr(err), nil
	}
	if skills == nil {
		skills = []store.Skill{}
	}
	return okResult(map[string]any{
		"skills": skills,
		"count":  len(skills),
	}), nil
}
