// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the store, the training
// pipeline and the context engine, and injects them into the tools that
// depend on them. No business logic lives here, only wiring.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mentor-mcp/mentor/internal/assemble"
	"github.com/mentor-mcp/mentor/internal/config"
	"github.com/mentor-mcp/mentor/internal/store"
	"github.com/mentor-mcp/mentor/internal/tools"
	"github.com/mentor-mcp/mentor/internal/training"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools registered.
// This is the single place where all dependencies are resolved.
//
// The returned cleanup function closes the store's database connection
// and must be called on shutdown (typically via defer). It is always
// non-nil.
func New(cfg config.Config) (*server.MCPServer, func(), error) {
	// --- Create shared dependencies ---

	st, err := store.New(store.Config{DataDir: cfg.DataDir})
	if err != nil {
		return nil, noop, fmt.Errorf("opening store: %w", err)
	}
	cleanup := func() { st.Close() }

	pipeline := training.NewPipeline(st, cfg.Training.RecentLessons)
	engine := assemble.New(st, cfg.Context.CharsPerToken, cfg.Context.MaxDepth, cfg.Context.MaxTokens)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"mentor",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register entity graph tools ---

	register := tools.NewEntityRegisterTool(st)
	s.AddTool(register.Definition(), register.Handle)

	link := tools.NewEntityLinkTool(st)
	s.AddTool(link.Definition(), link.Handle)

	references := tools.NewEntityReferencesTool(st)
	s.AddTool(references.Definition(), references.Handle)

	// --- Register context assembly tools ---

	entityContext := tools.NewEntityContextTool(engine)
	s.AddTool(entityContext.Definition(), entityContext.Handle)

	taskStart := tools.NewTaskStartTool(engine)
	s.AddTool(taskStart.Definition(), taskStart.Handle)

	taskComplete := tools.NewTaskCompleteTool(st)
	s.AddTool(taskComplete.Definition(), taskComplete.Handle)

	// --- Register training session tools ---

	sessionGet := tools.NewSessionGetTool(st)
	s.AddTool(sessionGet.Definition(), sessionGet.Handle)

	sessionList := tools.NewSessionListTool(st)
	s.AddTool(sessionList.Definition(), sessionList.Handle)

	// --- Register incident tools ---

	incidentCreate := tools.NewIncidentCreateTool(pipeline)
	s.AddTool(incidentCreate.Definition(), incidentCreate.Handle)

	incidentUpdate := tools.NewIncidentUpdateTool(st)
	s.AddTool(incidentUpdate.Definition(), incidentUpdate.Handle)

	incidentList := tools.NewIncidentListTool(st)
	s.AddTool(incidentList.Definition(), incidentList.Handle)

	// --- Register lesson tools ---

	lessonCreate := tools.NewLessonCreateTool(st)
	s.AddTool(lessonCreate.Definition(), lessonCreate.Handle)

	lessonApprove := tools.NewLessonApproveTool(st)
	s.AddTool(lessonApprove.Definition(), lessonApprove.Handle)

	lessonList := tools.NewLessonListTool(st)
	s.AddTool(lessonList.Definition(), lessonList.Handle)

	// --- Register skill tools ---

	skillCreate := tools.NewSkillCreateTool(st)
	s.AddTool(skillCreate.Definition(), skillCreate.Handle)

	skillUpdate := tools.NewSkillUpdateTool(st)
	s.AddTool(skillUpdate.Definition(), skillUpdate.Handle)

	skillList := tools.NewSkillListTool(st)
	s.AddTool(skillList.Definition(), skillList.Handle)

	// --- Register rule tools ---

	ruleCreate := tools.NewRuleCreateTool(st)
	s.AddTool(ruleCreate.Definition(), ruleCreate.Handle)

	ruleUpdate := tools.NewRuleUpdateTool(st)
	s.AddTool(ruleUpdate.Definition(), ruleUpdate.Handle)

	ruleList := tools.NewRuleListTool(st)
	s.AddTool(ruleList.Definition(), ruleList.Handle)

	ruleCheck := tools.NewRuleCheckTool(pipeline)
	s.AddTool(ruleCheck.Definition(), ruleCheck.Handle)

	// --- Register training context & feedback tools ---

	trainingContext := tools.NewTrainingContextTool(pipeline)
	s.AddTool(trainingContext.Definition(), trainingContext.Handle)

	feedback := tools.NewFeedbackTool(st)
	s.AddTool(feedback.Definition(), feedback.Handle)

	return s, cleanup, nil
}

// noop is the default cleanup when store initialization failed.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use Mentor effectively.
func serverInstructions() string {
	return `You have access to Mentor, a governance and context MCP server for AI agents.

Mentor tracks the work you do (tasks, knowledge, impacts, tickets), the
mistakes you make (incidents), and what the team learned from them
(lessons, skills, rules). Use it to start tasks informed and to leave a
trail others can learn from.

## Core workflow

1. BEFORE starting a task, call task_start_with_context (or
   entity_context for non-task entities) to get everything related to
   it: prior knowledge, impacted areas, and the governance rules and
   skills that apply. Also call training_context_get with your moduleId,
   role and taskType; inject the returned prompt into your working
   context and follow the rules it lists.

2. WHILE working, if something goes wrong (a mistake, a failure, a
   confusing API, a slow grind), report it with incident_create. If the
   result suggests create_lesson, similar incidents exist: distill them
   into a lesson with lesson_create.

3. AFTER finishing, call task_complete_with_context listing the
   knowledge you produced and the lessons you learned. This links them
   to the task so future context assembly finds them.

4. Submit training_feedback_submit for skills and rules you used:
   helped, ignored, or hindered. Feedback is how skills earn trust.

## The knowledge ladder

incidents -> lessons -> skills -> rules

- Incidents are raw observations. Cheap to create; create them freely.
- Lessons are analyzed causes with solutions. They need approval
  (lesson_approve) before they feed into context.
- Skills are reusable procedures distilled from lessons (skill_create).
- Rules are binding governance promoted from proven skills
  (rule_create). rule_check tells you which rules apply right now.

## Conventions

- Every result carries a success flag; check it instead of assuming.
- Applicability objects (modules, roles, taskTypes) are AND across
  dimensions, OR within a list; an empty dimension matches everything.
- Entity IDs are caller-assigned for work entities; register them with
  entity_register before linking. Training records (incidents, lessons,
  skills, rules) get server-assigned IDs.`
}
