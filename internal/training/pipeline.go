package training

import (
	"fmt"
	"strings"

	"github.com/mentor-mcp/mentor/internal/store"
)

// Pipeline runs the governance workflow over the entity store.
type Pipeline struct {
	store         *store.Store
	recentLessons int
}

// NewPipeline creates a Pipeline. recentLessons caps the number of
// approved lessons pulled into training context (<= 0 uses the default).
func NewPipeline(s *store.Store, recentLessons int) *Pipeline {
	if recentLessons <= 0 {
		recentLessons = 5
	}
	return &Pipeline{store: s, recentLessons: recentLessons}
}

// Suggestion is the advisory output attached to incident creation when
// several similar open incidents accumulate. It never forces a
// transition.
type Suggestion struct {
	Action             string   `json:"action"`
	SimilarIncidentIDs []string `json:"similarIncidentIds"`
	Reason             string   `json:"reason,omitempty"`
}

// ReportIncident persists the incident, then scans the session's open
// incidents (the new one included) for keyword similarity. Two or more
// similar incidents yield a create_lesson suggestion. A similarity-scan
// failure degrades to no suggestion: the incident is already saved.
func (p *Pipeline) ReportIncident(params store.CreateIncidentParams) (*store.Incident, *Suggestion, error) {
	inc, err := p.store.CreateIncident(params)
	if err != nil {
		return nil, nil, err
	}

	open, err := p.store.ListIncidents(inc.SessionID, "open")
	if err != nil {
		return inc, nil, nil
	}

	newKeywords := ExtractKeywords(inc.Title + " " + inc.Description)
	var similar []string
	for _, other := range open {
		otherKeywords := ExtractKeywords(other.Title + " " + other.Description)
		if KeywordOverlap(newKeywords, otherKeywords) >= similarityThreshold {
			similar = append(similar, other.ID)
		}
	}

	if len(similar) < 2 {
		return inc, nil, nil
	}
	return inc, &Suggestion{
		Action:             "create_lesson",
		SimilarIncidentIDs: similar,
		Reason: fmt.Sprintf("%d open incidents in this session look similar; consider distilling a lesson",
			len(similar)),
	}, nil
}

// Context is the governance context for an agent about to work: the
// skills and rules that apply, recent approved lessons, and a rendered
// prompt block.
type Context struct {
	Session *store.TrainingSession `json:"session"`
	Skills  []store.Skill          `json:"skills"`
	Rules   []store.Rule           `json:"rules"`
	Lessons []store.Lesson         `json:"lessons"`
	Prompt  string                 `json:"prompt"`
}

// GetContext assembles the training context for (moduleID, projectPath,
// role, taskType). The session is get-or-create so first-time modules
// start clean rather than failing.
func (p *Pipeline) GetContext(moduleID, projectPath, role, taskType string) (*Context, error) {
	sess, err := p.store.GetOrCreateSession(moduleID, projectPath)
	if err != nil {
		return nil, err
	}

	skills, err := p.store.ActiveSkills(projectPath)
	if err != nil {
		return nil, err
	}
	rules, err := p.store.ActiveRules(projectPath)
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		Session: sess,
		Skills:  MatchingSkills(skills, moduleID, role, taskType),
		Rules:   MatchingRules(rules, moduleID, role, taskType),
	}

	lessons, err := p.store.RecentApprovedLessons(sess.ID, p.recentLessons)
	if err == nil {
		ctx.Lessons = lessons
	}

	ctx.Prompt = renderPrompt(ctx)
	return ctx, nil
}

// CheckRules returns the active rules whose applicability covers the
// query, across the whole store or for one project path.
func (p *Pipeline) CheckRules(projectPath, moduleID, role, taskType string) ([]store.Rule, error) {
	rules, err := p.store.ActiveRules(projectPath)
	if err != nil {
		return nil, err
	}
	return MatchingRules(rules, moduleID, role, taskType), nil
}

// renderPrompt formats the training context as markdown suitable for
// direct injection into an agent prompt.
func renderPrompt(ctx *Context) string {
	if len(ctx.Rules) == 0 && len(ctx.Skills) == 0 && len(ctx.Lessons) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Project Governance\n\n")

	if len(ctx.Rules) > 0 {
		b.WriteString("### Rules\n")
		for _, r := range ctx.Rules {
			fmt.Fprintf(&b, "- [%s/%s] **%s**: %s\n", r.Level, r.Enforcement, r.Name, store.Truncate(r.Content, 300))
		}
		b.WriteString("\n")
	}

	if len(ctx.Skills) > 0 {
		b.WriteString("### Skills\n")
		for _, s := range ctx.Skills {
			fmt.Fprintf(&b, "- [%s] **%s**: %s\n", s.Type, s.Name, store.Truncate(s.Content, 300))
		}
		b.WriteString("\n")
	}

	if len(ctx.Lessons) > 0 {
		b.WriteString("### Recent Lessons\n")
		for _, l := range ctx.Lessons {
			fmt.Fprintf(&b, "- **%s**: %s\n", l.Title, store.Truncate(l.Solution, 300))
		}
		b.WriteString("\n")
	}

	return b.String()
}
