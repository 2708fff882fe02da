// Package assemble implements the context assembly engine: breadth-first
// traversal of the entity reference graph around a root entity, category
// bucketing, applicability filtering for governance entities, and
// budget-constrained formatting.
package assemble

import (
	"fmt"
	"log"

	"github.com/mentor-mcp/mentor/internal/store"
	"github.com/mentor-mcp/mentor/internal/training"
)

// Format names for the rendered payload.
const (
	FormatClaude  = "claude"
	FormatJSON    = "json"
	FormatCompact = "compact"
)

// Section names accepted in the sections filter.
var sectionNames = []string{
	"capability", "knowledge", "impact", "governance", "history", "references",
}

// dropOrder lists sections in ascending truncation priority: the first
// entry is dropped first when the payload exceeds the token budget, the
// last survives longest. The root entity's own summary is never dropped.
var dropOrder = []string{
	"references", "history", "governance", "impact", "knowledge", "capability",
}

// Engine assembles bounded context payloads from the reference graph.
type Engine struct {
	store         *store.Store
	charsPerToken int
	maxDepth      int
	maxTokens     int
}

// New creates an Engine. charsPerToken <= 0 falls back to the chars/4
// approximation; maxDepth <= 0 falls back to 5; maxTokens <= 0 falls
// back to 8000.
func New(s *store.Store, charsPerToken, maxDepth, maxTokens int) *Engine {
	if charsPerToken <= 0 {
		charsPerToken = 4
	}
	if maxDepth <= 0 {
		maxDepth = 5
	}
	if maxTokens <= 0 {
		maxTokens = 8000
	}
	return &Engine{store: s, charsPerToken: charsPerToken, maxDepth: maxDepth, maxTokens: maxTokens}
}

// Input names a root entity and how to render its neighborhood.
type Input struct {
	EntityType string
	EntityID   string
	Format     string   // claude|json|compact; default claude
	Sections   []string // empty = all sections
	MaxTokens  int      // default: engine's configured budget
	Depth      int      // default 1, capped by the engine's maxDepth
}

// Buckets groups discovered entities by category.
type Buckets struct {
	Tasks     []store.EntitySummary `json:"tasks,omitempty"`
	Sessions  []store.EntitySummary `json:"sessions,omitempty"`
	Knowledge []store.EntitySummary `json:"knowledge,omitempty"`
	Impact    []store.EntitySummary `json:"impact,omitempty"`
	Rules     []store.EntitySummary `json:"rules,omitempty"`
	Skills    []store.EntitySummary `json:"skills,omitempty"`
	Tickets   []store.EntitySummary `json:"tickets,omitempty"`
	Incidents []store.EntitySummary `json:"incidents,omitempty"`
	Lessons   []store.EntitySummary `json:"lessons,omitempty"`
	Caps      []store.EntitySummary `json:"capabilities,omitempty"`
}

// Result is the assembled payload plus its metadata.
type Result struct {
	Entity        *store.EntitySummary     `json:"entity"`
	Buckets       Buckets                  `json:"buckets"`
	References    []store.EntityReference  `json:"references,omitempty"`
	RelatedCounts map[string]int           `json:"relatedCounts"`
	Format        string                   `json:"format"`
	Payload       string                   `json:"payload,omitempty"`
	Truncated     bool                     `json:"truncated"`
}

// Assemble resolves the root, walks the graph, buckets and renders.
// A missing root is the only hard failure; traversal errors degrade to
// empty buckets: a context payload with fewer sections than requested is
// preferable to no payload.
func (e *Engine) Assemble(in Input) (*Result, error) {
	root, err := e.store.ResolveEntity(in.EntityType, in.EntityID)
	if err != nil {
		return nil, err
	}

	depth := in.Depth
	if depth <= 0 {
		depth = 1
	}
	if depth > e.maxDepth {
		depth = e.maxDepth
	}
	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = e.maxTokens
	}
	format := in.Format
	if format == "" {
		format = FormatClaude
	}
	if format != FormatClaude && format != FormatJSON && format != FormatCompact {
		return nil, fmt.Errorf("%w: unknown format %q", store.ErrConstraint, format)
	}
	sections, err := normalizeSections(in.Sections)
	if err != nil {
		return nil, err
	}

	buckets, refs := e.traverse(root, depth)

	res := &Result{
		Entity:        root,
		Buckets:       buckets,
		References:    refs,
		RelatedCounts: counts(buckets, refs),
		Format:        format,
	}
	e.render(res, format, sections, maxTokens)
	return res, nil
}

type queueItem struct {
	typ, id string
	depth   int
}

// traverse walks the reference graph bidirectionally from the root up to
// depth hops. The visited set is keyed (type, id) so cycles terminate
// and each entity appears at most once.
func (e *Engine) traverse(root *store.EntitySummary, depth int) (Buckets, []store.EntityReference) {
	var buckets Buckets
	var refs []store.EntityReference
	seenRefs := make(map[string]bool)

	visited := map[string]bool{entityKey(root.Type, root.ID): true}
	queue := []queueItem{{typ: root.Type, id: root.ID, depth: 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.depth >= depth {
			continue
		}

		touching, err := e.store.ReferencesTouching(current.typ, current.id)
		if err != nil {
			log.Printf("WARNING: context traversal at %s/%s: %v", current.typ, current.id, err)
			continue
		}

		for _, ref := range touching {
			if !seenRefs[ref.ID] {
				seenRefs[ref.ID] = true
				refs = append(refs, ref)
			}

			otherType, otherID := ref.TargetType, ref.TargetID
			if otherType == current.typ && otherID == current.id {
				otherType, otherID = ref.SourceType, ref.SourceID
			}

			key := entityKey(otherType, otherID)
			if visited[key] {
				continue
			}
			visited[key] = true

			if summary := e.resolve(root, otherType, otherID); summary != nil {
				buckets.add(*summary)
			}

			queue = append(queue, queueItem{typ: otherType, id: otherID, depth: current.depth + 1})
		}
	}

	return buckets, refs
}

// resolve fetches the summary for a discovered entity. Governance
// entities are applicability-matched against the root when the root is a
// task, so graph-connected but irrelevant rules/skills drop out. A
// resolution failure degrades to nil (dangling references are skipped).
func (e *Engine) resolve(root *store.EntitySummary, typ, id string) *store.EntitySummary {
	filterGovernance := root.Type == "task"

	switch typ {
	case "rule":
		r, err := e.store.GetRule(id)
		if err != nil {
			return nil
		}
		if filterGovernance && (r.Status != "active" || !training.Matches(r.Applicability, root.ModuleID, root.Role, root.TaskType)) {
			return nil
		}
	case "skill":
		sk, err := e.store.GetSkill(id)
		if err != nil {
			return nil
		}
		if filterGovernance && (sk.Status != "active" || !training.Matches(sk.Applicability, root.ModuleID, root.Role, root.TaskType)) {
			return nil
		}
	}

	summary, err := e.store.ResolveEntity(typ, id)
	if err != nil {
		return nil
	}
	return summary
}

func (b *Buckets) add(s store.EntitySummary) {
	switch s.Type {
	case "task":
		b.Tasks = append(b.Tasks, s)
	case "session":
		b.Sessions = append(b.Sessions, s)
	case "knowledge":
		b.Knowledge = append(b.Knowledge, s)
	case "impact":
		b.Impact = append(b.Impact, s)
	case "rule":
		b.Rules = append(b.Rules, s)
	case "skill":
		b.Skills = append(b.Skills, s)
	case "ticket":
		b.Tickets = append(b.Tickets, s)
	case "incident":
		b.Incidents = append(b.Incidents, s)
	case "lesson":
		b.Lessons = append(b.Lessons, s)
	case "capability":
		b.Caps = append(b.Caps, s)
	}
}

func counts(b Buckets, refs []store.EntityReference) map[string]int {
	c := map[string]int{}
	put := func(name string, n int) {
		if n > 0 {
			c[name] = n
		}
	}
	put("tasks", len(b.Tasks))
	put("sessions", len(b.Sessions))
	put("knowledge", len(b.Knowledge))
	put("impact", len(b.Impact))
	put("rules", len(b.Rules))
	put("skills", len(b.Skills))
	put("tickets", len(b.Tickets))
	put("incidents", len(b.Incidents))
	put("lessons", len(b.Lessons))
	put("capabilities", len(b.Caps))
	put("references", len(refs))
	return c
}

func entityKey(typ, id string) string {
	return typ + ":" + id
}

func normalizeSections(requested []string) (map[string]bool, error) {
	if len(requested) == 0 {
		all := make(map[string]bool, len(sectionNames))
		for _, s := range sectionNames {
			all[s] = true
		}
		return all, nil
	}

	valid := make(map[string]bool, len(sectionNames))
	for _, s := range sectionNames {
		valid[s] = true
	}
	out := make(map[string]bool, len(requested))
	for _, s := range requested {
		if !valid[s] {
			return nil, fmt.Errorf("%w: unknown section %q", store.ErrConstraint, s)
		}
		out[s] = true
	}
	return out, nil
}
