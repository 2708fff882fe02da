package assemble

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mentor-mcp/mentor/internal/store"
)

// render produces the payload for the requested format, then enforces
// the token budget by dropping whole sections in ascending priority
// until the output fits. The root summary always survives.
func (e *Engine) render(res *Result, format string, sections map[string]bool, maxTokens int) {
	active := make(map[string]bool, len(sections))
	for s := range sections {
		active[s] = true
	}

	for {
		payload := e.renderOnce(res, format, active)
		if e.estimateTokens(payload) <= maxTokens {
			res.Payload = payload
			return
		}

		dropped := false
		for _, s := range dropOrder {
			if active[s] {
				delete(active, s)
				res.Truncated = true
				dropped = true
				break
			}
		}
		if !dropped {
			// Only the root summary remains; it is never truncated.
			res.Payload = payload
			return
		}
	}
}

// estimateTokens approximates token count as characters divided by a
// configurable ratio. This is a heuristic, not a tokenizer.
func (e *Engine) estimateTokens(text string) int {
	return len(text) / e.charsPerToken
}

func (e *Engine) renderOnce(res *Result, format string, active map[string]bool) string {
	switch format {
	case FormatCompact:
		return renderCompact(res, active)
	case FormatJSON:
		return renderJSON(res, active)
	default:
		return renderClaude(res, active)
	}
}

// ─── claude ─────────────────────────────────────────────────────────────────

func renderClaude(res *Result, active map[string]bool) string {
	var b strings.Builder

	root := res.Entity
	fmt.Fprintf(&b, "# Context: %s (%s)\n\n", root.Title, root.Type)
	if root.Status != "" {
		fmt.Fprintf(&b, "**Status:** %s\n", root.Status)
	}
	if root.ModuleID != "" {
		fmt.Fprintf(&b, "**Module:** %s\n", root.ModuleID)
	}
	if root.Summary != "" {
		fmt.Fprintf(&b, "\n%s\n", root.Summary)
	}
	b.WriteString("\n")

	if active["capability"] {
		writeEntityList(&b, "Capabilities", res.Buckets.Caps)
	}
	if active["knowledge"] {
		writeEntityList(&b, "Knowledge", res.Buckets.Knowledge)
	}
	if active["impact"] {
		writeEntityList(&b, "Impact", res.Buckets.Impact)
	}
	if active["governance"] && (len(res.Buckets.Rules) > 0 || len(res.Buckets.Skills) > 0) {
		b.WriteString("## Governance\n\n")
		writeEntityList(&b, "Rules", res.Buckets.Rules)
		writeEntityList(&b, "Skills", res.Buckets.Skills)
	}
	if active["history"] {
		writeEntityList(&b, "Related Tasks", res.Buckets.Tasks)
		writeEntityList(&b, "Sessions", res.Buckets.Sessions)
		writeEntityList(&b, "Tickets", res.Buckets.Tickets)
		writeEntityList(&b, "Incidents", res.Buckets.Incidents)
		writeEntityList(&b, "Lessons", res.Buckets.Lessons)
	}
	if active["references"] && len(res.References) > 0 {
		b.WriteString("## References\n\n")
		for _, r := range res.References {
			fmt.Fprintf(&b, "- %s/%s —%s→ %s/%s\n",
				r.SourceType, r.SourceID, r.Relationship, r.TargetType, r.TargetID)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeEntityList(b *strings.Builder, heading string, entities []store.EntitySummary) {
	if len(entities) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", heading)
	for _, s := range entities {
		fmt.Fprintf(b, "- **%s**", s.Title)
		if s.Status != "" {
			fmt.Fprintf(b, " (%s)", s.Status)
		}
		if s.Summary != "" {
			fmt.Fprintf(b, ": %s", s.Summary)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// ─── json ───────────────────────────────────────────────────────────────────

func renderJSON(res *Result, active map[string]bool) string {
	doc := map[string]any{
		"entity":        res.Entity,
		"relatedCounts": res.RelatedCounts,
	}

	if active["capability"] {
		putNonEmpty(doc, "capabilities", res.Buckets.Caps)
	}
	if active["knowledge"] {
		putNonEmpty(doc, "knowledge", res.Buckets.Knowledge)
	}
	if active["impact"] {
		putNonEmpty(doc, "impact", res.Buckets.Impact)
	}
	if active["governance"] {
		gov := map[string]any{}
		if len(res.Buckets.Rules) > 0 {
			gov["rules"] = res.Buckets.Rules
		}
		if len(res.Buckets.Skills) > 0 {
			gov["skills"] = res.Buckets.Skills
		}
		if len(gov) > 0 {
			doc["governance"] = gov
		}
	}
	if active["history"] {
		putNonEmpty(doc, "tasks", res.Buckets.Tasks)
		putNonEmpty(doc, "sessions", res.Buckets.Sessions)
		putNonEmpty(doc, "tickets", res.Buckets.Tickets)
		putNonEmpty(doc, "incidents", res.Buckets.Incidents)
		putNonEmpty(doc, "lessons", res.Buckets.Lessons)
	}
	if active["references"] && len(res.References) > 0 {
		doc["references"] = res.References
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func putNonEmpty(doc map[string]any, key string, entities []store.EntitySummary) {
	if len(entities) > 0 {
		doc[key] = entities
	}
}

// ─── compact ────────────────────────────────────────────────────────────────

func renderCompact(res *Result, active map[string]bool) string {
	root := res.Entity
	var parts []string
	add := func(name string, n int) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, name))
		}
	}

	if active["capability"] {
		add("capabilities", len(res.Buckets.Caps))
	}
	if active["knowledge"] {
		add("knowledge", len(res.Buckets.Knowledge))
	}
	if active["impact"] {
		add("impact", len(res.Buckets.Impact))
	}
	if active["governance"] {
		add("rules", len(res.Buckets.Rules))
		add("skills", len(res.Buckets.Skills))
	}
	if active["history"] {
		add("tasks", len(res.Buckets.Tasks))
		add("sessions", len(res.Buckets.Sessions))
		add("tickets", len(res.Buckets.Tickets))
		add("incidents", len(res.Buckets.Incidents))
		add("lessons", len(res.Buckets.Lessons))
	}
	if active["references"] {
		add("references", len(res.References))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("%s %s: no related entities", root.Type, root.ID)
	}
	return fmt.Sprintf("%s %s: %s", root.Type, root.ID, strings.Join(parts, ", "))
}
