// Package training implements the governance pipeline logic layered on
// the entity store: incident similarity, applicability matching, the
// lesson suggestion heuristic and the training-context query.
package training

import "strings"

// stopWords is the fixed list of common English function words dropped
// during keyword extraction.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true,
	"has": true, "his": true, "how": true, "its": true, "may": true,
	"new": true, "now": true, "old": true, "see": true, "two": true,
	"way": true, "who": true, "did": true, "get": true, "him": true,
	"this": true, "that": true, "with": true, "from": true, "they": true,
	"have": true, "been": true, "were": true, "when": true, "where": true,
	"will": true, "would": true, "there": true, "their": true, "what": true,
	"about": true, "which": true, "into": true, "then": true, "than": true,
	"them": true, "these": true, "some": true, "could": true, "other": true,
	"after": true, "also": true, "because": true, "does": true, "only": true,
	"over": true, "such": true, "very": true, "while": true, "should": true,
}

// ExtractKeywords tokenizes text into a keyword set: lowercase, strip
// non-alphanumerics, drop tokens of two characters or fewer, drop stop
// words.
func ExtractKeywords(text string) map[string]bool {
	keywords := make(map[string]bool)
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := b.String()
		b.Reset()
		if len(tok) <= 2 || stopWords[tok] {
			return
		}
		keywords[tok] = true
	}

	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return keywords
}

// KeywordOverlap returns the size of the intersection of two keyword sets.
func KeywordOverlap(a, b map[string]bool) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if b[k] {
			n++
		}
	}
	return n
}

// similarityThreshold is the minimum keyword overlap for two incidents
// to count as similar.
const similarityThreshold = 2
