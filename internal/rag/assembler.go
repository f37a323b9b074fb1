package rag

import (
	"strings"
	"unicode/utf8"

	"github.com/koopa0/sage/internal/index"
)

// DefaultContextBudget is the maximum number of characters of assembled
// context handed to generation. Roughly 2000 tokens, leaving ample room
// for the instruction and question inside common model context windows.
const DefaultContextBudget = 8000

// separator between passages in the assembled context.
const separator = "\n---\n"

// Context is the assembled, budgeted retrieval context for one question.
type Context struct {
	// Text is the rank-ordered concatenation of the included passages,
	// each prefixed with its source title. Empty when nothing matched.
	Text string

	// Confidence is the mean similarity of the included matches, in [0,1].
	// 0 means no evidence was found. Heuristic only; see package doc.
	Confidence float32

	// Sources are the titles of the included passages, in rank order,
	// deduplicated. Used for answer attribution.
	Sources []string
}

// Assembler formats retrieval matches into a bounded prompt context.
type Assembler struct {
	budget int
}

// NewAssembler creates an Assembler with the given character budget.
// A non-positive budget selects DefaultContextBudget.
func NewAssembler(budget int) *Assembler {
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	return &Assembler{budget: budget}
}

// Assemble builds the context from matches, assumed ranked by descending
// score (Retriever guarantees this). Matches are included best-first until
// the budget would be exceeded; the rest are dropped. Confidence averages
// only the included matches.
func (a *Assembler) Assemble(matches []index.Match) Context {
	if len(matches) == 0 {
		return Context{}
	}

	var (
		b        strings.Builder
		scoreSum float32
		included int
		sources  []string
		seen     = map[string]bool{}
	)

	for _, m := range matches {
		title := m.Metadata[index.MetaTitle]
		if title == "" {
			title = m.ID
		}
		block := "[" + title + "]\n" + m.Content

		cost := len(block)
		if included > 0 {
			cost += len(separator)
		}
		if b.Len()+cost > a.budget {
			break
		}

		if included > 0 {
			b.WriteString(separator)
		}
		b.WriteString(block)
		scoreSum += m.Score
		included++
		if !seen[title] {
			seen[title] = true
			sources = append(sources, title)
		}
	}

	// A top match bigger than the whole budget is still evidence: truncate
	// it rather than reporting "nothing found".
	if included == 0 {
		best := matches[0]
		title := best.Metadata[index.MetaTitle]
		if title == "" {
			title = best.ID
		}
		block := "[" + title + "]\n" + best.Content
		if len(block) > a.budget {
			block = truncateRuneSafe(block, a.budget)
		}
		return Context{Text: block, Confidence: best.Score, Sources: []string{title}}
	}
	return Context{
		Text:       b.String(),
		Confidence: scoreSum / float32(included),
		Sources:    sources,
	}
}

// truncateRuneSafe cuts s to at most max bytes without splitting a rune.
func truncateRuneSafe(s string, max int) string {
	if max >= len(s) {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
