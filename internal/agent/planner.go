package agent

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// errPlanParse indicates the model's plan output was not a usable ordered
// list. Recovered inside the orchestrator (one stricter retry, then the
// single-step fallback); it never escapes a run.
var errPlanParse = errors.New("plan output is not an ordered list")

// Plan size bounds. The prompt asks for 3-5 sub-questions; parsing
// tolerates slightly more before declaring the output malformed, and
// anything beyond maxPlanSteps is truncated rather than rejected.
const (
	minPlanSteps = 2
	maxPlanSteps = 5
)

const planPromptFormat = `Decompose the following question into 3 to 5 ordered sub-questions for research.
Each sub-question must be answerable on its own from a document collection.
Respond with a numbered list only, one sub-question per line, no preamble.

Question: %s`

const strictPlanPromptFormat = `Your previous response was not a plain numbered list. Try again.
Decompose the question into 3 to 5 sub-questions.
Output format, with NOTHING else — no introduction, no commentary, no blank lines between items:
1. <first sub-question>
2. <second sub-question>
3. <third sub-question>

Question: %s`

func planPrompt(input string, strict bool) string {
	if strict {
		return fmt.Sprintf(strictPlanPromptFormat, input)
	}
	return fmt.Sprintf(planPromptFormat, input)
}

// listItemRe strips a leading list marker: "1.", "2)", "-", "*".
var listItemRe = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*])\s+(.+)$`)

// parsePlan extracts ordered sub-questions from the model's plan output.
// Lines that are not list items (headings, prose preambles) are ignored;
// the plan is the list items in order. Fewer than minPlanSteps usable
// items means the output was not a decomposition and parsing fails.
func parsePlan(output string) ([]string, error) {
	var steps []string
	for _, line := range strings.Split(output, "\n") {
		m := listItemRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		step := strings.TrimSpace(strings.Trim(m[1], "*_`"))
		if step == "" {
			continue
		}
		steps = append(steps, step)
	}

	if len(steps) < minPlanSteps {
		return nil, fmt.Errorf("%w: found %d list items", errPlanParse, len(steps))
	}
	if len(steps) > maxPlanSteps {
		steps = steps[:maxPlanSteps]
	}
	return steps, nil
}

const synthesisPromptFormat = `You are a research assistant. Below is the original question and the findings from each research step.
Write a final, coherent answer to the original question using only these findings.
If the findings are insufficient or contradictory, say so explicitly.

Original question: %s

Research findings:
%s

Final answer:`

// synthesisPrompt builds the final completion prompt from the accumulated
// step answers, numbered by step so the model can reference them.
func synthesisPrompt(input string, plan, results []string) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n%s\n\n", i+1, plan[i], r)
	}
	return fmt.Sprintf(synthesisPromptFormat, input, strings.TrimSpace(b.String()))
}
