package agent

import (
	"errors"
	"strings"
	"testing"
)

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    []string
		wantErr bool
	}{
		{
			name:   "numbered list",
			output: "1. What is a vector index?\n2. How does cosine similarity work?\n3. What is chunk overlap for?",
			want: []string{
				"What is a vector index?",
				"How does cosine similarity work?",
				"What is chunk overlap for?",
			},
		},
		{
			name:   "paren markers and bullets",
			output: "1) first question\n2) second question\n- third question",
			want:   []string{"first question", "second question", "third question"},
		},
		{
			name:   "preamble prose is skipped",
			output: "Sure, here is the plan:\n\n1. alpha\n2. beta\n\nLet me know if you need more.",
			want:   []string{"alpha", "beta"},
		},
		{
			name:   "bold markers trimmed",
			output: "1. **alpha**\n2. *beta*",
			want:   []string{"alpha", "beta"},
		},
		{
			name:    "plain prose fails",
			output:  "I would start by looking at the index and then the retriever.",
			wantErr: true,
		},
		{
			name:    "single item fails",
			output:  "1. only one question",
			wantErr: true,
		},
		{
			name:    "empty output fails",
			output:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePlan(tt.output)
			if tt.wantErr {
				if !errors.Is(err, errPlanParse) {
					t.Fatalf("parsePlan() error = %v, want errPlanParse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePlan() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parsePlan() = %d steps, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("step %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParsePlanTruncatesLongPlans(t *testing.T) {
	output := "1. a\n2. b\n3. c\n4. d\n5. e\n6. f\n7. g"

	got, err := parsePlan(output)
	if err != nil {
		t.Fatalf("parsePlan() error = %v", err)
	}
	if len(got) != maxPlanSteps {
		t.Fatalf("parsePlan() = %d steps, want %d", len(got), maxPlanSteps)
	}
	if got[maxPlanSteps-1] != "e" {
		t.Errorf("last step = %q, want %q", got[maxPlanSteps-1], "e")
	}
}

func TestPlanPrompt(t *testing.T) {
	input := "how does ingestion stay atomic?"

	relaxed := planPrompt(input, false)
	if !strings.Contains(relaxed, input) {
		t.Error("relaxed prompt does not contain the question")
	}

	strict := planPrompt(input, true)
	if !strings.Contains(strict, input) {
		t.Error("strict prompt does not contain the question")
	}
	if !strings.Contains(strict, "NOTHING else") {
		t.Error("strict prompt does not tighten the format instruction")
	}
	if relaxed == strict {
		t.Error("strict prompt should differ from the relaxed one")
	}
}

func TestSynthesisPromptNumbersFindings(t *testing.T) {
	plan := []string{"first question", "second question"}
	results := []string{"first finding", "second finding"}

	got := synthesisPrompt("the big question", plan, results)

	if !strings.Contains(got, "the big question") {
		t.Error("prompt does not contain the original question")
	}
	if !strings.Contains(got, "1. first question\nfirst finding") {
		t.Errorf("prompt does not pair step 1 with its finding:\n%s", got)
	}
	if !strings.Contains(got, "2. second question\nsecond finding") {
		t.Errorf("prompt does not pair step 2 with its finding:\n%s", got)
	}
}
