package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// Exercises the backward-from-goals flow end to end: ship payments fast is
// the goal, vendor A is the decision, vendor B the inferred rejected
// alternative, and the final pass asks why A won over B.
func TestGoalFirstStrategyVendorScenario(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		"Ship the payments integration by end of Q1 (doc-1)",
		"strategic | chose vendor A for payments | doc-1",
		"chose vendor A for payments -> vendor B",
		`{"gaps": [{"title": "Payments vendor choice", "category": "rationale", "priority": 4,
			"questions": ["Why vendor A over vendor B?", "What trade-offs were weighed?", "Who made the call?"],
			"evidence": [{"documentId": "doc-1"}]}]}`,
	}}
	strategy := &GoalFirstStrategy{LLM: client}

	candidates, err := strategy.Analyze(context.Background(), testBundle())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(client.prompts) != 4 {
		t.Fatalf("expected 4 passes, got %d", len(client.prompts))
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	c := candidates[0]
	if c.Category != CategoryRationale {
		t.Fatalf("category = %q", c.Category)
	}
	if len(c.Questions) != 3 || !strings.Contains(c.Questions[0], "vendor A over vendor B") {
		t.Fatalf("questions = %+v", c.Questions)
	}

	// Pass 3 works from extracted decisions, pass 4 from all three priors.
	if !strings.Contains(client.prompts[2], "chose vendor A") {
		t.Fatal("alternatives pass missing decisions")
	}
	final := client.prompts[3]
	for _, want := range []string{"Ship the payments integration", "chose vendor A", "vendor B"} {
		if !strings.Contains(final, want) {
			t.Fatalf("final pass prompt missing %q", want)
		}
	}
}

func TestGoalFirstStrategyEarlyPassFailure(t *testing.T) {
	strategy := &GoalFirstStrategy{LLM: &scriptedLLM{err: errors.New("connection refused")}}

	_, err := strategy.Analyze(context.Background(), testBundle())
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("got %v, want ErrAnalysisFailed", err)
	}
}
