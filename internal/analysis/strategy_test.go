package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"knowledge-backend/internal/corpus"
	"knowledge-backend/internal/llm"
)

// scriptedLLM replies with canned responses in order and records prompts.
type scriptedLLM struct {
	responses []string
	err       error
	prompts   []string
}

func (c *scriptedLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.err != nil {
		return "", c.err
	}
	c.prompts = append(c.prompts, req.User)
	if len(c.prompts) > len(c.responses) {
		return "", fmt.Errorf("unexpected call %d", len(c.prompts))
	}
	return c.responses[len(c.prompts)-1], nil
}

func testBundle() corpus.Bundle {
	return corpus.Bundle{
		TenantID: "tenant-1",
		Docs: []corpus.PreparedDoc{
			{DocumentID: "doc-1", Title: "Vendor kickoff notes", Date: "2026-02-10", Text: "We went with vendor A for the payments integration."},
			{DocumentID: "doc-2", Title: "Sprint retro", Date: "2026-02-17", Text: "Release process changed again this sprint."},
		},
		TotalChars:        100,
		DocumentsTotal:    2,
		DocumentsIncluded: 2,
	}
}

const singleGapResponse = `{"gaps": [{"title": "Payments vendor rationale", "category": "decision", "priority": 4,
	"questions": ["Why vendor A over vendor B?"],
	"evidence": [{"documentId": "doc-1", "quote": "went with vendor A"}]}]}`

func TestForMode(t *testing.T) {
	client := &scriptedLLM{}
	cases := []struct {
		mode string
		want string
	}{
		{ModeSimple, ModeSimple},
		{"", ModeSimple},
		{ModeMultiStage, ModeMultiStage},
		{ModeGoalFirst, ModeGoalFirst},
		{ModeIntelligent, ModeIntelligent},
		{ModeDeep, ModeDeep},
	}
	for _, tc := range cases {
		strategy, err := ForMode(tc.mode, client, nil)
		if err != nil {
			t.Fatalf("ForMode(%q): %v", tc.mode, err)
		}
		if strategy.Name() != tc.want {
			t.Errorf("ForMode(%q).Name() = %q, want %q", tc.mode, strategy.Name(), tc.want)
		}
	}
	if _, err := ForMode("quantum", client, nil); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestSimpleStrategyAnalyze(t *testing.T) {
	client := &scriptedLLM{responses: []string{singleGapResponse}}
	strategy := &SimpleStrategy{LLM: client}

	candidates, err := strategy.Analyze(context.Background(), testBundle())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Title != "Payments vendor rationale" {
		t.Fatalf("unexpected candidates: %+v", candidates)
	}
	if len(client.prompts) != 1 {
		t.Fatalf("expected a single LLM call, got %d", len(client.prompts))
	}
	if !strings.Contains(client.prompts[0], "doc-1") || !strings.Contains(client.prompts[0], "Vendor kickoff notes") {
		t.Fatal("prompt missing corpus content")
	}
}

func TestSimpleStrategyLLMFailure(t *testing.T) {
	strategy := &SimpleStrategy{LLM: &scriptedLLM{err: errors.New("openai: http status 503")}}

	_, err := strategy.Analyze(context.Background(), testBundle())
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("got %v, want ErrAnalysisFailed", err)
	}
}

func TestSimpleStrategyUnparseableResponse(t *testing.T) {
	strategy := &SimpleStrategy{LLM: &scriptedLLM{responses: []string{"I could not find any gaps, sorry!"}}}

	_, err := strategy.Analyze(context.Background(), testBundle())
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("got %v, want ErrAnalysisFailed", err)
	}
}

func TestMultiStageStrategyRunsFiveStages(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		"mental model of the team",
		"expert: the rollback procedure lives in my head",
		"new hire: how do I get staging access?",
		"failure mode: only one person can cut a release",
		singleGapResponse,
	}}
	strategy := &MultiStageStrategy{LLM: client}

	candidates, err := strategy.Analyze(context.Background(), testBundle())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	if len(client.prompts) != 5 {
		t.Fatalf("expected 5 LLM calls, got %d", len(client.prompts))
	}
	// Stages 2-4 consume the stage-1 mental model, not the raw corpus.
	for i := 1; i <= 3; i++ {
		if !strings.Contains(client.prompts[i], "mental model of the team") {
			t.Errorf("stage %d prompt missing stage 1 output", i+1)
		}
	}
	if !strings.Contains(client.prompts[4], "rollback procedure") || !strings.Contains(client.prompts[4], "staging access") {
		t.Fatal("synthesis prompt missing intermediate outputs")
	}
}

func TestMultiStageStrategyMidPipelineFailure(t *testing.T) {
	client := &scriptedLLM{responses: []string{"mental model"}}
	strategy := &MultiStageStrategy{LLM: client}

	_, err := strategy.Analyze(context.Background(), testBundle())
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("got %v, want ErrAnalysisFailed", err)
	}
}

func TestStrategyHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	strategy := &MultiStageStrategy{LLM: &scriptedLLM{responses: []string{"unused"}}}

	_, err := strategy.Analyze(ctx, testBundle())
	if !errors.Is(err, ErrAnalysisFailed) || !strings.Contains(err.Error(), "context canceled") {
		t.Fatalf("got %v, want cancellation surfaced as analysis failure", err)
	}
}
