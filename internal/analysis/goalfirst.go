package analysis

import (
	"context"
	"fmt"

	"knowledge-backend/internal/corpus"
	"knowledge-backend/internal/llm"
)

// GoalFirstStrategy works backward from stated goals: extract goals, bucket
// decisions, infer rejected alternatives, then ask "why X over Y" for each
// goal/decision/alternative triple. Four sequential passes.
type GoalFirstStrategy struct {
	LLM llm.Client
}

// Name returns the mode identifier.
func (s *GoalFirstStrategy) Name() string { return ModeGoalFirst }

// Analyze walks the four-pass pipeline.
func (s *GoalFirstStrategy) Analyze(ctx context.Context, bundle corpus.Bundle) ([]Candidate, error) {
	corpusText := renderCorpus(bundle)

	goals, err := s.pass(ctx, fmt.Sprintf(`Extract the stated project goals from this corpus. List each goal on its own line with the document id it came from.

%s`, corpusText))
	if err != nil {
		return nil, failed(s.Name(), fmt.Errorf("pass 1 goals: %w", err))
	}

	decisions, err := s.pass(ctx, fmt.Sprintf(`Extract every decision from this corpus and bucket each as strategic, scope, timeline, or financial. List each as "bucket | decision | document id".

%s`, corpusText))
	if err != nil {
		return nil, failed(s.Name(), fmt.Errorf("pass 2 decisions: %w", err))
	}

	alternatives, err := s.pass(ctx, fmt.Sprintf(`For each decision below, infer the plausible alternatives that were likely considered and rejected, even if the documents never mention them. List each as "decision -> rejected alternative".

Decisions:
%s`, decisions))
	if err != nil {
		return nil, failed(s.Name(), fmt.Errorf("pass 3 alternatives: %w", err))
	}

	final := fmt.Sprintf(`Generate knowledge gaps about decision rationale. For each goal/decision/alternative triple below, produce a gap whose questions ask why the chosen option won over the alternative ("why X over Y"), what trade-offs were weighed, and who made the call. Use category "decision" or "rationale". Cite the decision's document id as evidence.

Goals:
%s

Decisions:
%s

Rejected alternatives:
%s

%s`, goals, decisions, alternatives, gapSchemaPrompt)

	raw, err := s.LLM.Complete(ctx, llm.Request{System: systemPromptGaps, User: final, WantJSON: true})
	if err != nil {
		return nil, failed(s.Name(), fmt.Errorf("pass 4 questions: %w", err))
	}

	candidates, err := parseCandidates(s.Name(), raw)
	if err != nil {
		return nil, failed(s.Name(), fmt.Errorf("pass 4 unparseable response: %w", err))
	}
	return candidates, nil
}

func (s *GoalFirstStrategy) pass(ctx context.Context, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.LLM.Complete(ctx, llm.Request{System: systemPromptAnalyst, User: user})
}
