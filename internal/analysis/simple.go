package analysis

import (
	"context"
	"fmt"

	"knowledge-backend/internal/corpus"
	"knowledge-backend/internal/llm"
)

// SimpleStrategy issues a single LLM call asking for gaps directly.
// Lowest latency, lowest precision.
type SimpleStrategy struct {
	LLM llm.Client
}

// Name returns the mode identifier.
func (s *SimpleStrategy) Name() string { return ModeSimple }

// Analyze performs one completion over the whole bundle.
func (s *SimpleStrategy) Analyze(ctx context.Context, bundle corpus.Bundle) ([]Candidate, error) {
	user := fmt.Sprintf(`Below is a corpus of a team's work documents. Identify the most important missing pieces of organizational knowledge: decisions whose rationale is undocumented, processes nobody wrote down, context a new team member would lack.

%s

%s`, renderCorpus(bundle), gapSchemaPrompt)

	raw, err := s.LLM.Complete(ctx, llm.Request{
		System:   systemPromptGaps,
		User:     user,
		WantJSON: true,
	})
	if err != nil {
		return nil, failed(s.Name(), err)
	}

	candidates, err := parseCandidates(s.Name(), raw)
	if err != nil {
		return nil, failed(s.Name(), fmt.Errorf("unparseable response: %w", err))
	}
	return candidates, nil
}
