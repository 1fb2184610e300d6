package analysis

import (
	"context"
	"fmt"

	"knowledge-backend/internal/corpus"
	"knowledge-backend/internal/llm"
)

// MultiStageStrategy runs five sequential passes, each feeding its textual
// output into the next: corpus mental model, expert simulation, new-hire
// simulation, failure-mode enumeration, and final synthesis.
type MultiStageStrategy struct {
	LLM llm.Client
}

// Name returns the mode identifier.
func (s *MultiStageStrategy) Name() string { return ModeMultiStage }

// Analyze walks the five-stage pipeline. Stages are strictly dependent, so
// they run sequentially; cancellation is honored between stages.
func (s *MultiStageStrategy) Analyze(ctx context.Context, bundle corpus.Bundle) ([]Candidate, error) {
	corpusText := renderCorpus(bundle)

	mentalModel, err := s.stage(ctx, fmt.Sprintf(`Build a mental model of this team's work from the corpus below. Summarize: what the team is building, who is involved, what decisions were made, what processes exist, and the overall timeline.

%s`, corpusText))
	if err != nil {
		return nil, failed(s.Name(), fmt.Errorf("stage 1 mental model: %w", err))
	}

	expertView, err := s.stage(ctx, fmt.Sprintf(`You are the most senior expert on this team. Given this summary of the team's work, list the implicit knowledge you carry in your head that is NOT written down anywhere: unstated assumptions, tribal knowledge, context behind decisions.

Summary:
%s`, mentalModel))
	if err != nil {
		return nil, failed(s.Name(), fmt.Errorf("stage 2 expert simulation: %w", err))
	}

	newHireView, err := s.stage(ctx, fmt.Sprintf(`You are a new hire joining this team tomorrow. Given this summary of the team's work, list the questions you would need answered in your first month that the documents do not answer.

Summary:
%s`, mentalModel))
	if err != nil {
		return nil, failed(s.Name(), fmt.Errorf("stage 3 new hire simulation: %w", err))
	}

	failureModes, err := s.stage(ctx, fmt.Sprintf(`Given this summary of a team's work, enumerate plausible failure modes: what could go wrong because knowledge is missing, concentrated in one person, or contradictory across documents.

Summary:
%s`, mentalModel))
	if err != nil {
		return nil, failed(s.Name(), fmt.Errorf("stage 4 failure modes: %w", err))
	}

	synthesis := fmt.Sprintf(`Synthesize knowledge gaps from four analyses of the same corpus.

Expert's implicit knowledge:
%s

New hire's unanswered questions:
%s

Plausible failure modes:
%s

Corpus (for document ids to cite as evidence):
%s

%s`, expertView, newHireView, failureModes, corpusText, gapSchemaPrompt)

	raw, err := s.LLM.Complete(ctx, llm.Request{System: systemPromptGaps, User: synthesis, WantJSON: true})
	if err != nil {
		return nil, failed(s.Name(), fmt.Errorf("stage 5 synthesis: %w", err))
	}

	candidates, err := parseCandidates(s.Name(), raw)
	if err != nil {
		return nil, failed(s.Name(), fmt.Errorf("stage 5 unparseable response: %w", err))
	}
	return candidates, nil
}

func (s *MultiStageStrategy) stage(ctx context.Context, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.LLM.Complete(ctx, llm.Request{System: systemPromptAnalyst, User: user})
}
