package analysis

import (
	"context"
	"errors"
	"fmt"

	"knowledge-backend/internal/corpus"
	"knowledge-backend/internal/llm"
)

// ErrAnalysisFailed wraps a total strategy failure. Partial candidates from
// a failed run are discarded by the caller; nothing is persisted.
var ErrAnalysisFailed = errors.New("analysis failed")

// Strategy turns a prepared corpus bundle into gap candidates. Strategies
// are pure functions of the bundle plus configuration; they never persist
// state. Per-candidate parse failures are recovered internally; only a
// total failure (upstream LLM unavailable, no usable output) is an error.
type Strategy interface {
	Name() string
	Analyze(ctx context.Context, bundle corpus.Bundle) ([]Candidate, error)
}

// Analysis modes, selected per tenant configuration.
const (
	ModeSimple      = "simple"
	ModeMultiStage  = "multistage"
	ModeGoalFirst   = "goalfirst"
	ModeIntelligent = "intelligent"
	ModeDeep        = "deep"
)

// ForMode returns the strategy implementation for a configured mode.
// Weights are only consumed by the deep strategy; others ignore them.
func ForMode(mode string, client llm.Client, weights Weights) (Strategy, error) {
	switch mode {
	case ModeSimple, "":
		return &SimpleStrategy{LLM: client}, nil
	case ModeMultiStage:
		return &MultiStageStrategy{LLM: client}, nil
	case ModeGoalFirst:
		return &GoalFirstStrategy{LLM: client}, nil
	case ModeIntelligent:
		return &IntelligentStrategy{LLM: client}, nil
	case ModeDeep:
		return &DeepStrategy{LLM: client, Weights: weights}, nil
	default:
		return nil, fmt.Errorf("unknown analysis mode %q", mode)
	}
}

func failed(strategy string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrAnalysisFailed, strategy, err)
}
