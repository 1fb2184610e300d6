package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"knowledge-backend/internal/corpus"
	"knowledge-backend/internal/llm"
)

// DeepStrategy is the v3 pipeline: six LLM passes with schema-validated
// structured output at each stage, explicit prioritization scoring in the
// final pass, and direct consumption of per-tenant priority weights to bias
// question generation toward historically useful categories.
type DeepStrategy struct {
	LLM     llm.Client
	Weights Weights
}

// Name returns the mode identifier.
func (s *DeepStrategy) Name() string { return ModeDeep }

type corpusModel struct {
	Themes    []string `json:"themes"`
	Actors    []string `json:"actors"`
	Decisions []string `json:"decisions"`
	Processes []string `json:"processes"`
}

type knowledgeItem struct {
	Statement string `json:"statement"`
	Holder    string `json:"holder,omitempty"`
}

type gapHypothesis struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

type groundedHypothesis struct {
	Title    string     `json:"title"`
	Category string     `json:"category"`
	Reason   string     `json:"reason"`
	Evidence []Evidence `json:"evidence"`
	Grounded bool       `json:"grounded"`
}

// Analyze walks the six-pass pipeline. Every intermediate response must
// satisfy its stage schema or the run fails; there is no free-text glue.
func (s *DeepStrategy) Analyze(ctx context.Context, bundle corpus.Bundle) ([]Candidate, error) {
	corpusText := renderCorpus(bundle)

	// Pass 1: structured corpus model.
	var model corpusModel
	if err := s.pass(ctx, fmt.Sprintf(`Extract a structured model of this corpus. Return JSON: {"themes": [...], "actors": [...], "decisions": [...], "processes": [...]}.

%s`, corpusText), &model); err != nil {
		return nil, failed(s.Name(), fmt.Errorf("pass 1 corpus model: %w", err))
	}

	// Pass 2: implicit knowledge inventory.
	var implicit struct {
		Items []knowledgeItem `json:"items"`
	}
	if err := s.pass(ctx, fmt.Sprintf(`Given this corpus model, list the implicit knowledge the team relies on that is not written down. Return JSON: {"items": [{"statement": "...", "holder": "person or role if identifiable"}]}.

Model:
%s`, mustJSON(model)), &implicit); err != nil {
		return nil, failed(s.Name(), fmt.Errorf("pass 2 implicit knowledge: %w", err))
	}

	// Pass 3: gap hypotheses.
	var hypotheses struct {
		Gaps []gapHypothesis `json:"gaps"`
	}
	if err := s.pass(ctx, fmt.Sprintf(`Propose knowledge gap hypotheses from this implicit-knowledge inventory. Return JSON: {"gaps": [{"title": "...", "category": "one of: %s", "reason": "..."}]}.

Inventory:
%s`, strings.Join(Categories, ", "), mustJSON(implicit)), &hypotheses); err != nil {
		return nil, failed(s.Name(), fmt.Errorf("pass 3 hypotheses: %w", err))
	}

	// Pass 4: evidence grounding against the corpus.
	var grounded struct {
		Gaps []groundedHypothesis `json:"gaps"`
	}
	if err := s.pass(ctx, fmt.Sprintf(`Ground each gap hypothesis in the corpus. For each, find supporting evidence (document id plus short quote) and set "grounded" accordingly. Return JSON: {"gaps": [{"title", "category", "reason", "grounded": true/false, "evidence": [{"documentId", "quote"}]}]}.

Hypotheses:
%s

Corpus:
%s`, mustJSON(hypotheses), corpusText), &grounded); err != nil {
		return nil, failed(s.Name(), fmt.Errorf("pass 4 grounding: %w", err))
	}

	kept := make([]groundedHypothesis, 0, len(grounded.Gaps))
	for _, g := range grounded.Gaps {
		if g.Grounded && len(g.Evidence) > 0 {
			kept = append(kept, g)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}

	// Pass 5: question generation, biased by feedback weights.
	raw, err := s.LLM.Complete(ctx, llm.Request{
		System: systemPromptGaps,
		User: fmt.Sprintf(`Generate targeted questions for each grounded gap below. %s

Grounded gaps:
%s

%s`, s.weightHint(), mustJSON(struct {
			Gaps []groundedHypothesis `json:"gaps"`
		}{kept}), gapSchemaPrompt),
		WantJSON: true,
	})
	if err != nil {
		return nil, failed(s.Name(), fmt.Errorf("pass 5 questions: %w", err))
	}
	candidates, err := parseCandidates(s.Name(), raw)
	if err != nil {
		return nil, failed(s.Name(), fmt.Errorf("pass 5 unparseable response: %w", err))
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Pass 6: explicit prioritization scoring.
	var priorities struct {
		Scores []struct {
			Title    string `json:"title"`
			Priority int    `json:"priority"`
		} `json:"scores"`
	}
	if err := s.pass(ctx, fmt.Sprintf(`Score each gap's priority 1-5 by organizational impact if left unanswered. Return JSON: {"scores": [{"title": "...", "priority": 1-5}]}.

Gaps:
%s`, mustJSON(candidateTitles(candidates))), &priorities); err != nil {
		return nil, failed(s.Name(), fmt.Errorf("pass 6 prioritization: %w", err))
	}

	byTitle := make(map[string]int, len(priorities.Scores))
	for _, score := range priorities.Scores {
		byTitle[strings.ToLower(strings.TrimSpace(score.Title))] = score.Priority
	}
	for i := range candidates {
		if p, ok := byTitle[strings.ToLower(candidates[i].Title)]; ok {
			candidates[i].Priority = clampPriority(p)
		}
	}
	return candidates, nil
}

// weightHint renders the feedback bias instruction for pass 5.
func (s *DeepStrategy) weightHint() string {
	if len(s.Weights) == 0 {
		return "Weight all categories equally."
	}
	type weighted struct {
		category string
		ratio    float64
	}
	var ws []weighted
	for category, ratio := range s.Weights {
		ws = append(ws, weighted{category, ratio})
	}
	sort.Slice(ws, func(i, j int) bool { return ws[i].ratio > ws[j].ratio })

	var favored, disfavored []string
	for _, w := range ws {
		if w.ratio >= 0.7 {
			favored = append(favored, w.category)
		} else if w.ratio <= 0.3 {
			disfavored = append(disfavored, w.category)
		}
	}
	var b strings.Builder
	if len(favored) > 0 {
		fmt.Fprintf(&b, "Users found %s gaps most useful historically; prefer those categories. ", strings.Join(favored, ", "))
	}
	if len(disfavored) > 0 {
		fmt.Fprintf(&b, "Generate %s gaps only when the evidence is strong. ", strings.Join(disfavored, ", "))
	}
	if b.Len() == 0 {
		return "Weight all categories equally."
	}
	return strings.TrimSpace(b.String())
}

func (s *DeepStrategy) pass(ctx context.Context, user string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := s.LLM.Complete(ctx, llm.Request{System: systemPromptGaps, User: user, WantJSON: true})
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("stage schema mismatch: %w", err)
	}
	return nil
}

func candidateTitles(candidates []Candidate) []string {
	titles := make([]string, len(candidates))
	for i, c := range candidates {
		titles[i] = c.Title
	}
	return titles
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
