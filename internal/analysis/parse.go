package analysis

import (
	"encoding/json"
	"strings"

	"knowledge-backend/internal/shared/telemetry"
)

type candidatePayload struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Priority    int        `json:"priority"`
	Questions   []string   `json:"questions"`
	Evidence    []Evidence `json:"evidence"`
}

type gapsPayload struct {
	Gaps []json.RawMessage `json:"gaps"`
}

// parseCandidates extracts candidates from an LLM JSON response of the form
// {"gaps": [...]}. A malformed element is skipped and counted, never fatal;
// only an unparseable envelope is an error.
func parseCandidates(strategy, raw string) ([]Candidate, error) {
	var envelope gapsPayload
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(envelope.Gaps))
	skipped := 0
	for _, element := range envelope.Gaps {
		var payload candidatePayload
		if err := json.Unmarshal(element, &payload); err != nil {
			skipped++
			continue
		}
		candidate, ok := validateCandidate(payload)
		if !ok {
			skipped++
			continue
		}
		candidates = append(candidates, candidate)
	}

	if skipped > 0 {
		telemetry.Warn("analysis.candidates_skipped", map[string]any{
			"strategy": strategy,
			"skipped":  skipped,
			"kept":     len(candidates),
		})
	}
	return candidates, nil
}

func validateCandidate(payload candidatePayload) (Candidate, bool) {
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		return Candidate{}, false
	}
	category, ok := NormalizeCategory(payload.Category)
	if !ok {
		return Candidate{}, false
	}

	questions := make([]string, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		if trimmed := strings.TrimSpace(q); trimmed != "" {
			questions = append(questions, trimmed)
		}
	}
	if len(questions) == 0 {
		return Candidate{}, false
	}

	return Candidate{
		Title:       title,
		Description: strings.TrimSpace(payload.Description),
		Category:    category,
		Priority:    clampPriority(payload.Priority),
		Questions:   questions,
		Evidence:    payload.Evidence,
	}, true
}

func clampPriority(priority int) int {
	if priority < 1 {
		return 3
	}
	if priority > 5 {
		return 5
	}
	return priority
}
