package analysis

import "strings"

// Gap categories. Fixed enumeration shared with the persistence layer.
const (
	CategoryDecision     = "decision"
	CategoryTechnical    = "technical"
	CategoryProcess      = "process"
	CategoryContext      = "context"
	CategoryRelationship = "relationship"
	CategoryTimeline     = "timeline"
	CategoryOutcome      = "outcome"
	CategoryRationale    = "rationale"
)

// Categories lists every valid gap category.
var Categories = []string{
	CategoryDecision,
	CategoryTechnical,
	CategoryProcess,
	CategoryContext,
	CategoryRelationship,
	CategoryTimeline,
	CategoryOutcome,
	CategoryRationale,
}

// ValidCategory reports whether raw names a known category.
func ValidCategory(raw string) bool {
	for _, c := range Categories {
		if c == raw {
			return true
		}
	}
	return false
}

// NormalizeCategory lowercases and trims a category, returning ok=false for
// values outside the enumeration.
func NormalizeCategory(raw string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if ValidCategory(normalized) {
		return normalized, true
	}
	return "", false
}

// Evidence anchors a candidate to a source document.
type Evidence struct {
	DocumentID string `json:"documentId"`
	Quote      string `json:"quote,omitempty"`
}

// Candidate is the ephemeral output of one strategy: a proposed knowledge
// gap that has not yet been deduplicated or persisted. It exists only
// within a single analysis run.
type Candidate struct {
	Title       string
	Description string
	Category    string
	Priority    int
	Questions   []string
	Evidence    []Evidence
}

// Weights biases question generation toward categories with historically
// useful gaps. Keyed by category; value is the useful-feedback ratio in
// [0,1], absent categories default to neutral.
type Weights map[string]float64
