package gaps

import "knowledge-backend/internal/analysis"

// Per-category base priorities. Decisions and their rationale age worst,
// so they start highest.
var categoryBase = map[string]int{
	analysis.CategoryDecision:     4,
	analysis.CategoryRationale:    4,
	analysis.CategoryTechnical:    3,
	analysis.CategoryProcess:      3,
	analysis.CategoryRelationship: 3,
	analysis.CategoryOutcome:      3,
	analysis.CategoryContext:      2,
	analysis.CategoryTimeline:     2,
}

const (
	evidenceStrengthDocs  = 3
	feedbackFavorRatio    = 0.7
	feedbackDisfavorRatio = 0.3
)

// Score computes the 1..5 priority of a gap from its category, the
// strength of its evidence and the tenant's accumulated feedback on the
// category. Deterministic: same inputs, same score.
func Score(category string, evidence []analysis.Evidence, weight CategoryWeight) int {
	normCat, _ := analysis.NormalizeCategory(category)
	score, ok := categoryBase[normCat]
	if !ok {
		score = 3
	}
	if distinctDocuments(evidence) >= evidenceStrengthDocs {
		score++
	}
	switch ratio := weight.Ratio(); {
	case ratio < 0:
		// no feedback yet, no adjustment
	case ratio >= feedbackFavorRatio:
		score++
	case ratio <= feedbackDisfavorRatio:
		score--
	}
	return clampPriority(score)
}

func distinctDocuments(evidence []analysis.Evidence) int {
	seen := make(map[string]bool, len(evidence))
	for _, ev := range evidence {
		if ev.DocumentID != "" {
			seen[ev.DocumentID] = true
		}
	}
	return len(seen)
}

func clampPriority(p int) int {
	if p < 1 {
		return 1
	}
	if p > 5 {
		return 5
	}
	return p
}
