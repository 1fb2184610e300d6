package gaps

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"knowledge-backend/internal/analysis"
	"knowledge-backend/internal/shared/telemetry"
)

// DedupeResult summarizes one persistence pass over a run's candidates.
type DedupeResult struct {
	Created []KnowledgeGap
	Merged  int
}

// Deduper folds analysis candidates into the persistent gap store.
// Candidates whose fingerprint matches an existing gap merge into it;
// the rest become new gaps scored against the tenant's feedback weights.
type Deduper struct {
	Repo Repo
}

// Apply persists one run's candidates for a tenant. Candidates repeating
// a fingerprint within the same batch merge into the first occurrence.
func (d *Deduper) Apply(ctx context.Context, tenantID string, candidates []analysis.Candidate, weights map[string]CategoryWeight) (DedupeResult, error) {
	var result DedupeResult
	seenThisRun := make(map[string]bool, len(candidates))

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		fingerprint := Fingerprint(tenantID, cand.Category, cand.Title, cand.Evidence)
		if seenThisRun[fingerprint] {
			result.Merged++
			continue
		}
		seenThisRun[fingerprint] = true

		existing, err := d.Repo.GetByFingerprint(ctx, tenantID, fingerprint)
		switch {
		case err == nil:
			merged, err := d.merge(ctx, existing, cand, weights)
			if err != nil {
				return result, err
			}
			if merged {
				result.Merged++
			}
		case errors.Is(err, ErrNotFound):
			gap, err := d.create(ctx, tenantID, fingerprint, cand, weights)
			if errors.Is(err, ErrDuplicateFingerprint) {
				// lost a race with another writer; treat as a merge
				result.Merged++
				continue
			}
			if err != nil {
				return result, err
			}
			result.Created = append(result.Created, gap)
		default:
			return result, err
		}
	}
	return result, nil
}

func (d *Deduper) create(ctx context.Context, tenantID, fingerprint string, cand analysis.Candidate, weights map[string]CategoryWeight) (KnowledgeGap, error) {
	now := time.Now().UTC()
	category, _ := analysis.NormalizeCategory(cand.Category)
	questions := make([]Question, 0, len(cand.Questions))
	for i, text := range cand.Questions {
		questions = append(questions, Question{Index: i, Text: text})
	}
	gap := KnowledgeGap{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Title:       cand.Title,
		Description: cand.Description,
		Category:    category,
		Priority:    Score(category, cand.Evidence, weights[category]),
		Status:      StatusOpen,
		Questions:   questions,
		Evidence:    cand.Evidence,
		Fingerprint: fingerprint,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := d.Repo.Create(ctx, gap); err != nil {
		return KnowledgeGap{}, err
	}
	return gap, nil
}

// merge appends the candidate's novel questions to an existing gap and
// rescores its priority against the tenant's current feedback weights.
// Closed gaps are left alone. A gap that was fully answered regains
// in_progress when it picks up unanswered questions.
func (d *Deduper) merge(ctx context.Context, existing KnowledgeGap, cand analysis.Candidate, weights map[string]CategoryWeight) (bool, error) {
	if existing.Status == StatusClosed {
		telemetry.Info("gaps.merge_skipped_closed", map[string]any{
			"gapId":    existing.ID,
			"tenantId": existing.TenantID,
		})
		return true, nil
	}

	// Feedback recorded since the gap was scored applies the next time a
	// run touches it.
	if priority := Score(existing.Category, existing.Evidence, weights[existing.Category]); priority != existing.Priority {
		if err := d.Repo.UpdatePriority(ctx, existing.TenantID, existing.ID, priority); err != nil {
			return false, err
		}
	}

	known := make(map[string]bool, len(existing.Questions))
	for _, q := range existing.Questions {
		known[NormalizeTitle(q.Text)] = true
	}
	questions := existing.Questions
	appended := 0
	for _, text := range cand.Questions {
		norm := NormalizeTitle(text)
		if norm == "" || known[norm] {
			continue
		}
		known[norm] = true
		questions = append(questions, Question{Index: len(questions), Text: text})
		appended++
	}
	if appended == 0 {
		return true, nil
	}
	if err := d.Repo.UpdateQuestions(ctx, existing.TenantID, existing.ID, questions); err != nil {
		return false, err
	}
	if existing.Status == StatusAnswered || existing.Status == StatusVerified {
		if err := d.Repo.UpdateStatus(ctx, existing.TenantID, existing.ID, StatusInProgress); err != nil {
			return false, err
		}
	}
	return true, nil
}
