package gaps

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores gaps and answers in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu            sync.RWMutex
	byID          map[string]KnowledgeGap
	byFingerprint map[string]string   // tenantID+"\x00"+fingerprint -> gapID
	answersByGap  map[string][]string // gapID -> answer IDs in submission order
	answerByID    map[string]GapAnswer
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:          make(map[string]KnowledgeGap),
		byFingerprint: make(map[string]string),
		answersByGap:  make(map[string][]string),
		answerByID:    make(map[string]GapAnswer),
	}
}

func fpKey(tenantID, fingerprint string) string {
	return tenantID + "\x00" + fingerprint
}

// Create stores a gap, enforcing the tenant+fingerprint uniqueness the
// Postgres schema guarantees with a constraint.
func (r *MemoryRepo) Create(ctx context.Context, gap KnowledgeGap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fpKey(gap.TenantID, gap.Fingerprint)
	if _, exists := r.byFingerprint[key]; exists {
		return ErrDuplicateFingerprint
	}
	r.byID[gap.ID] = gap
	r.byFingerprint[key] = gap.ID
	return nil
}

// GetByID returns a gap owned by the tenant.
func (r *MemoryRepo) GetByID(ctx context.Context, tenantID, gapID string) (KnowledgeGap, error) {
	if err := ctx.Err(); err != nil {
		return KnowledgeGap{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	gap, ok := r.byID[gapID]
	if !ok || gap.TenantID != tenantID {
		return KnowledgeGap{}, ErrNotFound
	}
	return gap, nil
}

// GetByFingerprint returns the tenant's gap carrying the fingerprint.
func (r *MemoryRepo) GetByFingerprint(ctx context.Context, tenantID, fingerprint string) (KnowledgeGap, error) {
	if err := ctx.Err(); err != nil {
		return KnowledgeGap{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	gapID, ok := r.byFingerprint[fpKey(tenantID, fingerprint)]
	if !ok {
		return KnowledgeGap{}, ErrNotFound
	}
	return r.byID[gapID], nil
}

// List returns the tenant's gaps, newest first, honoring the filter.
func (r *MemoryRepo) List(ctx context.Context, tenantID string, filter ListFilter) ([]KnowledgeGap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []KnowledgeGap
	for _, gap := range r.byID {
		if gap.TenantID != tenantID {
			continue
		}
		if filter.Status != "" && gap.Status != filter.Status {
			continue
		}
		if filter.Category != "" && gap.Category != filter.Category {
			continue
		}
		out = append(out, gap)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// UpdateQuestions replaces the gap's question list.
func (r *MemoryRepo) UpdateQuestions(ctx context.Context, tenantID, gapID string, questions []Question) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	gap, ok := r.byID[gapID]
	if !ok || gap.TenantID != tenantID {
		return ErrNotFound
	}
	gap.Questions = questions
	gap.UpdatedAt = time.Now().UTC()
	r.byID[gapID] = gap
	return nil
}

// UpdateStatus sets the gap's lifecycle status.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, tenantID, gapID, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	gap, ok := r.byID[gapID]
	if !ok || gap.TenantID != tenantID {
		return ErrNotFound
	}
	gap.Status = status
	gap.UpdatedAt = time.Now().UTC()
	r.byID[gapID] = gap
	return nil
}

// UpdatePriority rewrites the gap's priority score.
func (r *MemoryRepo) UpdatePriority(ctx context.Context, tenantID, gapID string, priority int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	gap, ok := r.byID[gapID]
	if !ok || gap.TenantID != tenantID {
		return ErrNotFound
	}
	gap.Priority = priority
	gap.UpdatedAt = time.Now().UTC()
	r.byID[gapID] = gap
	return nil
}

// IncrementFeedback bumps one of the gap's feedback counters.
func (r *MemoryRepo) IncrementFeedback(ctx context.Context, tenantID, gapID string, useful bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	gap, ok := r.byID[gapID]
	if !ok || gap.TenantID != tenantID {
		return ErrNotFound
	}
	if useful {
		gap.UsefulCount++
	} else {
		gap.NotUsefulCount++
	}
	gap.UpdatedAt = time.Now().UTC()
	r.byID[gapID] = gap
	return nil
}

// CreateAnswer stores an answer.
func (r *MemoryRepo) CreateAnswer(ctx context.Context, answer GapAnswer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answersByGap[answer.GapID] = append(r.answersByGap[answer.GapID], answer.ID)
	r.answerByID[answer.ID] = answer
	return nil
}

// ListAnswers returns a gap's answers in submission order.
func (r *MemoryRepo) ListAnswers(ctx context.Context, tenantID, gapID string) ([]GapAnswer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	gap, ok := r.byID[gapID]
	if !ok || gap.TenantID != tenantID {
		return nil, ErrNotFound
	}
	ids := r.answersByGap[gapID]
	out := make([]GapAnswer, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.answerByID[id])
	}
	return out, nil
}

// ListUnembedded returns answers still waiting for a successful embed,
// oldest first, skipping those past maxAttempts.
func (r *MemoryRepo) ListUnembedded(ctx context.Context, maxAttempts, limit int) ([]GapAnswer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []GapAnswer
	for _, a := range r.answerByID {
		if a.Embedded || a.EmbedAttempts >= maxAttempts {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkEmbedded flags an answer as present in the vector index.
func (r *MemoryRepo) MarkEmbedded(ctx context.Context, answerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	answer, ok := r.answerByID[answerID]
	if !ok {
		return ErrNotFound
	}
	answer.Embedded = true
	r.answerByID[answerID] = answer
	return nil
}

// BumpEmbedAttempts records one failed embed attempt.
func (r *MemoryRepo) BumpEmbedAttempts(ctx context.Context, answerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	answer, ok := r.answerByID[answerID]
	if !ok {
		return ErrNotFound
	}
	answer.EmbedAttempts++
	r.answerByID[answerID] = answer
	return nil
}

// MemoryWeightsRepo stores feedback weights in memory.
type MemoryWeightsRepo struct {
	mu      sync.RWMutex
	weights map[string]map[string]CategoryWeight
}

// NewMemoryWeightsRepo constructs a MemoryWeightsRepo.
func NewMemoryWeightsRepo() *MemoryWeightsRepo {
	return &MemoryWeightsRepo{weights: make(map[string]map[string]CategoryWeight)}
}

// Get returns all category weights for the tenant.
func (r *MemoryWeightsRepo) Get(ctx context.Context, tenantID string) (map[string]CategoryWeight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]CategoryWeight, len(r.weights[tenantID]))
	for cat, w := range r.weights[tenantID] {
		out[cat] = w
	}
	return out, nil
}

// Increment bumps one counter for the tenant+category pair.
func (r *MemoryWeightsRepo) Increment(ctx context.Context, tenantID, category string, useful bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	byCat, ok := r.weights[tenantID]
	if !ok {
		byCat = make(map[string]CategoryWeight)
		r.weights[tenantID] = byCat
	}
	w := byCat[category]
	w.TenantID = tenantID
	w.Category = category
	if useful {
		w.UsefulCount++
	} else {
		w.NotUsefulCount++
	}
	w.UpdatedAt = time.Now().UTC()
	byCat[category] = w
	return nil
}
