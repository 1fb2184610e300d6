package gaps

import "context"

// ListFilter narrows a gap listing. Zero values mean "no filter".
type ListFilter struct {
	Status   string
	Category string
	Limit    int
	Offset   int
}

// Repo persists gaps and their answers. All reads and writes are tenant
// scoped; a gap ID from another tenant behaves as not found.
type Repo interface {
	Create(ctx context.Context, gap KnowledgeGap) error
	GetByID(ctx context.Context, tenantID, gapID string) (KnowledgeGap, error)
	GetByFingerprint(ctx context.Context, tenantID, fingerprint string) (KnowledgeGap, error)
	List(ctx context.Context, tenantID string, filter ListFilter) ([]KnowledgeGap, error)
	UpdateQuestions(ctx context.Context, tenantID, gapID string, questions []Question) error
	UpdateStatus(ctx context.Context, tenantID, gapID, status string) error
	UpdatePriority(ctx context.Context, tenantID, gapID string, priority int) error
	IncrementFeedback(ctx context.Context, tenantID, gapID string, useful bool) error

	CreateAnswer(ctx context.Context, answer GapAnswer) error
	ListAnswers(ctx context.Context, tenantID, gapID string) ([]GapAnswer, error)
	ListUnembedded(ctx context.Context, maxAttempts, limit int) ([]GapAnswer, error)
	MarkEmbedded(ctx context.Context, answerID string) error
	BumpEmbedAttempts(ctx context.Context, answerID string) error
}

// WeightsRepo stores per-tenant, per-category feedback counters.
type WeightsRepo interface {
	Get(ctx context.Context, tenantID string) (map[string]CategoryWeight, error)
	Increment(ctx context.Context, tenantID, category string, useful bool) error
}
