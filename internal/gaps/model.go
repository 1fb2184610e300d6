package gaps

import (
	"time"

	"knowledge-backend/internal/analysis"
)

// Gap lifecycle states. closed is terminal.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusAnswered   = "answered"
	StatusVerified   = "verified"
	StatusClosed     = "closed"
)

// Question is one answerable question attached to a gap. Index is stable
// for the gap's lifetime; merged candidates append at the next free index.
type Question struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Answered bool   `json:"answered"`
}

// KnowledgeGap is a persistent, tenant-scoped piece of missing
// organizational knowledge. Never deleted by the engine, only closed.
type KnowledgeGap struct {
	ID             string              `json:"id"`
	TenantID       string              `json:"tenantId"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Category       string              `json:"category"`
	Priority       int                 `json:"priority"`
	Status         string              `json:"status"`
	Questions      []Question          `json:"questions"`
	Evidence       []analysis.Evidence `json:"evidence,omitempty"`
	UsefulCount    int                 `json:"usefulCount"`
	NotUsefulCount int                 `json:"notUsefulCount"`
	Fingerprint    string              `json:"fingerprint"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// AllAnswered reports whether every question on the gap has been answered.
func (g KnowledgeGap) AllAnswered() bool {
	if len(g.Questions) == 0 {
		return false
	}
	for _, q := range g.Questions {
		if !q.Answered {
			return false
		}
	}
	return true
}

// GapAnswer is one submitted answer to one question of a gap. Repeated
// answers to the same question index are revisions; the latest wins for
// embedding, the history stays for audit.
type GapAnswer struct {
	ID                      string    `json:"id"`
	GapID                   string    `json:"gapId"`
	TenantID                string    `json:"tenantId"`
	QuestionIndex           int       `json:"questionIndex"`
	AnswerText              string    `json:"answerText"`
	IsVoice                 bool      `json:"isVoice"`
	TranscriptionConfidence *float64  `json:"transcriptionConfidence,omitempty"`
	AudioRef                string    `json:"audioRef,omitempty"`
	AuthorUserID            string    `json:"authorUserId,omitempty"`
	Embedded                bool      `json:"embedded"`
	EmbedAttempts           int       `json:"embedAttempts"`
	CreatedAt               time.Time `json:"createdAt"`
}

// CategoryWeight accumulates per-category feedback for one tenant.
// Consumed by the priority scorer and the deep strategy's question bias.
type CategoryWeight struct {
	TenantID       string
	Category       string
	UsefulCount    int
	NotUsefulCount int
	UpdatedAt      time.Time
}

// Ratio returns the useful-feedback ratio, or -1 when no feedback exists.
func (w CategoryWeight) Ratio() float64 {
	total := w.UsefulCount + w.NotUsefulCount
	if total == 0 {
		return -1
	}
	return float64(w.UsefulCount) / float64(total)
}
