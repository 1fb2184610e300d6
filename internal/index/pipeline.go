package index

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"knowledge-backend/internal/embedding"
	"knowledge-backend/internal/shared/telemetry"
)

// AnswerUnit is the embeddable form of one answered question.
type AnswerUnit struct {
	TenantID      string
	GapID         string
	QuestionIndex int
	Question      string
	Answer        string
	AuthorUserID  string
}

// UnitID is the stable index key for this question of this gap.
func (u AnswerUnit) UnitID() string {
	return u.GapID + ":" + strconv.Itoa(u.QuestionIndex)
}

// EmbedResult reports the outcome of one embed attempt. A failed attempt
// never blocks the answer itself; Retryable tells the re-embed worker
// whether trying again could help.
type EmbedResult struct {
	Success   bool
	Retryable bool
	Err       string
}

// Pipeline embeds answer units and upserts them into the index.
type Pipeline struct {
	Embedder embedding.Embedder
	Index    Index
}

// EmbedAnswer embeds one answer unit. Errors are folded into the result
// rather than returned: the caller already persisted the answer and only
// needs to know whether the unit made it into the index.
func (p *Pipeline) EmbedAnswer(ctx context.Context, unit AnswerUnit) EmbedResult {
	if strings.TrimSpace(unit.Answer) == "" {
		return EmbedResult{Retryable: false, Err: "empty answer text"}
	}
	text := renderUnit(unit)

	vector, err := p.Embedder.Embed(ctx, text)
	if err != nil {
		return p.failed(unit, "embed", err)
	}
	entry := Entry{
		UnitID:        unit.UnitID(),
		TenantID:      unit.TenantID,
		GapID:         unit.GapID,
		QuestionIndex: unit.QuestionIndex,
		Text:          text,
		Vector:        vector,
		AuthorUserID:  unit.AuthorUserID,
	}
	if err := p.Index.Upsert(ctx, entry); err != nil {
		return p.failed(unit, "upsert", err)
	}
	return EmbedResult{Success: true}
}

func (p *Pipeline) failed(unit AnswerUnit, stage string, err error) EmbedResult {
	telemetry.Warn("index.embed_failed", map[string]any{
		"unitId":   unit.UnitID(),
		"tenantId": unit.TenantID,
		"stage":    stage,
		"error":    err.Error(),
	})
	return EmbedResult{Retryable: retryable(err), Err: fmt.Sprintf("%s: %v", stage, err)}
}

// retryable classifies embed/upsert failures. Dimension mismatches are
// permanent; everything else (network, provider, store) is worth a retry.
func retryable(err error) bool {
	return !strings.Contains(err.Error(), "dimension")
}

func renderUnit(unit AnswerUnit) string {
	return "Q: " + unit.Question + "\nA: " + unit.Answer
}
