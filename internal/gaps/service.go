package gaps

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"knowledge-backend/internal/index"
	"knowledge-backend/internal/shared/metrics"
	"knowledge-backend/internal/shared/telemetry"
	"knowledge-backend/internal/transcribe"
)

// Service owns the gap lifecycle: answering, feedback, verification and
// closing. Gap creation happens in the analysis run path via Deduper.
type Service struct {
	Repo        Repo
	Weights     WeightsRepo
	Pipeline    *index.Pipeline        // nil disables embedding
	Transcriber transcribe.Transcriber // nil disables voice answers
}

// GapDetail is a gap together with its answer history.
type GapDetail struct {
	KnowledgeGap
	Answers []GapAnswer `json:"answers"`
}

// SubmitAnswerInput carries one answer submission. Voice submissions set
// IsVoice and either Text (pre-transcribed) or AudioB64 for server-side
// transcription.
type SubmitAnswerInput struct {
	GapID         string
	QuestionIndex int
	Text          string
	IsVoice       bool
	AudioB64      string
	AudioMime     string
	AudioRef      string
	UserID        string
}

// SubmitAnswerOutput reports the updated gap, the stored answer and the
// embed outcome. Embed.Success false does NOT mean the submission failed:
// the answer is durable either way and the worker retries the embed.
type SubmitAnswerOutput struct {
	Gap    KnowledgeGap
	Answer GapAnswer
	Embed  index.EmbedResult
}

// SubmitAnswer validates and persists an answer, advances the gap's
// status and then attempts to embed the answer into the vector index.
func (s *Service) SubmitAnswer(ctx context.Context, tenantID string, in SubmitAnswerInput) (SubmitAnswerOutput, error) {
	gap, err := s.Repo.GetByID(ctx, tenantID, in.GapID)
	if err != nil {
		return SubmitAnswerOutput{}, err
	}
	if gap.Status == StatusClosed {
		return SubmitAnswerOutput{}, ErrGapClosed
	}
	if in.QuestionIndex < 0 || in.QuestionIndex >= len(gap.Questions) {
		return SubmitAnswerOutput{}, ErrQuestionOutOfRange
	}

	text := in.Text
	var confidence *float64
	if in.IsVoice && strings.TrimSpace(text) == "" {
		if s.Transcriber == nil {
			return SubmitAnswerOutput{}, transcribe.ErrNotConfigured
		}
		result, err := s.Transcriber.Transcribe(ctx, in.AudioB64, in.AudioMime)
		if err != nil {
			return SubmitAnswerOutput{}, err
		}
		text = result.Text
		confidence = &result.Confidence
		telemetry.Info("gaps.voice_transcribed", map[string]any{
			"gapId":           in.GapID,
			"tenantId":        tenantID,
			"confidence":      result.Confidence,
			"durationSeconds": result.DurationSeconds,
		})
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return SubmitAnswerOutput{}, ErrInvalidAnswer
	}

	answer := GapAnswer{
		ID:                      uuid.NewString(),
		GapID:                   gap.ID,
		TenantID:                tenantID,
		QuestionIndex:           in.QuestionIndex,
		AnswerText:              text,
		IsVoice:                 in.IsVoice,
		TranscriptionConfidence: confidence,
		AudioRef:                in.AudioRef,
		AuthorUserID:            in.UserID,
		CreatedAt:               time.Now().UTC(),
	}
	if err := s.Repo.CreateAnswer(ctx, answer); err != nil {
		return SubmitAnswerOutput{}, err
	}
	metrics.IncAnswerSubmitted()

	gap.Questions[in.QuestionIndex].Answered = true
	if err := s.Repo.UpdateQuestions(ctx, tenantID, gap.ID, gap.Questions); err != nil {
		return SubmitAnswerOutput{}, err
	}
	next := nextStatus(gap)
	if next != gap.Status {
		if err := s.Repo.UpdateStatus(ctx, tenantID, gap.ID, next); err != nil {
			return SubmitAnswerOutput{}, err
		}
		gap.Status = next
	}

	out := SubmitAnswerOutput{Gap: gap, Answer: answer}
	out.Embed = s.embed(ctx, gap, answer)
	return out, nil
}

// embed pushes the answer into the vector index and records the outcome
// on the answer row. Failures are surfaced in the result, never as an
// error: the answer is already durable.
func (s *Service) embed(ctx context.Context, gap KnowledgeGap, answer GapAnswer) index.EmbedResult {
	if s.Pipeline == nil {
		return index.EmbedResult{Retryable: true, Err: "embedding disabled"}
	}
	result := s.Pipeline.EmbedAnswer(ctx, index.AnswerUnit{
		TenantID:      gap.TenantID,
		GapID:         gap.ID,
		QuestionIndex: answer.QuestionIndex,
		Question:      gap.Questions[answer.QuestionIndex].Text,
		Answer:        answer.AnswerText,
		AuthorUserID:  answer.AuthorUserID,
	})
	if result.Success {
		if err := s.Repo.MarkEmbedded(ctx, answer.ID); err != nil {
			telemetry.Error("gaps.mark_embedded_failed", map[string]any{
				"answerId": answer.ID,
				"error":    err.Error(),
			})
		}
		return result
	}
	metrics.IncEmbedFailed()
	if err := s.Repo.BumpEmbedAttempts(ctx, answer.ID); err != nil {
		telemetry.Error("gaps.bump_embed_attempts_failed", map[string]any{
			"answerId": answer.ID,
			"error":    err.Error(),
		})
	}
	return result
}

// nextStatus advances the answering workflow. Statuses past answered are
// external judgments and never regress from re-answering a question.
func nextStatus(gap KnowledgeGap) string {
	switch gap.Status {
	case StatusOpen, StatusInProgress:
		if gap.AllAnswered() {
			return StatusAnswered
		}
		return StatusInProgress
	}
	return gap.Status
}

// RecordFeedback bumps the gap's and the tenant category's feedback
// counters. The counters shape priority scoring of future runs.
func (s *Service) RecordFeedback(ctx context.Context, tenantID, gapID string, useful bool, comment string) error {
	gap, err := s.Repo.GetByID(ctx, tenantID, gapID)
	if err != nil {
		return err
	}
	if err := s.Repo.IncrementFeedback(ctx, tenantID, gapID, useful); err != nil {
		return err
	}
	if err := s.Weights.Increment(ctx, tenantID, gap.Category, useful); err != nil {
		return err
	}
	metrics.IncFeedback()
	if strings.TrimSpace(comment) != "" {
		telemetry.Info("gaps.feedback_comment", map[string]any{
			"gapId":    gapID,
			"tenantId": tenantID,
			"useful":   useful,
			"comment":  comment,
		})
	}
	return nil
}

// Verify marks a fully answered gap as verified.
func (s *Service) Verify(ctx context.Context, tenantID, gapID string) (KnowledgeGap, error) {
	gap, err := s.Repo.GetByID(ctx, tenantID, gapID)
	if err != nil {
		return KnowledgeGap{}, err
	}
	if gap.Status != StatusAnswered {
		return KnowledgeGap{}, ErrInvalidTransition
	}
	if err := s.Repo.UpdateStatus(ctx, tenantID, gapID, StatusVerified); err != nil {
		return KnowledgeGap{}, err
	}
	gap.Status = StatusVerified
	return gap, nil
}

// Close moves a gap to its terminal state. Closing a closed gap is a no-op.
func (s *Service) Close(ctx context.Context, tenantID, gapID string) (KnowledgeGap, error) {
	gap, err := s.Repo.GetByID(ctx, tenantID, gapID)
	if err != nil {
		return KnowledgeGap{}, err
	}
	if gap.Status == StatusClosed {
		return gap, nil
	}
	if err := s.Repo.UpdateStatus(ctx, tenantID, gapID, StatusClosed); err != nil {
		return KnowledgeGap{}, err
	}
	gap.Status = StatusClosed
	return gap, nil
}

// Get returns a gap with its answer history.
func (s *Service) Get(ctx context.Context, tenantID, gapID string) (GapDetail, error) {
	gap, err := s.Repo.GetByID(ctx, tenantID, gapID)
	if err != nil {
		return GapDetail{}, err
	}
	answers, err := s.Repo.ListAnswers(ctx, tenantID, gapID)
	if err != nil {
		return GapDetail{}, err
	}
	return GapDetail{KnowledgeGap: gap, Answers: answers}, nil
}

// List returns the tenant's gaps honoring the filter.
func (s *Service) List(ctx context.Context, tenantID string, filter ListFilter) ([]KnowledgeGap, error) {
	return s.Repo.List(ctx, tenantID, filter)
}
