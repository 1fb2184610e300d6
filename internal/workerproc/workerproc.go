// Package workerproc runs the background re-embed loop: answers that
// were persisted but never made it into the vector index get retried
// until they succeed or exhaust their attempts.
package workerproc

import (
	"context"
	"time"

	"knowledge-backend/internal/gaps"
	"knowledge-backend/internal/index"
	"knowledge-backend/internal/shared/metrics"
	"knowledge-backend/internal/shared/telemetry"
)

const (
	defaultInterval    = time.Minute
	defaultBatchSize   = 50
	defaultMaxAttempts = 10
)

// Worker periodically scans for unembedded answers and replays them
// through the embedding pipeline.
type Worker struct {
	Repo        gaps.Repo
	Pipeline    *index.Pipeline
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

// Run sweeps on the configured interval until ctx ends.
func (w *Worker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			processed, succeeded, err := w.Sweep(ctx)
			if err != nil {
				telemetry.Error("worker.sweep_failed", map[string]any{"error": err.Error()})
				continue
			}
			if processed > 0 {
				telemetry.Info("worker.sweep", map[string]any{
					"processed": processed,
					"succeeded": succeeded,
				})
			}
		}
	}
}

// Sweep processes one batch of unembedded answers. It returns how many
// answers were attempted and how many reached the index.
func (w *Worker) Sweep(ctx context.Context) (processed, succeeded int, err error) {
	batch := w.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	maxAttempts := w.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	answers, err := w.Repo.ListUnembedded(ctx, maxAttempts, batch)
	if err != nil {
		return 0, 0, err
	}

	for _, answer := range answers {
		if err := ctx.Err(); err != nil {
			return processed, succeeded, err
		}
		processed++
		if w.retry(ctx, answer) {
			succeeded++
		}
	}
	return processed, succeeded, nil
}

func (w *Worker) retry(ctx context.Context, answer gaps.GapAnswer) bool {
	gap, err := w.Repo.GetByID(ctx, answer.TenantID, answer.GapID)
	if err != nil {
		telemetry.Warn("worker.gap_missing", map[string]any{
			"answerId": answer.ID,
			"gapId":    answer.GapID,
			"error":    err.Error(),
		})
		return false
	}
	if answer.QuestionIndex < 0 || answer.QuestionIndex >= len(gap.Questions) {
		telemetry.Warn("worker.question_out_of_range", map[string]any{
			"answerId": answer.ID,
			"gapId":    answer.GapID,
			"index":    answer.QuestionIndex,
		})
		// unembeddable; stop retrying it
		if err := w.Repo.BumpEmbedAttempts(ctx, answer.ID); err != nil {
			telemetry.Error("worker.bump_attempts_failed", map[string]any{"answerId": answer.ID, "error": err.Error()})
		}
		return false
	}

	result := w.Pipeline.EmbedAnswer(ctx, index.AnswerUnit{
		TenantID:      answer.TenantID,
		GapID:         answer.GapID,
		QuestionIndex: answer.QuestionIndex,
		Question:      gap.Questions[answer.QuestionIndex].Text,
		Answer:        answer.AnswerText,
		AuthorUserID:  answer.AuthorUserID,
	})
	if result.Success {
		if err := w.Repo.MarkEmbedded(ctx, answer.ID); err != nil {
			telemetry.Error("worker.mark_embedded_failed", map[string]any{"answerId": answer.ID, "error": err.Error()})
		}
		return true
	}

	metrics.IncEmbedFailed()
	if err := w.Repo.BumpEmbedAttempts(ctx, answer.ID); err != nil {
		telemetry.Error("worker.bump_attempts_failed", map[string]any{"answerId": answer.ID, "error": err.Error()})
	}
	if !result.Retryable {
		telemetry.Warn("worker.embed_permanent_failure", map[string]any{
			"answerId": answer.ID,
			"error":    result.Err,
		})
	}
	return false
}
