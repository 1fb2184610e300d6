package gaps

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"

	"knowledge-backend/internal/analysis"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const pgUniqueViolation = "23505"

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateFingerprint
	}
	return err
}

// Create inserts a new gap. A concurrent insert with the same
// tenant+fingerprint surfaces as ErrDuplicateFingerprint.
func (r *PGRepo) Create(ctx context.Context, gap KnowledgeGap) error {
	const query = `
INSERT INTO knowledge_gaps (
	id, tenant_id, title, description, category, priority, status,
	questions, context, useful_count, not_useful_count, fingerprint, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	questions, err := json.Marshal(gap.Questions)
	if err != nil {
		return err
	}
	evidence, err := json.Marshal(gap.Evidence)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		gap.ID,
		gap.TenantID,
		gap.Title,
		gap.Description,
		gap.Category,
		gap.Priority,
		gap.Status,
		questions,
		evidence,
		gap.UsefulCount,
		gap.NotUsefulCount,
		gap.Fingerprint,
		gap.CreatedAt,
		gap.UpdatedAt,
	)
	if err != nil {
		return mapPGError(err)
	}
	return nil
}

const gapColumns = `
	id, tenant_id, title, description, category, priority, status,
	questions, context, useful_count, not_useful_count, fingerprint, created_at, updated_at`

func scanGap(row interface{ Scan(dest ...any) error }) (KnowledgeGap, error) {
	var gap KnowledgeGap
	var questions, evidence []byte
	err := row.Scan(
		&gap.ID,
		&gap.TenantID,
		&gap.Title,
		&gap.Description,
		&gap.Category,
		&gap.Priority,
		&gap.Status,
		&questions,
		&evidence,
		&gap.UsefulCount,
		&gap.NotUsefulCount,
		&gap.Fingerprint,
		&gap.CreatedAt,
		&gap.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return KnowledgeGap{}, ErrNotFound
		}
		return KnowledgeGap{}, err
	}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &gap.Questions); err != nil {
			return KnowledgeGap{}, err
		}
	}
	if len(evidence) > 0 {
		var evs []analysis.Evidence
		if err := json.Unmarshal(evidence, &evs); err != nil {
			return KnowledgeGap{}, err
		}
		gap.Evidence = evs
	}
	return gap, nil
}

// GetByID returns a gap owned by the tenant.
func (r *PGRepo) GetByID(ctx context.Context, tenantID, gapID string) (KnowledgeGap, error) {
	query := `SELECT` + gapColumns + ` FROM knowledge_gaps WHERE id = $1 AND tenant_id = $2`
	return scanGap(r.DB.QueryRowContext(ctx, query, gapID, tenantID))
}

// GetByFingerprint returns the tenant's gap carrying the fingerprint.
func (r *PGRepo) GetByFingerprint(ctx context.Context, tenantID, fingerprint string) (KnowledgeGap, error) {
	query := `SELECT` + gapColumns + ` FROM knowledge_gaps WHERE tenant_id = $1 AND fingerprint = $2`
	return scanGap(r.DB.QueryRowContext(ctx, query, tenantID, fingerprint))
}

// List returns the tenant's gaps newest first, honoring the filter.
func (r *PGRepo) List(ctx context.Context, tenantID string, filter ListFilter) ([]KnowledgeGap, error) {
	query := `SELECT` + gapColumns + ` FROM knowledge_gaps WHERE tenant_id = $1`
	args := []any{tenantID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $2`
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		if filter.Status != "" {
			query += ` AND category = $3`
		} else {
			query += ` AND category = $2`
		}
	}
	query += ` ORDER BY created_at DESC, id`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []KnowledgeGap
	for rows.Next() {
		gap, err := scanGap(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, gap)
	}
	return out, rows.Err()
}

// UpdateQuestions replaces the gap's question list.
func (r *PGRepo) UpdateQuestions(ctx context.Context, tenantID, gapID string, questions []Question) error {
	payload, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	const query = `
UPDATE knowledge_gaps SET questions = $1, updated_at = now()
WHERE id = $2 AND tenant_id = $3`
	return execExpectingRow(ctx, r.DB, query, payload, gapID, tenantID)
}

// UpdateStatus sets the gap's lifecycle status.
func (r *PGRepo) UpdateStatus(ctx context.Context, tenantID, gapID, status string) error {
	const query = `
UPDATE knowledge_gaps SET status = $1, updated_at = now()
WHERE id = $2 AND tenant_id = $3`
	return execExpectingRow(ctx, r.DB, query, status, gapID, tenantID)
}

// UpdatePriority rewrites the gap's priority score.
func (r *PGRepo) UpdatePriority(ctx context.Context, tenantID, gapID string, priority int) error {
	const query = `
UPDATE knowledge_gaps SET priority = $1, updated_at = now()
WHERE id = $2 AND tenant_id = $3`
	return execExpectingRow(ctx, r.DB, query, priority, gapID, tenantID)
}

// IncrementFeedback bumps one of the gap's feedback counters.
func (r *PGRepo) IncrementFeedback(ctx context.Context, tenantID, gapID string, useful bool) error {
	column := "not_useful_count"
	if useful {
		column = "useful_count"
	}
	query := `
UPDATE knowledge_gaps SET ` + column + ` = ` + column + ` + 1, updated_at = now()
WHERE id = $1 AND tenant_id = $2`
	return execExpectingRow(ctx, r.DB, query, gapID, tenantID)
}

// CreateAnswer inserts a submitted answer.
func (r *PGRepo) CreateAnswer(ctx context.Context, answer GapAnswer) error {
	const query = `
INSERT INTO gap_answers (
	id, gap_id, tenant_id, question_index, answer_text, is_voice,
	transcription_confidence, audio_ref, author_user_id, embedded, embed_attempts, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.DB.ExecContext(ctx, query,
		answer.ID,
		answer.GapID,
		answer.TenantID,
		answer.QuestionIndex,
		answer.AnswerText,
		answer.IsVoice,
		answer.TranscriptionConfidence,
		nullableString(answer.AudioRef),
		nullableString(answer.AuthorUserID),
		answer.Embedded,
		answer.EmbedAttempts,
		answer.CreatedAt,
	)
	return err
}

const answerColumns = `
	id, gap_id, tenant_id, question_index, answer_text, is_voice,
	transcription_confidence, audio_ref, author_user_id, embedded, embed_attempts, created_at`

func scanAnswer(row interface{ Scan(dest ...any) error }) (GapAnswer, error) {
	var a GapAnswer
	var audioRef, authorID sql.NullString
	err := row.Scan(
		&a.ID,
		&a.GapID,
		&a.TenantID,
		&a.QuestionIndex,
		&a.AnswerText,
		&a.IsVoice,
		&a.TranscriptionConfidence,
		&audioRef,
		&authorID,
		&a.Embedded,
		&a.EmbedAttempts,
		&a.CreatedAt,
	)
	if err != nil {
		return GapAnswer{}, err
	}
	a.AudioRef = audioRef.String
	a.AuthorUserID = authorID.String
	return a, nil
}

// ListAnswers returns a gap's answers in submission order.
func (r *PGRepo) ListAnswers(ctx context.Context, tenantID, gapID string) ([]GapAnswer, error) {
	query := `SELECT` + answerColumns + `
FROM gap_answers WHERE gap_id = $1 AND tenant_id = $2 ORDER BY created_at, id`
	rows, err := r.DB.QueryContext(ctx, query, gapID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GapAnswer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListUnembedded returns answers waiting for a successful embed, oldest
// first, skipping those that exhausted maxAttempts.
func (r *PGRepo) ListUnembedded(ctx context.Context, maxAttempts, limit int) ([]GapAnswer, error) {
	query := `SELECT` + answerColumns + `
FROM gap_answers WHERE embedded = FALSE AND embed_attempts < $1 ORDER BY created_at LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GapAnswer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkEmbedded flags an answer as present in the vector index.
func (r *PGRepo) MarkEmbedded(ctx context.Context, answerID string) error {
	const query = `UPDATE gap_answers SET embedded = TRUE WHERE id = $1`
	return execExpectingRow(ctx, r.DB, query, answerID)
}

// BumpEmbedAttempts records one failed embed attempt.
func (r *PGRepo) BumpEmbedAttempts(ctx context.Context, answerID string) error {
	const query = `UPDATE gap_answers SET embed_attempts = embed_attempts + 1 WHERE id = $1`
	return execExpectingRow(ctx, r.DB, query, answerID)
}

// PGWeightsRepo implements WeightsRepo using Postgres.
type PGWeightsRepo struct {
	DB *sql.DB
}

// Get returns all category weights for the tenant.
func (r *PGWeightsRepo) Get(ctx context.Context, tenantID string) (map[string]CategoryWeight, error) {
	const query = `
SELECT tenant_id, category, useful_count, not_useful_count, updated_at
FROM priority_weights WHERE tenant_id = $1`
	rows, err := r.DB.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]CategoryWeight)
	for rows.Next() {
		var w CategoryWeight
		if err := rows.Scan(&w.TenantID, &w.Category, &w.UsefulCount, &w.NotUsefulCount, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out[w.Category] = w
	}
	return out, rows.Err()
}

// Increment upserts the tenant+category row and bumps one counter.
func (r *PGWeightsRepo) Increment(ctx context.Context, tenantID, category string, useful bool) error {
	const query = `
INSERT INTO priority_weights (tenant_id, category, useful_count, not_useful_count, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (tenant_id, category) DO UPDATE SET
	useful_count = priority_weights.useful_count + EXCLUDED.useful_count,
	not_useful_count = priority_weights.not_useful_count + EXCLUDED.not_useful_count,
	updated_at = now()`
	usefulInc, notUsefulInc := 0, 1
	if useful {
		usefulInc, notUsefulInc = 1, 0
	}
	_, err := r.DB.ExecContext(ctx, query, tenantID, category, usefulInc, notUsefulInc)
	return err
}

func execExpectingRow(ctx context.Context, db *sql.DB, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
