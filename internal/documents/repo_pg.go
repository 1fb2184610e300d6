package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements SourceRepo over Postgres. It issues only SELECTs.
type PGRepo struct {
	DB *sql.DB
}

// ListEligible returns work-or-pending documents for a tenant, newest first.
func (r *PGRepo) ListEligible(ctx context.Context, tenantID, projectID string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 200
	}
	const base = `
SELECT id, tenant_id, COALESCE(project_id, ''), title, doc_type, sender, classification,
       summary, COALESCE(content, ''), COALESCE(document_ts, created_at), created_at
FROM documents
WHERE tenant_id = $1 AND classification IN ('work', 'pending')`

	var (
		rows *sql.Rows
		err  error
	)
	if projectID != "" {
		rows, err = r.DB.QueryContext(ctx, base+` AND project_id = $2 ORDER BY COALESCE(document_ts, created_at) DESC LIMIT $3`, tenantID, projectID, limit)
	} else {
		rows, err = r.DB.QueryContext(ctx, base+` ORDER BY COALESCE(document_ts, created_at) DESC LIMIT $2`, tenantID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// GetByID returns a single document scoped to the tenant.
func (r *PGRepo) GetByID(ctx context.Context, tenantID, documentID string) (Document, error) {
	const query = `
SELECT id, tenant_id, COALESCE(project_id, ''), title, doc_type, sender, classification,
       summary, COALESCE(content, ''), COALESCE(document_ts, created_at), created_at
FROM documents
WHERE tenant_id = $1 AND id = $2
LIMIT 1`
	row := r.DB.QueryRowContext(ctx, query, tenantID, documentID)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var summaryRaw sql.NullString
	err := row.Scan(
		&doc.ID,
		&doc.TenantID,
		&doc.ProjectID,
		&doc.Title,
		&doc.DocType,
		&doc.Sender,
		&doc.Classification,
		&summaryRaw,
		&doc.Content,
		&doc.DocumentTS,
		&doc.CreatedAt,
	)
	if err != nil {
		return Document{}, err
	}
	if summaryRaw.Valid && summaryRaw.String != "" {
		var summary Summary
		if err := json.Unmarshal([]byte(summaryRaw.String), &summary); err == nil {
			doc.Summary = &summary
		}
	}
	return doc, nil
}
