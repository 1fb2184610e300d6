package corpus

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"knowledge-backend/internal/documents"
	"knowledge-backend/internal/shared/telemetry"
)

const (
	defaultCharBudget   = 60000
	defaultMaxDocs      = 200
	rawContentCeiling   = 2000
	synopsisEntityLimit = 12
)

// Selector fetches eligible documents for a tenant and prepares a
// token-bounded representation for one analysis run. Read-only.
type Selector struct {
	Docs       documents.SourceRepo
	CharBudget int
	MaxDocs    int
}

// Select builds the corpus bundle for the given tenant and scope.
// Documents dropped to satisfy the budget are counted, never silently lost.
func (s *Selector) Select(ctx context.Context, tenantID, projectID string) (Bundle, error) {
	budget := s.CharBudget
	if budget <= 0 {
		budget = defaultCharBudget
	}
	maxDocs := s.MaxDocs
	if maxDocs <= 0 {
		maxDocs = defaultMaxDocs
	}

	docs, err := s.Docs.ListEligible(ctx, tenantID, projectID, maxDocs)
	if err != nil {
		return Bundle{}, fmt.Errorf("list eligible documents: %w", err)
	}

	bundle := Bundle{
		TenantID:       tenantID,
		ProjectID:      projectID,
		DocumentsTotal: len(docs),
	}
	if len(docs) == 0 {
		return bundle, nil
	}

	for _, doc := range docs {
		prepared := prepare(doc)
		if bundle.TotalChars+len(prepared.Text) > budget {
			bundle.DocumentsSkipped++
			continue
		}
		bundle.Docs = append(bundle.Docs, prepared)
		bundle.TotalChars += len(prepared.Text)
		bundle.DocumentsIncluded++
	}

	if bundle.DocumentsSkipped > 0 {
		telemetry.Warn("corpus.budget_exceeded", map[string]any{
			"tenant_id":          tenantID,
			"documents_total":    bundle.DocumentsTotal,
			"documents_included": bundle.DocumentsIncluded,
			"documents_skipped":  bundle.DocumentsSkipped,
			"total_chars":        bundle.TotalChars,
			"char_budget":        budget,
		})
	}
	return bundle, nil
}

func prepare(doc documents.Document) PreparedDoc {
	prepared := PreparedDoc{
		DocumentID: doc.ID,
		Title:      doc.Title,
		DocType:    doc.DocType,
		Sender:     doc.Sender,
	}
	if !doc.DocumentTS.IsZero() {
		prepared.Date = doc.DocumentTS.Format("2006-01-02")
	}
	if doc.HasSummary() {
		prepared.Text = renderSummary(doc)
	} else {
		prepared.Text = truncate(strings.TrimSpace(doc.Content), rawContentCeiling)
	}
	return prepared
}

func renderSummary(doc documents.Document) string {
	s := doc.Summary
	var b strings.Builder
	title := s.Title
	if title == "" {
		title = doc.Title
	}
	fmt.Fprintf(&b, "%s\n%s", title, s.Synopsis)
	if len(s.Entities) > 0 {
		fmt.Fprintf(&b, "\nEntities: %s", joinCapped(s.Entities, synopsisEntityLimit))
	}
	if len(s.Decisions) > 0 {
		fmt.Fprintf(&b, "\nDecisions: %s", strings.Join(s.Decisions, "; "))
	}
	if len(s.ActionItems) > 0 {
		fmt.Fprintf(&b, "\nAction items: %s", strings.Join(s.ActionItems, "; "))
	}
	if len(s.KeyDates) > 0 {
		fmt.Fprintf(&b, "\nKey dates: %s", strings.Join(s.KeyDates, "; "))
	}
	return b.String()
}

func joinCapped(items []string, limit int) string {
	if len(items) > limit {
		items = items[:limit]
	}
	return strings.Join(items, ", ")
}

func truncate(raw string, limit int) string {
	if len(raw) <= limit {
		return raw
	}
	// back off to a rune boundary so the cut never produces invalid UTF-8
	for limit > 0 && !utf8.RuneStart(raw[limit]) {
		limit--
	}
	return raw[:limit]
}
