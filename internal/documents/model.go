package documents

import "time"

// Classification values assigned by the upstream connector service.
const (
	ClassificationWork     = "work"
	ClassificationPending  = "pending"
	ClassificationPersonal = "personal"
)

// Document is a classified document owned by the connector subsystem.
// This engine only reads documents; it never creates or mutates them.
type Document struct {
	ID             string
	TenantID       string
	ProjectID      string
	Title          string
	DocType        string
	Sender         string
	Classification string
	Summary        *Summary
	Content        string
	DocumentTS     time.Time
	CreatedAt      time.Time
}

// Summary is the pre-computed structured representation of a document,
// produced by the ingestion pipeline. Preferred over raw content when present.
type Summary struct {
	Title       string   `json:"title"`
	Synopsis    string   `json:"synopsis"`
	Entities    []string `json:"entities,omitempty"`
	Decisions   []string `json:"decisions,omitempty"`
	ActionItems []string `json:"actionItems,omitempty"`
	KeyDates    []string `json:"keyDates,omitempty"`
}

// HasSummary reports whether the document carries a usable structured summary.
func (d Document) HasSummary() bool {
	return d.Summary != nil && d.Summary.Synopsis != ""
}
