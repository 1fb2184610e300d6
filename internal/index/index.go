// Package index writes answered knowledge back into the searchable
// vector store, one entry per gap question.
package index

import "context"

// Entry is one embedded question/answer unit. UnitID is stable per
// gap+question, so re-answering a question overwrites its entry instead
// of accumulating stale versions.
type Entry struct {
	UnitID        string
	TenantID      string
	GapID         string
	QuestionIndex int
	Text          string
	Vector        []float32
	AuthorUserID  string
}

// Index is the vector store the engine upserts answer units into.
type Index interface {
	Upsert(ctx context.Context, entry Entry) error
}
