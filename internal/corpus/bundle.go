package corpus

// PreparedDoc is one document's budgeted representation inside a bundle.
type PreparedDoc struct {
	DocumentID string
	Title      string
	DocType    string
	Sender     string
	Date       string
	Text       string
}

// Bundle is the budgeted, prepared set of document representations fed to
// one analysis run. Built fresh per run and discarded afterward.
type Bundle struct {
	TenantID          string
	ProjectID         string
	Docs              []PreparedDoc
	TotalChars        int
	DocumentsTotal    int
	DocumentsIncluded int
	DocumentsSkipped  int
}

// Empty reports whether nothing was eligible for analysis.
func (b Bundle) Empty() bool {
	return len(b.Docs) == 0
}
