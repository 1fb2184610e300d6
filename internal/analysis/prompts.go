package analysis

import (
	"fmt"
	"strings"

	"knowledge-backend/internal/corpus"
)

const systemPromptGaps = "You are a knowledge gap detection engine for organizational document corpora. Respond with JSON only. No markdown. Never omit keys. Output must match the schema exactly."

const systemPromptAnalyst = "You are a senior organizational analyst reading a document corpus. Respond in concise plain text."

const gapSchemaPrompt = `Return a JSON object with this exact shape:
{
  "gaps": [
    {
      "title": "short gap title",
      "description": "what organizational knowledge is missing and why it matters",
      "category": "one of: decision, technical, process, context, relationship, timeline, outcome, rationale",
      "priority": 1-5,
      "questions": ["targeted question a human could answer"],
      "evidence": [{"documentId": "id of a supporting document", "quote": "short supporting quote"}]
    }
  ]
}`

// renderCorpus formats the bundle for inclusion in a prompt. Document order
// is the bundle's budgeted order, most recent first.
func renderCorpus(bundle corpus.Bundle) string {
	var b strings.Builder
	for i, doc := range bundle.Docs {
		fmt.Fprintf(&b, "--- Document %d (id=%s", i+1, doc.DocumentID)
		if doc.Title != "" {
			fmt.Fprintf(&b, ", title=%s", doc.Title)
		}
		if doc.DocType != "" {
			fmt.Fprintf(&b, ", type=%s", doc.DocType)
		}
		if doc.Sender != "" {
			fmt.Fprintf(&b, ", from=%s", doc.Sender)
		}
		if doc.Date != "" {
			fmt.Fprintf(&b, ", date=%s", doc.Date)
		}
		b.WriteString(") ---\n")
		b.WriteString(doc.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}
