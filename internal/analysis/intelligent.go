package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"knowledge-backend/internal/corpus"
	"knowledge-backend/internal/llm"
)

// IntelligentStrategy is the deterministic+LLM hybrid. Six layers: frame
// extraction, semantic role labeling, discourse analysis, knowledge-graph
// construction, cross-document contradiction check, and grounded question
// generation. The knowledge graph gives it dedup-by-construction; the
// global fingerprint deduplicator still applies afterward.
type IntelligentStrategy struct {
	LLM llm.Client
}

// Name returns the mode identifier.
func (s *IntelligentStrategy) Name() string { return ModeIntelligent }

type frame struct {
	kind     string // decision, process, definition
	docID    string
	sender   string
	sentence string
}

var (
	decisionCue   = regexp.MustCompile(`(?i)\b(decided|chose|chosen|selected|went with|opted|agreed to)\b`)
	processCue    = regexp.MustCompile(`(?i)\b(process|workflow|procedure|steps to|how to|checklist)\b`)
	definitionCue = regexp.MustCompile(`(?i)\b(means|is defined as|refers to|stands for)\b`)
	causeCue      = regexp.MustCompile(`(?i)\b(because|due to|so that|in order to|reason)\b`)
	claimCue      = regexp.MustCompile(`(?i)\b(should|must|clearly|obviously|best|always|never)\b`)
	agentCue      = regexp.MustCompile(`\b[A-Z][a-z]+\b`)
	entityToken   = regexp.MustCompile(`\b[A-Z][A-Za-z0-9_-]{2,}\b`)
)

// Analyze walks the six layers. Layers 1-4 are deterministic over the
// prepared text; layers 5-6 call the LLM with the deterministic findings
// as grounding.
func (s *IntelligentStrategy) Analyze(ctx context.Context, bundle corpus.Bundle) ([]Candidate, error) {
	frames := extractFrames(bundle)         // layer 1
	roleGaps := findMissingRoles(frames)    // layer 2
	claims := findUnsupportedClaims(bundle) // layer 3
	graph := buildEntityGraph(bundle)       // layer 4
	busFactor := graph.singleSourceEntities()

	contradictions, err := s.checkContradictions(ctx, bundle) // layer 5
	if err != nil {
		return nil, failed(s.Name(), fmt.Errorf("contradiction check: %w", err))
	}

	grounded, err := s.generateGrounded(ctx, bundle, roleGaps, claims, busFactor, contradictions) // layer 6
	if err != nil {
		return nil, failed(s.Name(), err)
	}

	// Dedup by construction: the deterministic layers and the LLM layer can
	// surface the same gap; key on category plus normalized title.
	out := make([]Candidate, 0, len(grounded)+len(roleGaps)+len(busFactor))
	seen := make(map[string]struct{})
	add := func(c Candidate) {
		key := c.Category + "|" + strings.ToLower(strings.Join(strings.Fields(c.Title), " "))
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	for _, c := range grounded {
		add(c)
	}
	for _, c := range roleGaps {
		add(c)
	}
	for _, c := range busFactorCandidates(busFactor, graph) {
		add(c)
	}
	return out, nil
}

// Layer 1: classify sentences into decision/process/definition frames.
func extractFrames(bundle corpus.Bundle) []frame {
	var frames []frame
	for _, doc := range bundle.Docs {
		for _, sentence := range splitSentences(doc.Text) {
			kind := ""
			switch {
			case decisionCue.MatchString(sentence):
				kind = "decision"
			case processCue.MatchString(sentence):
				kind = "process"
			case definitionCue.MatchString(sentence):
				kind = "definition"
			}
			if kind == "" {
				continue
			}
			frames = append(frames, frame{kind: kind, docID: doc.DocumentID, sender: doc.Sender, sentence: sentence})
		}
	}
	return frames
}

// Layer 2: a decision frame with no named agent or no stated cause is a
// gap seed; someone decided something and the record says neither who nor why.
func findMissingRoles(frames []frame) []Candidate {
	var out []Candidate
	for _, f := range frames {
		if f.kind != "decision" {
			continue
		}
		missingAgent := !agentCue.MatchString(f.sentence)
		missingCause := !causeCue.MatchString(f.sentence)
		if !missingAgent && !missingCause {
			continue
		}
		title := "Undocumented rationale: " + truncateSentence(f.sentence, 60)
		category := CategoryRationale
		questions := []string{}
		if missingCause {
			questions = append(questions, fmt.Sprintf("Why was this decision made: %q?", truncateSentence(f.sentence, 120)))
		}
		if missingAgent {
			category = CategoryDecision
			questions = append(questions, fmt.Sprintf("Who made this decision: %q?", truncateSentence(f.sentence, 120)))
		}
		out = append(out, Candidate{
			Title:       title,
			Description: "A recorded decision lacks its agent or cause.",
			Category:    category,
			Priority:    4,
			Questions:   questions,
			Evidence:    []Evidence{{DocumentID: f.docID, Quote: truncateSentence(f.sentence, 200)}},
		})
	}
	return out
}

// Layer 3: normative claims with no supporting cause are unsupported.
func findUnsupportedClaims(bundle corpus.Bundle) []string {
	var claims []string
	for _, doc := range bundle.Docs {
		for _, sentence := range splitSentences(doc.Text) {
			if claimCue.MatchString(sentence) && !causeCue.MatchString(sentence) {
				claims = append(claims, fmt.Sprintf("[%s] %s", doc.DocumentID, truncateSentence(sentence, 200)))
			}
		}
	}
	return claims
}

// Layer 4: lightweight entity co-occurrence graph.
type entityGraph struct {
	// entity -> set of senders that mention it
	sources map[string]map[string]struct{}
	// entity -> set of documents that mention it
	docs map[string]map[string]struct{}
}

func buildEntityGraph(bundle corpus.Bundle) *entityGraph {
	g := &entityGraph{
		sources: make(map[string]map[string]struct{}),
		docs:    make(map[string]map[string]struct{}),
	}
	for _, doc := range bundle.Docs {
		for _, token := range entityTokens(doc.Text) {
			if g.sources[token] == nil {
				g.sources[token] = make(map[string]struct{})
				g.docs[token] = make(map[string]struct{})
			}
			if doc.Sender != "" {
				g.sources[token][doc.Sender] = struct{}{}
			}
			g.docs[token][doc.DocumentID] = struct{}{}
		}
	}
	return g
}

// singleSourceEntities returns entities known to exactly one sender:
// the bus-factor risks.
func (g *entityGraph) singleSourceEntities() []string {
	var out []string
	for entity, senders := range g.sources {
		if len(senders) == 1 && len(g.docs[entity]) >= 2 {
			out = append(out, entity)
		}
	}
	return out
}

func busFactorCandidates(entities []string, graph *entityGraph) []Candidate {
	var out []Candidate
	for _, entity := range entities {
		var docID string
		for id := range graph.docs[entity] {
			docID = id
			break
		}
		var sender string
		for s := range graph.sources[entity] {
			sender = s
			break
		}
		out = append(out, Candidate{
			Title:       fmt.Sprintf("Single point of knowledge: %s", entity),
			Description: fmt.Sprintf("Only %s appears to hold knowledge about %s across the corpus.", sender, entity),
			Category:    CategoryRelationship,
			Priority:    4,
			Questions:   []string{fmt.Sprintf("Who besides %s understands %s, and is that knowledge written down?", sender, entity)},
			Evidence:    []Evidence{{DocumentID: docID}},
		})
	}
	return out
}

// Layer 5: cross-document contradiction check via one LLM pass.
func (s *IntelligentStrategy) checkContradictions(ctx context.Context, bundle corpus.Bundle) (string, error) {
	if len(bundle.Docs) < 2 {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.LLM.Complete(ctx, llm.Request{
		System: systemPromptAnalyst,
		User: fmt.Sprintf(`Compare these documents and list any statements that contradict each other across documents. For each contradiction cite both document ids. If there are none, say "none".

%s`, renderCorpus(bundle)),
	})
}

// Layer 6: grounded question generation anchored to the evidence the
// deterministic layers found.
func (s *IntelligentStrategy) generateGrounded(ctx context.Context, bundle corpus.Bundle, roleGaps []Candidate, claims []string, busFactor []string, contradictions string) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var findings strings.Builder
	if len(claims) > 0 {
		findings.WriteString("Unsupported claims:\n" + strings.Join(claims, "\n") + "\n\n")
	}
	if len(busFactor) > 0 {
		findings.WriteString("Single-source entities: " + strings.Join(busFactor, ", ") + "\n\n")
	}
	if contradictions != "" && !strings.EqualFold(strings.TrimSpace(contradictions), "none") {
		findings.WriteString("Contradictions:\n" + contradictions + "\n\n")
	}

	user := fmt.Sprintf(`Generate knowledge gaps grounded in the findings below. Every gap must cite a document id from the corpus as evidence, with a short quote. Do not invent gaps without grounding.

Findings:
%s
Corpus:
%s

%s`, findings.String(), renderCorpus(bundle), gapSchemaPrompt)

	raw, err := s.LLM.Complete(ctx, llm.Request{System: systemPromptGaps, User: user, WantJSON: true})
	if err != nil {
		return nil, fmt.Errorf("grounded generation: %w", err)
	}
	candidates, err := parseCandidates(s.Name(), raw)
	if err != nil {
		return nil, fmt.Errorf("grounded generation unparseable response: %w", err)
	}
	return candidates, nil
}

func splitSentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for _, part := range strings.FieldsFunc(line, func(r rune) bool {
			return r == '.' || r == '!' || r == '?'
		}) {
			if trimmed := strings.TrimSpace(part); len(trimmed) > 10 {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func entityTokens(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, token := range entityToken.FindAllString(text, -1) {
		if isCommonWord(token) {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

var commonWords = map[string]struct{}{
	"The": {}, "This": {}, "That": {}, "These": {}, "Those": {}, "There": {},
	"Entities": {}, "Decisions": {}, "Action": {}, "Key": {}, "Document": {},
	"What": {}, "When": {}, "Where": {}, "Who": {}, "Why": {}, "How": {},
	"Monday": {}, "Tuesday": {}, "Wednesday": {}, "Thursday": {}, "Friday": {},
}

func isCommonWord(token string) bool {
	_, ok := commonWords[token]
	return ok
}

func truncateSentence(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
