package analysis

import "testing"

func TestParseCandidatesEnvelope(t *testing.T) {
	raw := `{"gaps": [
		{"title": "Vendor selection rationale", "category": "decision", "priority": 4,
		 "questions": ["Why vendor A over vendor B?"],
		 "evidence": [{"documentId": "doc-1", "quote": "we went with vendor A"}]}
	]}`

	candidates, err := parseCandidates("simple", raw)
	if err != nil {
		t.Fatalf("parseCandidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	c := candidates[0]
	if c.Title != "Vendor selection rationale" || c.Category != "decision" || c.Priority != 4 {
		t.Fatalf("unexpected candidate: %+v", c)
	}
	if len(c.Evidence) != 1 || c.Evidence[0].DocumentID != "doc-1" {
		t.Fatalf("evidence not carried through: %+v", c.Evidence)
	}
}

func TestParseCandidatesUnparseableEnvelope(t *testing.T) {
	if _, err := parseCandidates("simple", "not json at all"); err == nil {
		t.Fatal("expected error for unparseable envelope")
	}
}

func TestParseCandidatesSkipsMalformedElements(t *testing.T) {
	raw := `{"gaps": [
		{"title": "Good gap", "category": "process", "questions": ["How is the release cut?"]},
		{"title": 42, "category": "process"},
		{"title": "No questions", "category": "process", "questions": []},
		{"title": "Bad category", "category": "vibes", "questions": ["?"]},
		{"title": "", "category": "process", "questions": ["?"]},
		{"title": "Also good", "category": "Technical ", "questions": ["  Which services share the queue?  ", "   "]}
	]}`

	candidates, err := parseCandidates("simple", raw)
	if err != nil {
		t.Fatalf("parseCandidates: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2 (malformed elements skipped): %+v", len(candidates), candidates)
	}
	if candidates[0].Title != "Good gap" {
		t.Fatalf("first candidate = %q", candidates[0].Title)
	}
	last := candidates[1]
	if last.Category != CategoryTechnical {
		t.Fatalf("category not normalized: %q", last.Category)
	}
	if len(last.Questions) != 1 || last.Questions[0] != "Which services share the queue?" {
		t.Fatalf("questions not trimmed/filtered: %+v", last.Questions)
	}
}

func TestClampPriority(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, 3},  // missing priority defaults to middle
		{-2, 3},
		{1, 1},
		{3, 3},
		{5, 5},
		{9, 5},
	}
	for _, tc := range cases {
		if got := clampPriority(tc.in); got != tc.want {
			t.Errorf("clampPriority(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeCategory(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"decision", "decision", true},
		{"  Rationale ", "rationale", true},
		{"TIMELINE", "timeline", true},
		{"miscellaneous", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeCategory(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("NormalizeCategory(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
