package gaps

import (
	"testing"

	"knowledge-backend/internal/analysis"
)

func TestFingerprintStableAcrossCosmeticChanges(t *testing.T) {
	evidence := []analysis.Evidence{
		{DocumentID: "doc-2", Quote: "we went with vendor A"},
		{DocumentID: "doc-1", Quote: "pricing discussion"},
	}

	base := Fingerprint("tenant-1", "decision", "Why was Vendor A chosen?", evidence)

	cases := []struct {
		name     string
		category string
		title    string
		evidence []analysis.Evidence
	}{
		{
			name:     "title punctuation and casing",
			category: "decision",
			title:    "why was vendor a CHOSEN",
			evidence: evidence,
		},
		{
			name:     "category casing",
			category: " Decision ",
			title:    "Why was Vendor A chosen?",
			evidence: evidence,
		},
		{
			name:     "evidence order and quotes",
			category: "decision",
			title:    "Why was Vendor A chosen?",
			evidence: []analysis.Evidence{
				{DocumentID: "doc-1", Quote: "different quote entirely"},
				{DocumentID: "doc-2"},
				{DocumentID: "doc-1", Quote: "duplicate doc"},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Fingerprint("tenant-1", tc.category, tc.title, tc.evidence)
			if got != base {
				t.Fatalf("fingerprint changed: got %s want %s", got, base)
			}
		})
	}
}

func TestFingerprintDiscriminates(t *testing.T) {
	evidence := []analysis.Evidence{{DocumentID: "doc-1"}}
	base := Fingerprint("tenant-1", "decision", "Why was Vendor A chosen?", evidence)

	if got := Fingerprint("tenant-2", "decision", "Why was Vendor A chosen?", evidence); got == base {
		t.Fatal("different tenant should produce a different fingerprint")
	}
	if got := Fingerprint("tenant-1", "rationale", "Why was Vendor A chosen?", evidence); got == base {
		t.Fatal("different category should produce a different fingerprint")
	}
	if got := Fingerprint("tenant-1", "decision", "Why was Vendor B chosen?", evidence); got == base {
		t.Fatal("different title should produce a different fingerprint")
	}
	other := []analysis.Evidence{{DocumentID: "doc-9"}}
	if got := Fingerprint("tenant-1", "decision", "Why was Vendor A chosen?", other); got == base {
		t.Fatal("different evidence documents should produce a different fingerprint")
	}
}

func TestNormalizeTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Why was Vendor A chosen?  ", "why was vendor a chosen"},
		{"What's the rollout-plan??", "what s the rollout plan"},
		{"ALL   CAPS    TITLE", "all caps title"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeTitle(tc.in); got != tc.want {
			t.Fatalf("NormalizeTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
