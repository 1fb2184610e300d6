package gaps

import (
	"testing"

	"knowledge-backend/internal/analysis"
)

func TestScoreCategoryBase(t *testing.T) {
	cases := []struct {
		category string
		want     int
	}{
		{"decision", 4},
		{"rationale", 4},
		{"technical", 3},
		{"process", 3},
		{"relationship", 3},
		{"outcome", 3},
		{"context", 2},
		{"timeline", 2},
		{"unknown-category", 3},
	}
	for _, tc := range cases {
		if got := Score(tc.category, nil, CategoryWeight{}); got != tc.want {
			t.Fatalf("Score(%s) = %d, want %d", tc.category, got, tc.want)
		}
	}
}

func TestScoreEvidenceStrength(t *testing.T) {
	twoDocs := []analysis.Evidence{
		{DocumentID: "a"}, {DocumentID: "b"}, {DocumentID: "b"},
	}
	if got := Score("process", twoDocs, CategoryWeight{}); got != 3 {
		t.Fatalf("two distinct documents should not bump the score, got %d", got)
	}

	threeDocs := append(twoDocs, analysis.Evidence{DocumentID: "c"})
	if got := Score("process", threeDocs, CategoryWeight{}); got != 4 {
		t.Fatalf("three distinct documents should bump the score, got %d", got)
	}
}

func TestScoreFeedbackAdjustment(t *testing.T) {
	favored := CategoryWeight{UsefulCount: 7, NotUsefulCount: 3}
	if got := Score("process", nil, favored); got != 4 {
		t.Fatalf("favored category should gain a point, got %d", got)
	}

	disfavored := CategoryWeight{UsefulCount: 1, NotUsefulCount: 9}
	if got := Score("process", nil, disfavored); got != 2 {
		t.Fatalf("disfavored category should lose a point, got %d", got)
	}

	neutral := CategoryWeight{UsefulCount: 5, NotUsefulCount: 5}
	if got := Score("process", nil, neutral); got != 3 {
		t.Fatalf("neutral feedback should not change the score, got %d", got)
	}
}

func TestScoreClamped(t *testing.T) {
	manyDocs := []analysis.Evidence{
		{DocumentID: "a"}, {DocumentID: "b"}, {DocumentID: "c"}, {DocumentID: "d"},
	}
	favored := CategoryWeight{UsefulCount: 10}
	if got := Score("decision", manyDocs, favored); got != 5 {
		t.Fatalf("score must clamp at 5, got %d", got)
	}

	disfavored := CategoryWeight{NotUsefulCount: 10}
	if got := Score("timeline", nil, disfavored); got != 1 {
		t.Fatalf("score must clamp at 1, got %d", got)
	}
}
