package gaps

import (
	"context"
	"testing"

	"knowledge-backend/internal/analysis"
)

func vendorCandidate() analysis.Candidate {
	return analysis.Candidate{
		Title:       "Why was Vendor A chosen over Vendor B?",
		Description: "The corpus documents the choice but not the reasoning.",
		Category:    "decision",
		Priority:    4,
		Questions:   []string{"What criteria drove the vendor choice?"},
		Evidence:    []analysis.Evidence{{DocumentID: "doc-1", Quote: "went with vendor A"}},
	}
}

func applyCandidates(t *testing.T, d *Deduper, candidates ...analysis.Candidate) DedupeResult {
	t.Helper()
	result, err := d.Apply(context.Background(), "tenant-1", candidates, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return result
}

func TestDeduperCreatesThenMerges(t *testing.T) {
	repo := NewMemoryRepo()
	d := &Deduper{Repo: repo}

	first := applyCandidates(t, d, vendorCandidate())
	if len(first.Created) != 1 || first.Merged != 0 {
		t.Fatalf("first run: created=%d merged=%d, want 1/0", len(first.Created), first.Merged)
	}
	gap := first.Created[0]
	if gap.Status != StatusOpen {
		t.Fatalf("new gap status = %s, want open", gap.Status)
	}
	if gap.Priority != 4 {
		t.Fatalf("new gap priority = %d, want 4", gap.Priority)
	}

	// identical candidate on a later run merges instead of duplicating
	second := applyCandidates(t, d, vendorCandidate())
	if len(second.Created) != 0 || second.Merged != 1 {
		t.Fatalf("second run: created=%d merged=%d, want 0/1", len(second.Created), second.Merged)
	}

	list, err := repo.List(context.Background(), "tenant-1", ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected exactly one persisted gap, got %d", len(list))
	}
}

func TestDeduperAppendsNovelQuestions(t *testing.T) {
	repo := NewMemoryRepo()
	d := &Deduper{Repo: repo}

	created := applyCandidates(t, d, vendorCandidate()).Created[0]

	next := vendorCandidate()
	next.Questions = []string{
		"What criteria drove the vendor choice?", // already known
		"What alternatives were priced out?",
	}
	applyCandidates(t, d, next)

	gap, err := repo.GetByID(context.Background(), "tenant-1", created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(gap.Questions) != 2 {
		t.Fatalf("expected 2 questions after merge, got %d", len(gap.Questions))
	}
	if gap.Questions[1].Index != 1 || gap.Questions[1].Answered {
		t.Fatalf("appended question malformed: %+v", gap.Questions[1])
	}
}

func TestDeduperIntraRunDuplicates(t *testing.T) {
	repo := NewMemoryRepo()
	d := &Deduper{Repo: repo}

	result := applyCandidates(t, d, vendorCandidate(), vendorCandidate())
	if len(result.Created) != 1 || result.Merged != 1 {
		t.Fatalf("intra-run dup: created=%d merged=%d, want 1/1", len(result.Created), result.Merged)
	}
}

func TestDeduperReopensAnsweredGapOnNewQuestions(t *testing.T) {
	repo := NewMemoryRepo()
	d := &Deduper{Repo: repo}

	created := applyCandidates(t, d, vendorCandidate()).Created[0]
	created.Questions[0].Answered = true
	if err := repo.UpdateQuestions(context.Background(), "tenant-1", created.ID, created.Questions); err != nil {
		t.Fatalf("UpdateQuestions: %v", err)
	}
	if err := repo.UpdateStatus(context.Background(), "tenant-1", created.ID, StatusAnswered); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	next := vendorCandidate()
	next.Questions = []string{"What was the contract term?"}
	applyCandidates(t, d, next)

	gap, err := repo.GetByID(context.Background(), "tenant-1", created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if gap.Status != StatusInProgress {
		t.Fatalf("answered gap with new questions should return to in_progress, got %s", gap.Status)
	}
}

func TestDeduperLeavesClosedGapsAlone(t *testing.T) {
	repo := NewMemoryRepo()
	d := &Deduper{Repo: repo}

	created := applyCandidates(t, d, vendorCandidate()).Created[0]
	if err := repo.UpdateStatus(context.Background(), "tenant-1", created.ID, StatusClosed); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	next := vendorCandidate()
	next.Questions = []string{"Should not be appended"}
	result := applyCandidates(t, d, next)
	if result.Merged != 1 {
		t.Fatalf("closed gap re-detection should count as merged, got %d", result.Merged)
	}

	gap, err := repo.GetByID(context.Background(), "tenant-1", created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if gap.Status != StatusClosed || len(gap.Questions) != 1 {
		t.Fatalf("closed gap must stay untouched: status=%s questions=%d", gap.Status, len(gap.Questions))
	}
}

func TestDeduperRescoresExistingGapOnMerge(t *testing.T) {
	repo := NewMemoryRepo()
	d := &Deduper{Repo: repo}

	created := applyCandidates(t, d, vendorCandidate()).Created[0]
	if created.Priority != 4 {
		t.Fatalf("initial priority = %d, want 4", created.Priority)
	}

	// feedback accumulated since the gap was scored applies on the next
	// run that touches it
	weights := map[string]CategoryWeight{
		"decision": {TenantID: "tenant-1", Category: "decision", UsefulCount: 10},
	}
	result, err := d.Apply(context.Background(), "tenant-1", []analysis.Candidate{vendorCandidate()}, weights)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Merged != 1 {
		t.Fatalf("merged = %d, want 1", result.Merged)
	}

	gap, err := repo.GetByID(context.Background(), "tenant-1", created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if gap.Priority != 5 {
		t.Fatalf("priority after favorable feedback = %d, want 5", gap.Priority)
	}
}
