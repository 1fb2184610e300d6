package runs

import (
	"testing"
	"time"
)

func newTestStore(ttl time.Duration) (*Store, *time.Time) {
	s := NewStore(ttl)
	now := time.Now().UTC()
	s.now = func() time.Time { return now }
	return s, &now
}

func completedRun(id, tenantID string, at time.Time) Run {
	return Run{
		ID:          id,
		TenantID:    tenantID,
		State:       StateComplete,
		StartedAt:   at.Add(-time.Minute),
		CompletedAt: &at,
	}
}

func TestStoreTenantScoping(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	s.Put(Run{ID: "run-1", TenantID: "tenant-1", State: StateRunning, StartedAt: time.Now()})

	if _, err := s.Get("tenant-1", "run-1"); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := s.Get("tenant-2", "run-1"); err != ErrNotFound {
		t.Fatalf("foreign tenant read: expected ErrNotFound, got %v", err)
	}
}

func TestStoreExpiresTerminalHandles(t *testing.T) {
	s, now := newTestStore(time.Hour)
	s.Put(completedRun("old", "tenant-1", now.Add(-2*time.Hour)))
	s.Put(completedRun("fresh", "tenant-1", now.Add(-time.Minute)))
	s.Put(Run{ID: "live", TenantID: "tenant-1", State: StateRunning, StartedAt: now.Add(-3 * time.Hour)})

	if _, err := s.Get("tenant-1", "old"); err != ErrNotFound {
		t.Fatalf("expired handle: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Get("tenant-1", "fresh"); err != nil {
		t.Fatalf("fresh handle: %v", err)
	}
	// running handles never expire regardless of age
	if _, err := s.Get("tenant-1", "live"); err != nil {
		t.Fatalf("running handle: %v", err)
	}

	if removed := s.Sweep(); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if got := len(s.ListByTenant("tenant-1")); got != 2 {
		t.Fatalf("after sweep ListByTenant = %d, want 2", got)
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	s, now := newTestStore(time.Hour)
	s.Put(Run{ID: "a", TenantID: "t", State: StateRunning, StartedAt: now.Add(-3 * time.Minute)})
	s.Put(Run{ID: "b", TenantID: "t", State: StateRunning, StartedAt: now.Add(-1 * time.Minute)})
	s.Put(Run{ID: "c", TenantID: "t", State: StateRunning, StartedAt: now.Add(-2 * time.Minute)})

	list := s.ListByTenant("t")
	if len(list) != 3 || list[0].ID != "b" || list[1].ID != "c" || list[2].ID != "a" {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestStoreUpdate(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	s.Put(Run{ID: "run-1", TenantID: "t", State: StateRunning})

	s.Update("run-1", func(r *Run) {
		r.State = StateComplete
		r.GapsCreated = 3
	})

	run, err := s.Get("t", "run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if run.State != StateComplete || run.GapsCreated != 3 {
		t.Fatalf("update not applied: %+v", run)
	}
}
