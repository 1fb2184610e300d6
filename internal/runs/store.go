package runs

import (
	"context"
	"sort"
	"sync"
	"time"

	"knowledge-backend/internal/shared/telemetry"
)

// Store keeps run handles in memory, scoped per tenant. Terminal runs
// are swept once they outlive the TTL; running handles never expire.
type Store struct {
	mu   sync.RWMutex
	runs map[string]Run
	ttl  time.Duration
	now  func() time.Time
}

// NewStore constructs a Store with the given handle TTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		runs: make(map[string]Run),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put stores or replaces a run handle.
func (s *Store) Put(run Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

// Get returns the tenant's run by ID. Expired and foreign handles both
// read as not found.
func (s *Store) Get(tenantID, runID string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok || run.TenantID != tenantID || s.expired(run) {
		return Run{}, ErrNotFound
	}
	return run, nil
}

// ListByTenant returns the tenant's unexpired handles, newest first.
func (s *Store) ListByTenant(tenantID string) []Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Run
	for _, run := range s.runs {
		if run.TenantID != tenantID || s.expired(run) {
			continue
		}
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// Update applies fn to the stored run, if it still exists.
func (s *Store) Update(runID string, fn func(*Run)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return
	}
	fn(&run)
	s.runs[runID] = run
}

// Sweep removes expired terminal handles and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, run := range s.runs {
		if s.expired(run) {
			delete(s.runs, id)
			removed++
		}
	}
	return removed
}

// StartSweeper sweeps expired handles periodically until ctx ends.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.Sweep(); removed > 0 {
					telemetry.Info("runs.swept", map[string]any{"removed": removed})
				}
			}
		}
	}()
}

func (s *Store) expired(run Run) bool {
	if !run.Terminal() || run.CompletedAt == nil {
		return false
	}
	return s.now().Sub(*run.CompletedAt) > s.ttl
}
