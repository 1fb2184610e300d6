package runs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"knowledge-backend/internal/analysis"
	"knowledge-backend/internal/corpus"
	"knowledge-backend/internal/gaps"
	"knowledge-backend/internal/llm"
	"knowledge-backend/internal/shared/metrics"
	"knowledge-backend/internal/shared/telemetry"
)

type inflightRun struct {
	runID  string
	cancel context.CancelFunc
}

// Service orchestrates analysis runs: corpus selection, strategy
// execution, dedup and persistence. At most one run executes per tenant
// at a time; a second start while one is in flight is rejected.
type Service struct {
	Store    *Store
	Selector *corpus.Selector
	Gaps     gaps.Repo
	Weights  gaps.WeightsRepo
	LLM      llm.Client
	Mode     string

	mu       sync.Mutex
	inflight map[string]inflightRun
}

// NewService constructs a Service.
func NewService(store *Store, selector *corpus.Selector, gapsRepo gaps.Repo, weights gaps.WeightsRepo, client llm.Client, mode string) *Service {
	return &Service{
		Store:    store,
		Selector: selector,
		Gaps:     gapsRepo,
		Weights:  weights,
		LLM:      client,
		Mode:     mode,
		inflight: make(map[string]inflightRun),
	}
}

// Start begins an analysis run for the tenant and returns its poll
// handle immediately. The run itself executes in the background.
func (s *Service) Start(tenantID, projectID string) (Run, error) {
	s.mu.Lock()
	if _, busy := s.inflight[tenantID]; busy {
		s.mu.Unlock()
		return Run{}, ErrAlreadyRunning
	}
	run := Run{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		ProjectID: projectID,
		Mode:      s.Mode,
		State:     StateRunning,
		StartedAt: time.Now().UTC(),
	}
	// Detached from the request context: the run outlives the HTTP call.
	runCtx, cancel := context.WithCancel(context.Background())
	s.inflight[tenantID] = inflightRun{runID: run.ID, cancel: cancel}
	s.mu.Unlock()

	s.Store.Put(run)
	metrics.IncRunStarted()
	telemetry.Info("runs.started", map[string]any{
		"runId":    run.ID,
		"tenantId": tenantID,
		"mode":     s.Mode,
	})

	go s.execute(runCtx, run)
	return run, nil
}

// Cancel stops a running run. Work already in flight stops at the next
// stage boundary; nothing the cancelled run produced is persisted.
func (s *Service) Cancel(tenantID, runID string) error {
	run, err := s.Store.Get(tenantID, runID)
	if err != nil {
		return err
	}
	if run.State != StateRunning {
		return ErrNotRunning
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.inflight[tenantID]
	if !ok || entry.runID != runID {
		return ErrNotRunning
	}
	entry.cancel()
	return nil
}

// Get returns the tenant's run handle.
func (s *Service) Get(tenantID, runID string) (Run, error) {
	return s.Store.Get(tenantID, runID)
}

// List returns the tenant's unexpired run handles.
func (s *Service) List(tenantID string) []Run {
	return s.Store.ListByTenant(tenantID)
}

func (s *Service) execute(ctx context.Context, run Run) {
	started := time.Now()
	defer func() {
		s.mu.Lock()
		if entry, ok := s.inflight[run.TenantID]; ok && entry.runID == run.ID {
			entry.cancel()
			delete(s.inflight, run.TenantID)
		}
		s.mu.Unlock()
	}()

	bundle, err := s.Selector.Select(ctx, run.TenantID, run.ProjectID)
	if err != nil {
		if ctx.Err() != nil {
			s.cancelled(run, started)
			return
		}
		s.fail(run, started, "corpus selection failed", err)
		return
	}
	s.Store.Update(run.ID, func(r *Run) {
		r.DocumentsIncluded = bundle.DocumentsIncluded
		r.DocumentsSkipped = bundle.DocumentsSkipped
	})

	if bundle.Empty() {
		telemetry.Info("runs.empty_corpus", map[string]any{
			"runId":    run.ID,
			"tenantId": run.TenantID,
		})
		s.complete(run, started, gaps.DedupeResult{})
		return
	}

	weights, err := s.Weights.Get(ctx, run.TenantID)
	if err != nil {
		if ctx.Err() != nil {
			s.cancelled(run, started)
			return
		}
		s.fail(run, started, "loading feedback weights failed", err)
		return
	}

	strategy, err := analysis.ForMode(s.Mode, llm.WithRetry(s.LLM, run.ID, uuid.NewString()), toAnalysisWeights(weights))
	if err != nil {
		s.fail(run, started, "unknown analysis mode", err)
		return
	}

	candidates, err := strategy.Analyze(ctx, bundle)
	if err != nil {
		if ctx.Err() != nil {
			s.cancelled(run, started)
			return
		}
		s.fail(run, started, "analysis failed", err)
		return
	}

	// Cancellation checkpoint before persistence: a cancelled run must
	// not write any gaps. Past this point there is no LLM work left for a
	// cancel to stop, so the batch persists detached from the run context;
	// a late cancel cannot strand a half-written run.
	if ctx.Err() != nil {
		s.cancelled(run, started)
		return
	}

	deduper := &gaps.Deduper{Repo: s.Gaps}
	result, err := deduper.Apply(context.WithoutCancel(ctx), run.TenantID, candidates, weights)
	if err != nil {
		s.fail(run, started, "persisting gaps failed", err)
		return
	}

	s.complete(run, started, result)
}

func (s *Service) complete(run Run, started time.Time, result gaps.DedupeResult) {
	now := time.Now().UTC()
	s.Store.Update(run.ID, func(r *Run) {
		r.State = StateComplete
		r.GapsCreated = len(result.Created)
		r.GapsMerged = result.Merged
		r.CompletedAt = &now
	})
	metrics.IncRunCompleted()
	metrics.AddGapsCreated(len(result.Created))
	metrics.AddGapsMerged(result.Merged)
	metrics.ObserveRunDurationMs(float64(time.Since(started).Milliseconds()))
	telemetry.Info("runs.completed", map[string]any{
		"runId":      run.ID,
		"tenantId":   run.TenantID,
		"created":    len(result.Created),
		"merged":     result.Merged,
		"durationMs": time.Since(started).Milliseconds(),
	})
}

func (s *Service) fail(run Run, started time.Time, message string, err error) {
	now := time.Now().UTC()
	s.Store.Update(run.ID, func(r *Run) {
		r.State = StateFailed
		r.Error = message
		r.CompletedAt = &now
	})
	metrics.IncRunFailed()
	telemetry.Error("runs.failed", map[string]any{
		"runId":      run.ID,
		"tenantId":   run.TenantID,
		"message":    message,
		"error":      err.Error(),
		"durationMs": time.Since(started).Milliseconds(),
	})
}

func (s *Service) cancelled(run Run, started time.Time) {
	now := time.Now().UTC()
	s.Store.Update(run.ID, func(r *Run) {
		r.State = StateFailed
		r.Error = "cancelled"
		r.CompletedAt = &now
	})
	metrics.IncRunCancelled()
	telemetry.Info("runs.cancelled", map[string]any{
		"runId":      run.ID,
		"tenantId":   run.TenantID,
		"durationMs": time.Since(started).Milliseconds(),
	})
}

// toAnalysisWeights converts feedback counters into the ratio form the
// deep strategy consumes. Categories without feedback are omitted.
func toAnalysisWeights(weights map[string]gaps.CategoryWeight) analysis.Weights {
	out := make(analysis.Weights, len(weights))
	for category, w := range weights {
		if ratio := w.Ratio(); ratio >= 0 {
			out[category] = ratio
		}
	}
	return out
}

// IsRunning reports whether a run is currently in flight for the tenant.
func (s *Service) IsRunning(tenantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inflight[tenantID]
	return busy
}
