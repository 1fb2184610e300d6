package documents

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores documents in memory and is safe for concurrent use.
// Used in dev mode and as a test fake.
type MemoryRepo struct {
	mu       sync.RWMutex
	byTenant map[string][]Document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byTenant: make(map[string][]Document)}
}

// Seed adds documents to the repo. Test and dev helper; the production
// source is populated by the connector service.
func (r *MemoryRepo) Seed(docs ...Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range docs {
		r.byTenant[doc.TenantID] = append(r.byTenant[doc.TenantID], doc)
	}
}

// ListEligible returns work-or-pending documents for a tenant, newest first.
func (r *MemoryRepo) ListEligible(ctx context.Context, tenantID, projectID string, limit int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 200
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Document
	for _, doc := range r.byTenant[tenantID] {
		if doc.Classification != ClassificationWork && doc.Classification != ClassificationPending {
			continue
		}
		if projectID != "" && doc.ProjectID != projectID {
			continue
		}
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DocumentTS.After(out[j].DocumentTS)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetByID returns a single document scoped to the tenant.
func (r *MemoryRepo) GetByID(ctx context.Context, tenantID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, doc := range r.byTenant[tenantID] {
		if doc.ID == documentID {
			return doc, nil
		}
	}
	return Document{}, ErrNotFound
}
