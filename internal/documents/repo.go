package documents

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("not found")

// SourceRepo is the read-only listing interface over the connector-owned
// document corpus. Implementations must never write.
type SourceRepo interface {
	// ListEligible returns documents classified as work or still pending,
	// newest first, capped at limit. An empty projectID means tenant-wide scope.
	ListEligible(ctx context.Context, tenantID, projectID string, limit int) ([]Document, error)
	GetByID(ctx context.Context, tenantID, documentID string) (Document, error)
}
