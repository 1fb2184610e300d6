package runs

import "time"

// Run states exposed by the poll endpoint.
const (
	StateRunning  = "running"
	StateComplete = "complete"
	StateFailed   = "failed"
)

// Run is one analysis execution for a tenant. Runs are ephemeral poll
// handles, not durable records: the gaps a run produces are the durable
// output, the handle expires after its TTL.
type Run struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenantId"`
	ProjectID         string     `json:"projectId,omitempty"`
	Mode              string     `json:"mode"`
	State             string     `json:"state"`
	GapsCreated       int        `json:"gapsCreated"`
	GapsMerged        int        `json:"gapsMerged"`
	DocumentsIncluded int        `json:"documentsIncluded"`
	DocumentsSkipped  int        `json:"documentsSkipped"`
	Error             string     `json:"error,omitempty"`
	StartedAt         time.Time  `json:"startedAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// Terminal reports whether the run has finished, one way or the other.
func (r Run) Terminal() bool {
	return r.State == StateComplete || r.State == StateFailed
}
