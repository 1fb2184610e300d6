package runs

import "errors"

var (
	ErrNotFound       = errors.New("run not found")
	ErrAlreadyRunning = errors.New("a run is already in progress for this tenant")
	ErrNotRunning     = errors.New("run is not in progress")
)
