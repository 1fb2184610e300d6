package llm

import (
	"context"
	"errors"
)

// Request is a single completion request. Strategies compose multi-pass
// pipelines out of sequential requests; each request is self-contained.
type Request struct {
	System string
	User   string
	// WantJSON asks the provider for a JSON object response. The returned
	// string is still validated by the caller; providers may lie.
	WantJSON bool
}

// Client abstracts LLM providers for gap analysis.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type promptHashSinkKey struct{}

// WithPromptHashSink asks the provider to record the hash of the exact
// prompt it sends into sink. Used to correlate outputs with the prompt
// revision that produced them.
func WithPromptHashSink(ctx context.Context, sink *string) context.Context {
	return context.WithValue(ctx, promptHashSinkKey{}, sink)
}

// PromptHashSinkFromContext returns the sink installed by WithPromptHashSink.
func PromptHashSinkFromContext(ctx context.Context) (*string, bool) {
	sink, ok := ctx.Value(promptHashSinkKey{}).(*string)
	return sink, ok
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// Complete returns ErrNotImplemented.
func (PlaceholderClient) Complete(ctx context.Context, req Request) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotImplemented
}
