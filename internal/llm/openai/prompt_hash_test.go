package openai

import (
	"context"
	"testing"

	"knowledge-backend/internal/llm"
)

func TestPromptHashDeterministic(t *testing.T) {
	req := llm.Request{System: "You find knowledge gaps.", User: "Analyze this corpus."}

	first := hashPromptString(promptString(req))
	second := hashPromptString(promptString(req))
	if first != second {
		t.Fatalf("same request hashed differently: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(first))
	}

	other := req
	other.User = "Analyze this other corpus."
	if got := hashPromptString(promptString(other)); got == first {
		t.Fatal("different prompts must not collide")
	}
}

func TestPromptHashSinkRoundTrip(t *testing.T) {
	if _, ok := llm.PromptHashSinkFromContext(context.Background()); ok {
		t.Fatal("bare context must carry no sink")
	}

	var captured string
	ctx := llm.WithPromptHashSink(context.Background(), &captured)
	sink, ok := llm.PromptHashSinkFromContext(ctx)
	if !ok || sink == nil {
		t.Fatal("sink not recoverable from context")
	}

	*sink = hashPromptString(promptString(llm.Request{System: "s", User: "u"}))
	if captured == "" {
		t.Fatal("writing through the sink must reach the caller's variable")
	}
}
