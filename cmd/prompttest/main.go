package main

// Offline strategy harness: runs one analysis strategy against documents
// loaded from a JSON file and prints the resulting gap candidates.
//
//   OPENAI_API_KEY=... go run ./cmd/prompttest -mode deep -docs fixtures.json

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"knowledge-backend/internal/analysis"
	"knowledge-backend/internal/corpus"
	"knowledge-backend/internal/documents"
	"knowledge-backend/internal/llm"
	openai "knowledge-backend/internal/llm/openai"
	"knowledge-backend/internal/shared/config"
)

func main() {
	mode := flag.String("mode", "simple", "analysis mode: simple|multistage|goalfirst|intelligent|deep")
	docsPath := flag.String("docs", "", "path to a JSON array of documents")
	tenant := flag.String("tenant", "prompttest", "tenant id to stamp on the bundle")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	flag.Parse()

	if *docsPath == "" {
		log.Fatal("-docs is required")
	}
	raw, err := os.ReadFile(*docsPath)
	if err != nil {
		log.Fatalf("read docs: %v", err)
	}
	var docs []documents.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		log.Fatalf("parse docs: %v", err)
	}
	for i := range docs {
		if docs[i].TenantID == "" {
			docs[i].TenantID = *tenant
		}
		if docs[i].Classification == "" {
			docs[i].Classification = "work"
		}
	}

	cfg := config.Load()
	client, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), cfg.LLMModel, cfg.LLMRequestsPerMin)
	if err != nil {
		log.Fatalf("llm client: %v", err)
	}

	repo := documents.NewMemoryRepo()
	repo.Seed(docs...)
	selector := &corpus.Selector{
		Docs:       repo,
		CharBudget: cfg.CorpusCharBudget,
		MaxDocs:    cfg.CorpusMaxDocs,
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Capture the final prompt's hash so iterations on prompt wording can
	// be told apart in the output.
	var promptHash string
	ctx = llm.WithPromptHashSink(ctx, &promptHash)

	bundle, err := selector.Select(ctx, *tenant, "")
	if err != nil {
		log.Fatalf("corpus selection: %v", err)
	}
	fmt.Printf("corpus: %d included, %d skipped, %d chars\n",
		bundle.DocumentsIncluded, bundle.DocumentsSkipped, bundle.TotalChars)

	strategy, err := analysis.ForMode(*mode, llm.WithRetry(client, "prompttest", "prompttest"), nil)
	if err != nil {
		log.Fatalf("strategy: %v", err)
	}

	started := time.Now()
	candidates, err := strategy.Analyze(ctx, bundle)
	if err != nil {
		log.Fatalf("analyze: %v", err)
	}
	fmt.Printf("strategy %s produced %d candidates in %s (prompt_hash=%s)\n\n",
		strategy.Name(), len(candidates), time.Since(started).Round(time.Second), promptHash)

	for i, cand := range candidates {
		fmt.Printf("[%d] %s (category=%s priority=%d)\n", i+1, cand.Title, cand.Category, cand.Priority)
		if cand.Description != "" {
			fmt.Printf("    %s\n", cand.Description)
		}
		for _, q := range cand.Questions {
			fmt.Printf("    Q: %s\n", q)
		}
		for _, ev := range cand.Evidence {
			fmt.Printf("    evidence: doc=%s %q\n", ev.DocumentID, ev.Quote)
		}
		fmt.Println()
	}
}
