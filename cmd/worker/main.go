package main

// Background re-embed worker:
//   go run ./cmd/worker

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"knowledge-backend/internal/bootstrap"
	"knowledge-backend/internal/shared/config"
	"knowledge-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg, bootstrap.BuildOptions{
		DBOptions:  db.DefaultWorkerOptions(),
		SkipRouter: true,
	})
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer app.Close()

	if app.DB == nil {
		log.Fatal("worker requires DATABASE_URL: in-memory answers have no durable embed backlog")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Starting re-embed worker, interval %s", app.Worker.Interval)
	app.Worker.Run(ctx)
	log.Printf("Worker stopped")
}
