package main

import (
	"context"
	"log"

	"knowledge-backend/internal/bootstrap"
	"knowledge-backend/internal/shared/config"
	"knowledge-backend/internal/shared/server"
	"knowledge-backend/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg, bootstrap.BuildOptions{
		DBOptions: db.DefaultServerOptions(),
	})
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer app.Close()

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	app.RunStore.StartSweeper(sweepCtx, 0)

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
