// Package bootstrap builds the application dependency graph shared by
// the API server and the background worker.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"knowledge-backend/internal/corpus"
	"knowledge-backend/internal/documents"
	"knowledge-backend/internal/embedding"
	"knowledge-backend/internal/gaps"
	"knowledge-backend/internal/index"
	"knowledge-backend/internal/llm"
	openai "knowledge-backend/internal/llm/openai"
	"knowledge-backend/internal/runs"
	"knowledge-backend/internal/shared/config"
	"knowledge-backend/internal/shared/server"
	"knowledge-backend/internal/shared/storage/db"
	"knowledge-backend/internal/transcribe"
	"knowledge-backend/internal/workerproc"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB

	DocumentsRepo documents.SourceRepo
	GapsRepo      gaps.Repo
	WeightsRepo   gaps.WeightsRepo

	Selector *corpus.Selector
	Pipeline *index.Pipeline

	GapsService *gaps.Service
	RunsService *runs.Service
	RunStore    *runs.Store
	Worker      *workerproc.Worker

	GapsHandler *gaps.Handler
	RunsHandler *runs.Handler
}

// BuildOptions tweaks which parts of the graph are constructed.
type BuildOptions struct {
	DBOptions db.Options
	// SkipRouter is set by the worker, which has no HTTP surface.
	SkipRouter bool
}

// Build prepares shared dependencies.
func Build(cfg config.Config, opts BuildOptions) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	app := &App{Config: cfg}

	sqlDB, err := buildDB(ctx, cfg, opts.DBOptions)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB

	if sqlDB != nil {
		app.DocumentsRepo = &documents.PGRepo{DB: sqlDB}
		app.GapsRepo = &gaps.PGRepo{DB: sqlDB}
		app.WeightsRepo = &gaps.PGWeightsRepo{DB: sqlDB}
	} else {
		app.DocumentsRepo = documents.NewMemoryRepo()
		app.GapsRepo = gaps.NewMemoryRepo()
		app.WeightsRepo = gaps.NewMemoryWeightsRepo()
	}

	app.Selector = &corpus.Selector{
		Docs:       app.DocumentsRepo,
		CharBudget: cfg.CorpusCharBudget,
		MaxDocs:    cfg.CorpusMaxDocs,
	}

	pipeline, err := buildPipeline(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Pipeline = pipeline

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	var transcriber transcribe.Transcriber
	if strings.TrimSpace(cfg.TranscribeURL) != "" {
		transcriber, err = transcribe.NewHTTPTranscriber(cfg.TranscribeURL)
		if err != nil {
			return nil, err
		}
	}

	app.GapsService = &gaps.Service{
		Repo:        app.GapsRepo,
		Weights:     app.WeightsRepo,
		Pipeline:    pipeline,
		Transcriber: transcriber,
	}
	app.RunStore = runs.NewStore(time.Duration(cfg.RunTTLMinutes) * time.Minute)
	app.RunsService = runs.NewService(app.RunStore, app.Selector, app.GapsRepo, app.WeightsRepo, llmClient, cfg.AnalysisMode)

	workerInterval, err := time.ParseDuration(cfg.WorkerInterval)
	if err != nil {
		log.Printf("bootstrap: invalid WORKER_INTERVAL %q, using 1m", cfg.WorkerInterval)
		workerInterval = time.Minute
	}
	app.Worker = &workerproc.Worker{
		Repo:     app.GapsRepo,
		Pipeline: pipeline,
		Interval: workerInterval,
	}

	app.GapsHandler = gaps.NewHandler(app.GapsService)
	app.RunsHandler = runs.NewHandler(app.RunsService)

	if !opts.SkipRouter {
		app.Router = server.NewRouter(server.RouterDeps{
			Config:      cfg,
			GapsHandler: app.GapsHandler,
			RunsHandler: app.RunsHandler,
		})
	}

	return app, nil
}

// Close releases connections held by the app.
func (a *App) Close() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Printf("bootstrap: closing database: %v", err)
		}
	}
}

func buildDB(ctx context.Context, cfg config.Config, opts db.Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(opts))
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildPipeline(ctx context.Context, cfg config.Config) (*index.Pipeline, error) {
	var embedder embedding.Embedder
	if cfg.LLMProvider == "openai" && strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) != "" {
		oe, err := embedding.NewOpenAIEmbedder(os.Getenv("OPENAI_API_KEY"), cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		embedder = oe
	} else {
		if !isDevLike(cfg.Env) {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for embeddings")
		}
		log.Printf("bootstrap: no embedding provider; using static embedder")
		embedder = embedding.NewStaticEmbedder(8)
	}

	var idx index.Index
	if strings.TrimSpace(cfg.MilvusAddr) != "" {
		milvusIdx, err := index.NewMilvusIndex(ctx, cfg.MilvusAddr, cfg.MilvusCollection, embedder.Dimension())
		if err != nil {
			if !isDevLike(cfg.Env) {
				return nil, err
			}
			log.Printf("bootstrap: milvus connect failed; using in-memory index: %v", err)
			idx = index.NewMemoryIndex()
		} else {
			idx = milvusIdx
		}
	} else {
		if !isDevLike(cfg.Env) {
			return nil, fmt.Errorf("MILVUS_ADDR is required")
		}
		log.Printf("bootstrap: MILVUS_ADDR empty; using in-memory index")
		idx = index.NewMemoryIndex()
	}

	return &index.Pipeline{Embedder: embedder, Index: idx}, nil
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.LLMProvider == "openai" && strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) != "" {
		return openai.NewClient(os.Getenv("OPENAI_API_KEY"), cfg.LLMModel, cfg.LLMRequestsPerMin)
	}
	if !isDevLike(cfg.Env) {
		return nil, fmt.Errorf("LLM_PROVIDER %q is not configured", cfg.LLMProvider)
	}
	log.Printf("bootstrap: no LLM provider configured; using placeholder client")
	return llm.PlaceholderClient{}, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
