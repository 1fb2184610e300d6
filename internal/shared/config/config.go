package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration.
type Config struct {
	Port              string
	CORSAllowOrigin   []string
	DatabaseURL       string
	Env               string
	LLMProvider       string
	LLMModel          string
	LLMRequestsPerMin int
	AnalysisMode      string
	CorpusCharBudget  int
	CorpusMaxDocs     int
	MilvusAddr        string
	MilvusCollection  string
	EmbeddingModel    string
	TranscribeURL     string
	RunTTLMinutes     int
	WorkerInterval    string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:              getEnv("PORT", "8080"),
		CORSAllowOrigin:   splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:       dbURL,
		Env:               env,
		LLMProvider:       getEnv("LLM_PROVIDER", "openai"),
		LLMModel:          getEnv("LLM_MODEL", ""),
		LLMRequestsPerMin: getEnvInt("LLM_REQUESTS_PER_MIN", 30),
		AnalysisMode:      normalizeMode(getEnv("ANALYSIS_MODE", "simple")),
		CorpusCharBudget:  getEnvInt("CORPUS_CHAR_BUDGET", 60000),
		CorpusMaxDocs:     getEnvInt("CORPUS_MAX_DOCS", 200),
		MilvusAddr:        getEnv("MILVUS_ADDR", ""),
		MilvusCollection:  getEnv("MILVUS_COLLECTION", "gap_answers"),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		TranscribeURL:     getEnv("TRANSCRIBE_URL", ""),
		RunTTLMinutes:     getEnvInt("RUN_TTL_MINUTES", 60),
		WorkerInterval:    getEnv("WORKER_INTERVAL", "1m"),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config: %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	default:
		return "dev"
	}
}

func normalizeMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "multistage", "multi-stage", "multi_stage":
		return "multistage"
	case "goalfirst", "goal-first", "goal_first":
		return "goalfirst"
	case "intelligent", "nlp":
		return "intelligent"
	case "deep", "v3", "deep-v3":
		return "deep"
	default:
		return "simple"
	}
}
