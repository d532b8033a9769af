package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string

	QdrantURL        string
	QdrantCollection string
	QdrantVectorSize int

	ChunkSize          int
	ChunkOverlap       int
	RetrievalK         int
	EmbeddingBatchSize int
	ChatHistoryLimit   int

	DBPath    string
	UploadDir string
	APIPort   string

	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or an ancestor, it will be loaded
// automatically. Environment variables already set take precedence over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up to find a .env at the project root
	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "llama-3.1-8b-instant"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL", "mistral-embed"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "uploads"),
		DBPath:             getEnv("DB_PATH", "./data/docchat.db"),
		UploadDir:          getEnv("UPLOAD_DIR", "./data/uploads"),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.QdrantVectorSize, err = getEnvInt("QDRANT_VECTOR_SIZE", 0); err != nil {
		return nil, err
	}
	if cfg.QdrantVectorSize <= 0 {
		// Must match the output dimension of the embedding model; there is no
		// safe default because a wrong value silently corrupts the index.
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required and must be greater than 0")
	}

	if cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 200); err != nil {
		return nil, err
	}
	if cfg.RetrievalK, err = getEnvInt("RETRIEVAL_K", 3); err != nil {
		return nil, err
	}
	if cfg.EmbeddingBatchSize, err = getEnvInt("EMBEDDING_BATCH_SIZE", 64); err != nil {
		return nil, err
	}
	if cfg.ChatHistoryLimit, err = getEnvInt("CHAT_HISTORY_LIMIT", 20); err != nil {
		return nil, err
	}

	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be greater than 0, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be non-negative and less than CHUNK_SIZE, got overlap=%d size=%d", cfg.ChunkOverlap, cfg.ChunkSize)
	}
	if cfg.RetrievalK <= 0 {
		return nil, fmt.Errorf("RETRIEVAL_K must be greater than 0, got %d", cfg.RetrievalK)
	}
	if cfg.EmbeddingBatchSize <= 0 {
		return nil, fmt.Errorf("EMBEDDING_BATCH_SIZE must be greater than 0, got %d", cfg.EmbeddingBatchSize)
	}
	if cfg.ChatHistoryLimit < 0 {
		return nil, fmt.Errorf("CHAT_HISTORY_LIMIT must be non-negative, got %d", cfg.ChatHistoryLimit)
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	// Create the data directories up front so startup fails here, not mid-request
	for _, dir := range []string{filepath.Dir(cfg.DBPath), cfg.UploadDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return parsed, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", s)
	}
}
