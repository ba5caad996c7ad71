package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults for the chunking and retrieval pipeline. CHUNK_SEPARATOR accepts
// the two-character sequence "\n" in the environment and translates it to a
// real newline, since .env files cannot carry literal line breaks.
const (
	DefaultSeparator      = "\n\n"
	DefaultChunkSize      = 500
	DefaultChunkOverlap   = 100
	DefaultParagraphScale = 1000
	DefaultThreshold      = 0.41
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string
	MaxFileSize int64

	// Operator account and token signing
	JWTSecret         string
	JWTExpiresIn      string
	AdminEmail        string
	AdminPasswordHash string

	// Embeddings and answer generation
	GeminiAPIKey          string
	GoogleEmbeddingsModel string
	GeminiTier            string

	// Chunking
	Separator      string
	ChunkSize      int
	ChunkOverlap   int
	ParagraphScale int

	// Retrieval
	RelevantThreshold float64

	// Vector store
	Collection   string
	PersistDir   string
	TmpDir       string
	StoreBackend string // "file" or "mongo"
	MongoURI     string
	DBName       string

	// Redis (rate limiting + async ingestion queue)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	RateLimitReqs   int
	RateLimitWindow int

	// Telemetry
	OTLPEndpoint string

	// Scratch directory maintenance
	SweepIntervalMinutes int
	SweepMaxAgeMinutes   int
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		MaxFileSize: getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB

		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTExpiresIn:      getEnv("JWT_EXPIRES_IN", "24h"),
		AdminEmail:        getEnv("ADMIN_EMAIL", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		GeminiTier:            getEnv("GEMINI_TIER", "free"),

		Separator:      unescapeSeparator(getEnv("CHUNK_SEPARATOR", DefaultSeparator)),
		ChunkSize:      getEnvInt("CHUNK_SIZE", DefaultChunkSize),
		ChunkOverlap:   getEnvInt("CHUNK_OVERLAP", DefaultChunkOverlap),
		ParagraphScale: getEnvInt("PARAGRAPH_SCALE", DefaultParagraphScale),

		RelevantThreshold: getEnvFloat64("RELEVANT_THRESHOLD", DefaultThreshold),

		Collection:   getEnv("COLLECTION", "sintetic"),
		PersistDir:   getEnv("PERSIST_DIR", "indexes"),
		TmpDir:       getEnv("TMP_DIR", "tmp"),
		StoreBackend: getEnv("STORE_BACKEND", "file"),
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017/sintetic_qa"),
		DBName:       getEnv("DB_NAME", "sintetic_qa"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		SweepIntervalMinutes: getEnvInt("SWEEP_INTERVAL_MINUTES", 15),
		SweepMaxAgeMinutes:   getEnvInt("SWEEP_MAX_AGE_MINUTES", 60),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required - set it in .env file")
	}

	if cfg.StoreBackend != "file" && cfg.StoreBackend != "mongo" {
		return nil, fmt.Errorf("STORE_BACKEND must be \"file\" or \"mongo\", got %q", cfg.StoreBackend)
	}

	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("CHUNK_SIZE must be positive, got %d", cfg.ChunkSize)
	}

	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", cfg.ChunkOverlap)
	}

	return cfg, nil
}

func unescapeSeparator(s string) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\t`, "\t")
	return s
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
