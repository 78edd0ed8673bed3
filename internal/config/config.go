package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	SMTP       SMTPConfig
	Keys       APIKeys
	Ai         AIConfig
	Resolution ResolutionConfig
	Escalation EscalationConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
	OtelEnabled        bool
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type APIKeys struct {
	GoogleGemini string
	OpenAI       string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string // embedding model served by ollama
	LLMProvider       string // "ollama" or "openai"
	LLMModel          string
	LLMBaseURL        string
	PromptVersion     string
	RequestsPerSecond float64
	Burst             int
}

// ResolutionConfig holds every tunable of the question resolution pipeline.
// Defaults are design values, not empirically validated.
type ResolutionConfig struct {
	CorpusCollection string
	CacheCollection  string

	RetrievalTopK            int
	RetrievalSimilarityFloor float64
	RelevanceFloor           float64

	SupportFloor       float64
	LowConfidenceFloor float64

	CacheTopK          int
	HitSimilarityFloor float64
	HitScoreFloor      float64
	WriteThreshold     float64
	HalfLife           time.Duration
	TTL                time.Duration

	DedupTTL          time.Duration
	EmbedTimeout      time.Duration
	IndexTimeout      time.Duration
	CompletionTimeout time.Duration
	RetryDelay        time.Duration
	MaxRetries        int

	DraftTemperature float64
	DraftMaxTokens   int
	VerifyMaxTokens  int

	JanitorInterval time.Duration
	SnapshotTTL     time.Duration
	AdmissionTopic  string
}

type EscalationConfig struct {
	OwnerEmail string
	GuardTTL   time.Duration
	Timeout    time.Duration // bound on the synchronous notify
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Resume Assistant"),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "qwen2.5:7b"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			PromptVersion:     getEnv("PROMPT_VERSION", "resolve-v1"),
			RequestsPerSecond: getEnvAsFloat("LLM_REQUESTS_PER_SECOND", 2),
			Burst:             getEnvAsInt("LLM_BURST", 4),
		},
		Resolution: ResolutionConfig{
			CorpusCollection: getEnv("CORPUS_COLLECTION", "resume_data"),
			CacheCollection:  getEnv("CACHE_COLLECTION", "cached_answers"),

			RetrievalTopK:            getEnvAsInt("RETRIEVAL_TOP_K", 5),
			RetrievalSimilarityFloor: getEnvAsFloat("RETRIEVAL_SIMILARITY_FLOOR", 0),
			RelevanceFloor:           getEnvAsFloat("DRAFT_RELEVANCE_FLOOR", 0.15),

			SupportFloor:       getEnvAsFloat("EVAL_SUPPORT_FLOOR", 0.5),
			LowConfidenceFloor: getEnvAsFloat("EVAL_LOW_CONFIDENCE_FLOOR", 0.3),

			CacheTopK:          getEnvAsInt("CACHE_TOP_K", 3),
			HitSimilarityFloor: getEnvAsFloat("CACHE_HIT_SIMILARITY_FLOOR", 0.85),
			HitScoreFloor:      getEnvAsFloat("CACHE_HIT_SCORE_FLOOR", 0.75),
			WriteThreshold:     getEnvAsFloat("CACHE_WRITE_THRESHOLD", 0.90),
			HalfLife:           getEnvAsDuration("CACHE_HALF_LIFE", 168*time.Hour),
			TTL:                getEnvAsDuration("CACHE_TTL", 168*time.Hour),

			DedupTTL:          getEnvAsDuration("DEDUP_TTL", 5*time.Minute),
			EmbedTimeout:      getEnvAsDuration("EMBED_TIMEOUT", 3*time.Second),
			IndexTimeout:      getEnvAsDuration("INDEX_TIMEOUT", 3*time.Second),
			CompletionTimeout: getEnvAsDuration("COMPLETION_TIMEOUT", 10*time.Second),
			RetryDelay:        getEnvAsDuration("RETRY_DELAY", 200*time.Millisecond),
			MaxRetries:        getEnvAsInt("MAX_RETRIES", 2),

			DraftTemperature: getEnvAsFloat("DRAFT_TEMPERATURE", 0.3),
			DraftMaxTokens:   getEnvAsInt("DRAFT_MAX_TOKENS", 500),
			VerifyMaxTokens:  getEnvAsInt("VERIFY_MAX_TOKENS", 400),

			JanitorInterval: getEnvAsDuration("CACHE_JANITOR_INTERVAL", time.Hour),
			SnapshotTTL:     getEnvAsDuration("CORPUS_SNAPSHOT_TTL", 30*time.Second),
			AdmissionTopic:  getEnv("ADMISSION_TOPIC_NAME", "ADMIT_CACHED_ANSWER"),
		},
		Escalation: EscalationConfig{
			OwnerEmail: getEnv("ESCALATION_OWNER_EMAIL", ""),
			GuardTTL:   getEnvAsDuration("ESCALATION_GUARD_TTL", 10*time.Minute),
			Timeout:    getEnvAsDuration("ESCALATION_TIMEOUT", 5*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90s", "168h").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
