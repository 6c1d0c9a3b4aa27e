package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Supabase
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Gemini (script generation)
	GeminiKey string

	// Firebase (identity provider for the dialogue synthesis session)
	FirebaseAPIKey string
	AuthFilePath   string // Credential store: one email:password line per account

	// ElevenLabs (fallback convert endpoint)
	ElevenLabsKey string

	// Cartesia (alternate fallback TTS provider)
	CartesiaKey string
	CartesiaURL string

	// OpenAI (Whisper transcripts — optional, transcripts skipped when empty)
	OpenAIKey string

	// Episode defaults
	DefaultTargetDurationSeconds int
	DefaultLanguage              string

	// Default voice IDs, seeded into the voices table at startup when set.
	// Speakers without a mapping are skipped during synthesis.
	VoiceHost        string
	VoiceGuestMale   string
	VoiceGuestFemale string

	// Worker
	MaxConcurrentJobs int
	TempDir           string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		WorkerEnabled:         getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379"),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "podcast-episodes"),
		GeminiKey:             getEnv("GEMINI_API_KEY", ""),
		FirebaseAPIKey:        getEnv("FIREBASE_API_KEY", ""),
		AuthFilePath:          getEnv("AUTH_FILE_PATH", "auth.txt"),
		ElevenLabsKey:         getEnv("ELEVENLABS_API_KEY", ""),
		CartesiaKey:           getEnv("CARTESIA_API_KEY", ""),
		CartesiaURL:           getEnv("CARTESIA_API_URL", "https://api.cartesia.ai"),
		OpenAIKey:             getEnv("OPENAI_API_KEY", ""),

		DefaultTargetDurationSeconds: getEnvInt("DEFAULT_TARGET_DURATION_SECONDS", 120),
		DefaultLanguage:              getEnv("DEFAULT_LANGUAGE", "en"),

		VoiceHost:        getEnv("VOICE_ID_HOST", ""),
		VoiceGuestMale:   getEnv("VOICE_ID_GUEST_MALE", ""),
		VoiceGuestFemale: getEnv("VOICE_ID_GUEST_FEMALE", ""),

		MaxConcurrentJobs: getEnvInt("MAX_CONCURRENT_JOBS", 5),
		TempDir:           getEnv("TEMP_DIR", "/tmp/podforge"),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.GeminiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	if cfg.FirebaseAPIKey == "" {
		return nil, fmt.Errorf("FIREBASE_API_KEY is required")
	}

	// At least one fallback TTS provider must be configured
	if cfg.ElevenLabsKey == "" && cfg.CartesiaKey == "" {
		return nil, fmt.Errorf("either ELEVENLABS_API_KEY or CARTESIA_API_KEY is required for fallback TTS")
	}

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
