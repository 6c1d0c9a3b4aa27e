package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/bobarin/podforge/internal/api"
	"github.com/bobarin/podforge/internal/auth"
	"github.com/bobarin/podforge/internal/config"
	"github.com/bobarin/podforge/internal/db"
	"github.com/bobarin/podforge/internal/models"
	"github.com/bobarin/podforge/internal/queue"
	"github.com/bobarin/podforge/internal/services"
	"github.com/bobarin/podforge/internal/storage"
	"github.com/bobarin/podforge/internal/worker"
)

func main() {
	log.Println("Starting PodForge API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Initialize storage
	stor := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	log.Println("Initialized Supabase storage")

	// Seed speaker voice mappings from config
	seedVoices(database, cfg)

	// Create API handler
	handler := api.NewHandler(database, q, stor, cfg.DefaultTargetDurationSeconds, cfg.DefaultLanguage)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCtx context.Context
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		// Credential pool + Firebase session for the dialogue synthesis provider
		pool, err := auth.LoadCredentialPool(cfg.AuthFilePath)
		if err != nil {
			log.Fatalf("Failed to load credential pool from %s: %v", cfg.AuthFilePath, err)
		}
		log.Printf("Loaded %d synthesis accounts from %s", pool.Size(), cfg.AuthFilePath)

		session := auth.NewSession(pool, auth.NewFirebaseClient(cfg.FirebaseAPIKey))
		dialogueSvc := services.NewDialogueClient(session)

		// Fallback TTS provider — ElevenLabs API key preferred, Cartesia otherwise
		var fallbackSvc services.TTSService
		if cfg.ElevenLabsKey != "" {
			fallbackSvc = services.NewElevenLabsService(cfg.ElevenLabsKey)
			log.Println("Fallback TTS provider: ElevenLabs")
		} else {
			fallbackSvc = services.NewCartesiaService(cfg.CartesiaKey, cfg.CartesiaURL)
			log.Println("Fallback TTS provider: Cartesia")
		}

		geminiSvc := services.NewGeminiService(cfg.GeminiKey)
		ffmpegSvc := services.NewFFmpegService(cfg.TempDir)

		// Whisper transcription is optional — episodes ship without transcripts
		// when no OpenAI key is configured
		var openaiSvc *services.OpenAIService
		if cfg.OpenAIKey != "" {
			openaiSvc = services.NewOpenAIService(cfg.OpenAIKey)
			log.Println("Whisper transcription enabled")
		} else {
			log.Println("No OPENAI_API_KEY set — transcripts disabled")
		}

		// Create worker
		w := worker.New(database, q, stor, geminiSvc, dialogueSvc, fallbackSvc, openaiSvc, ffmpegSvc)

		// Start worker in background
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// seedVoices upserts the configured default voice mappings. Missing env vars
// leave existing rows untouched.
func seedVoices(database *db.DB, cfg *config.Config) {
	defaults := map[string]string{
		"host":         cfg.VoiceHost,
		"guest_male":   cfg.VoiceGuestMale,
		"guest_female": cfg.VoiceGuestFemale,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for speaker, voiceID := range defaults {
		if voiceID == "" {
			continue
		}
		voice := &models.Voice{ID: uuid.New(), Speaker: speaker, VoiceID: voiceID}
		if err := database.UpsertVoice(ctx, voice); err != nil {
			log.Printf("WARNING: failed to seed voice for %q: %v", speaker, err)
			continue
		}
		log.Printf("Seeded voice mapping: %s -> %s", speaker, voiceID)
	}
}
