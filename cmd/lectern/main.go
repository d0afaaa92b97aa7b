package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lectern-app/lectern/internal/config"
	"github.com/lectern-app/lectern/internal/gdrive"
	"github.com/lectern-app/lectern/internal/llm"
	"github.com/lectern-app/lectern/internal/notes"
	"github.com/lectern-app/lectern/internal/pipeline"
	"github.com/lectern-app/lectern/internal/retrieval"
	"github.com/lectern-app/lectern/internal/scoring"
	"github.com/lectern-app/lectern/internal/server"
	"github.com/lectern-app/lectern/internal/session"
	"github.com/lectern-app/lectern/internal/storage"
	"github.com/lectern-app/lectern/internal/transcribe"
)

func main() {
	log.Println("lectern: starting")

	configPath := os.Getenv(config.EnvPrefix + "CONFIG")
	if configPath == "" {
		configPath = "lectern.yaml"
	}

	cfg, warnings, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	for _, warning := range warnings {
		log.Printf("warning: %s", warning)
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	spool := storage.NewSpool(cfg.SpoolDir)
	index := retrieval.NewIndex(store, cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)

	notesClient := buildLLM(cfg, cfg.Synthesis.NotesModel, "structured notes")
	finalClient := buildLLM(cfg, cfg.Synthesis.FinalModel, "final notes")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := pipeline.Deps{
		Transcriber: buildTranscriber(cfg),
		Scorer:      scoring.New(),
		Retriever:   index,
		Enricher:    notes.NewEnricher(buildLLM(cfg, cfg.Synthesis.EnrichModel, "enrichment")),
		Detector:    notes.NewShiftDetector(notesClient),
		Synthesizer: notes.NewSynthesizer(notesClient, finalClient),
		Store:       store,
		Spool:       spool,
	}

	if cfg.GDriveFolderID != "" {
		exporter, expErr := gdrive.NewExporter(ctx, cfg.GoogleCredentialsFile, cfg.GDriveFolderID)
		if expErr != nil {
			log.Printf("warning: gdrive export disabled: %v", expErr)
		} else {
			deps.Exporter = exporter
		}
	}

	policy := pipeline.Policy{
		Window:    cfg.WindowSize(),
		Interval:  cfg.ParsedInterval(),
		LiveTopK:  cfg.Retrieval.LiveTopK,
		FinalTopK: cfg.Retrieval.FinalTopK,
	}

	registry := session.NewRegistry(ctx, deps, policy, spool, cfg.QueueCapacity, cfg.ParsedGracePeriod())

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Handler(store, registry, index),
	}
	go func() {
		log.Printf("listening on http://%s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("lectern: shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: http shutdown failed: %v", err)
	}
}

func buildTranscriber(cfg config.Config) pipeline.Transcriber {
	provider := cfg.Transcriber.Provider
	var key string
	switch provider {
	case "openai":
		key = cfg.OpenAIAPIKey
	case "deepgram":
		key = cfg.DeepgramAPIKey
	case "stub":
		key = "unused"
	default:
		provider = "openai"
		key = cfg.OpenAIAPIKey
	}

	if key == "" {
		log.Printf("warning: no %s API key, transcription disabled", provider)
		return transcribe.Stub{}
	}

	t, err := transcribe.New(provider, key, cfg.Transcriber.Model, cfg.Transcriber.Language)
	if err != nil {
		log.Printf("warning: transcriber init failed, transcription disabled: %v", err)
		return transcribe.Stub{}
	}
	return t
}

// buildLLM returns nil when the model cannot be built; downstream components
// treat a nil client as the feature being disabled.
func buildLLM(cfg config.Config, model, purpose string) llm.Client {
	provider, modelName, err := llm.ParseModel(model)
	if err != nil {
		log.Printf("warning: %s disabled: %v", purpose, err)
		return nil
	}

	var key string
	switch provider {
	case "openai":
		key = cfg.OpenAIAPIKey
	case "anthropic":
		key = cfg.AnthropicAPIKey
	case "gemini":
		key = cfg.GeminiAPIKey
	}
	if key == "" {
		log.Printf("warning: %s disabled: no API key for provider %q", purpose, provider)
		return nil
	}

	client, err := llm.NewClient(provider, key, modelName)
	if err != nil {
		log.Printf("warning: %s disabled: %v", purpose, err)
		return nil
	}
	return client
}
