package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spendtrace/spendtrace/internal/api/handlers"
	"github.com/spendtrace/spendtrace/internal/api/middleware"
	"github.com/spendtrace/spendtrace/internal/classifier"
	"github.com/spendtrace/spendtrace/internal/config"
	"github.com/spendtrace/spendtrace/internal/dedup"
	"github.com/spendtrace/spendtrace/internal/directory"
	"github.com/spendtrace/spendtrace/internal/jobs"
	"github.com/spendtrace/spendtrace/internal/jobs/inmemory"
	"github.com/spendtrace/spendtrace/internal/ledger"
	"github.com/spendtrace/spendtrace/internal/logger"
	"github.com/spendtrace/spendtrace/internal/onboarding"
	"github.com/spendtrace/spendtrace/internal/pipeline"
	"github.com/spendtrace/spendtrace/internal/transcribe"
	"github.com/spendtrace/spendtrace/internal/whatsapp"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	// Directory maps phone numbers to spreadsheet ids.
	dir, err := directory.Open(cfg.DirectoryDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open directory database")
	}

	// Google clients for the ledger and onboarding.
	sheetsStore, err := ledger.NewSheetsStore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sheets client")
	}
	provisioner, err := onboarding.NewDriveProvisioner(ctx, cfg.TemplateSheetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create drive client")
	}

	ledgerService := ledger.NewService(sheetsStore, cfg.SerializeSenders)
	waClient := whatsapp.NewClient(cfg.WhatsAppToken, cfg.WhatsAppPhoneNumberID)
	transcriber := transcribe.NewTranscriber(cfg.GroqAPIKey, log)
	intentClassifier := classifier.New(cfg.GeminiAPIKey)
	onboarder := onboarding.NewWorkflow(dir, provisioner, waClient, log)

	workflow := pipeline.NewWorkflow(
		dir,
		waClient,
		transcriber,
		intentClassifier,
		ledgerService,
		waClient,
		onboarder,
		log,
	)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.QueueBuffer, cfg.Workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		eventJob, ok := job.(*jobs.ProcessEventJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", eventJob.JobID).
			Str("message_id", eventJob.Event.MessageID).
			Str("kind", string(eventJob.Event.Kind)).
			Msg("Processing event job")

		workflow.ProcessEvent(ctx, eventJob.Event)
		return nil
	}

	// Start job consumer in background
	go func() {
		log.Info().Int("workers", cfg.Workers).Msg("Starting event workers")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Event workers stopped with error")
		}
	}()

	gate := dedup.New(cfg.DedupTTL)
	webhookHandler := handlers.NewWebhookHandler(cfg.VerifyToken, gate, jobQueue)
	jobsHandler := handlers.NewJobsHandler(jobStore)

	// Create router
	mux := http.NewServeMux()

	mux.HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			webhookHandler.Verify(w, r)
		case http.MethodPost:
			webhookHandler.Receive(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", webhookHandler.Health)

	// Apply middleware. RequestID runs before Logger so the
	// request-scoped logger carries the id.
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(mux),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting webhook server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs. The worker context
	// stays live until Stop returns so accepted events run to completion.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
