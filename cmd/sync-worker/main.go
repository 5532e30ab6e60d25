package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openhealths/ohealth-sub007/internal/config"
	"github.com/openhealths/ohealth-sub007/internal/crypto"
	"github.com/openhealths/ohealth-sub007/internal/database"
	"github.com/openhealths/ohealth-sub007/internal/ehealth"
	"github.com/openhealths/ohealth-sub007/internal/repository"
	"github.com/openhealths/ohealth-sub007/internal/server"
	syncpipe "github.com/openhealths/ohealth-sub007/internal/sync"
	"github.com/openhealths/ohealth-sub007/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("application error")
	}
}

func run() error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	log.Info().Msg("database connected")

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		return err
	}
	log.Info().Msg("migrations completed")

	// Initialize repositories
	taskRepo := repository.NewSyncTaskRepository(db)
	batchRepo := repository.NewSyncBatchRepository(db)
	statusRepo := repository.NewSyncStatusRepository(db)
	userRepo := repository.NewUserRepository(db)
	registryRepo := repository.NewRegistryRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Initialize eHealth clients and token sealing
	sealer, err := crypto.NewSealer(cfg.TokenEncryptionKey)
	if err != nil {
		return err
	}
	apiClient := ehealth.NewClient(cfg.EHealthAPIURL)
	authClient := ehealth.NewAuthClient(cfg.EHealthAPIURL, cfg.EHealthClientID, cfg.EHealthClientSecret)

	// Initialize the sync core
	notifier := syncpipe.NewInboxNotifier(notificationRepo)
	tracker := syncpipe.NewStatusTracker(statusRepo)
	limiter := syncpipe.NewLimiter(cfg.RequestsPerMinute)
	coordinator := syncpipe.NewCoordinator(batchRepo, taskRepo)
	syncpipe.RegisterDefaultHooks(coordinator, notifier)

	runner := syncpipe.NewRunner(apiClient, registryRepo, tracker, coordinator, limiter, sealer)
	policy := syncpipe.NewRecoveryPolicy(userRepo, authClient, sealer, taskRepo, coordinator, tracker, notifier)
	pipeline := syncpipe.NewPipeline(coordinator, tracker, authClient, sealer, notifier)
	resumer := syncpipe.NewResumeController(coordinator, tracker, batchRepo, taskRepo, authClient, sealer, notifier)

	// Initialize worker
	hostname, _ := os.Hostname()
	instance := fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])
	w := worker.New(
		instance,
		time.Duration(cfg.PollInterval)*time.Second,
		int64(cfg.WorkerSlots),
		taskRepo,
		runner,
		policy,
		coordinator,
	)

	// Initialize HTTP server
	mux := http.NewServeMux()
	srv := server.New(userRepo, pipeline, resumer, tracker)
	srv.RegisterHandlers(mux)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = log.Logger.WithContext(ctx)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 2)
	go func() {
		errChan <- w.Start(ctx)
	}()
	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http server shutdown error")
		}

		select {
		case <-shutdownCtx.Done():
			log.Warn().Msg("shutdown timeout exceeded")
		case err := <-errChan:
			if err != nil && err != context.Canceled {
				log.Error().Err(err).Msg("worker error")
			}
		}

		log.Info().Msg("application stopped")
		return nil

	case err := <-errChan:
		return err
	}
}
