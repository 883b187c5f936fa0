package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-co-op/gocron/v2"
	_ "github.com/lib/pq"

	"github.com/spinhall/tournament-engine/brackets"
	"github.com/spinhall/tournament-engine/config"
	"github.com/spinhall/tournament-engine/db"
	"github.com/spinhall/tournament-engine/economy"
	"github.com/spinhall/tournament-engine/handlers"
	"github.com/spinhall/tournament-engine/repositories"
	api "github.com/spinhall/tournament-engine/routes"
	"github.com/spinhall/tournament-engine/services"
	"github.com/spinhall/tournament-engine/storage"
)

const schedulerInterval = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	var uploader storage.FileUploader
	if cfg.S3Bucket != "" {
		uploader, err = storage.NewS3Uploader(storage.S3UploaderConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			BucketName:      cfg.S3Bucket,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize object storage uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("object storage uploader initialized")
	} else {
		logger.Warn("object storage is not configured, banner uploads disabled")
	}

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("websocket hub started")

	transactor := repositories.NewSQLTransactor(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	roundRepo := repositories.NewPostgresRoundRepository(dbConn)
	prizeRepo := repositories.NewPostgresPrizeRepository(dbConn)
	logger.Info("repositories initialized")

	ledger := economy.NewHTTPLedger(cfg.LedgerBaseURL, cfg.ServiceToken)
	inventory := economy.NewHTTPInventory(cfg.InventoryBaseURL, cfg.ServiceToken)
	badges := economy.NewHTTPBadgeService(cfg.BadgeBaseURL, cfg.ServiceToken)
	notifier := economy.NewHubNotifier(wsHub)

	prizeService := services.NewPrizeService(
		tournamentRepo, participantRepo, prizeRepo,
		ledger, inventory, badges, notifier, logger,
	)
	advancementService := services.NewAdvancementService(
		transactor, tournamentRepo, participantRepo, matchRepo, roundRepo,
		prizeService, notifier, logger,
	)
	tournamentService := services.NewTournamentService(
		transactor, tournamentRepo, participantRepo, matchRepo, roundRepo, prizeRepo,
		ledger, notifier, uploader, cfg.PayoutRatio, logger,
	)
	registrationService := services.NewRegistrationService(
		transactor, tournamentRepo, participantRepo, tournamentService,
		ledger, notifier, logger,
	)
	matchService := services.NewMatchService(
		transactor, tournamentRepo, participantRepo, matchRepo,
		advancementService, notifier, logger,
	)
	logger.Info("services initialized")

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		logger.Error("failed to create scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(schedulerInterval),
		gocron.NewTask(func() {
			if err := tournamentService.StartDueTournaments(context.Background()); err != nil {
				logger.Error("scheduler: starting due tournaments failed", slog.Any("error", err))
			}
		}),
	)
	if err != nil {
		logger.Error("failed to schedule tournament start job", slog.Any("error", err))
		os.Exit(1)
	}
	scheduler.Start()
	defer func() { _ = scheduler.Shutdown() }()
	logger.Info("tournament start scheduler running", slog.Duration("interval", schedulerInterval))

	tournamentHandler := handlers.NewTournamentHandler(tournamentService, registrationService)
	matchHandler := handlers.NewMatchHandler(matchService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, cfg.JWTSecretKey, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, cfg.JWTSecretKey, tournamentHandler, matchHandler, webSocketHandler)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
