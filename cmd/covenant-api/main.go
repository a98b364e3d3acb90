// Package main is the entry point for the covenant-api server.
// Single-user identity accountability backend: identity health,
// day-rollover penalties, the irreversible wipe, and the one-time paid
// revival.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/covenant-app/covenant-api/internal/config"
	"github.com/covenant-app/covenant-api/internal/database"
	"github.com/covenant-app/covenant-api/internal/http/handlers"
	"github.com/covenant-app/covenant-api/internal/logging"
	"github.com/covenant-app/covenant-api/internal/repository"
	"github.com/covenant-app/covenant-api/internal/service"
	"github.com/covenant-app/covenant-api/internal/version"
	"github.com/covenant-app/covenant-api/internal/worker"
)

func main() {
	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting covenant-api",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.MigrateWithLogger(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	schemaVersion, err := database.GetLatestSchemaVersion(db)
	if err != nil {
		logger.Warn("failed to get schema version", "error", err)
	} else if schemaVersion != "" {
		migrationCount, _ := database.GetMigrationCount(db)
		logger.Info("database schema ready", "schema_version", schemaVersion, "migrations_applied", migrationCount)
	}

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Seed today's rollover marker and catch up on any days missed while
	// the server was down.
	if err := services.Daily.Init(ctx); err != nil {
		logger.Error("failed to initialize daily state", "error", err)
		os.Exit(1)
	}

	rolloverWorker := worker.New(services.Daily, worker.Config{
		PollInterval: cfg.RolloverPollInterval,
	}, logger)
	rolloverWorker.Start(ctx)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Use(middleware.RequestSize(1 * 1024 * 1024))
	router.Use(httprate.LimitByIP(100, time.Minute))

	humaConfig := huma.DefaultConfig("Covenant API", v.Version)
	humaConfig.Info.Description = "Identity accountability backend: health, quests, the wipe, and revival."
	humaConfig.Servers = []*huma.Server{
		{URL: cfg.BaseURL, Description: "API Server"},
	}
	api := humachi.New(router, humaConfig)

	huma.Get(api, "/api/v1/health", handlers.HealthCheck)

	identityHandler := handlers.NewIdentityHandler(services.Identity)
	huma.Get(api, "/api/v1/identity/health", identityHandler.GetHealth)
	huma.Post(api, "/api/v1/identity/damage", identityHandler.ApplyDamage)
	huma.Post(api, "/api/v1/identity/restore", identityHandler.RestoreHealth)
	huma.Get(api, "/api/v1/identity/anti-vision", identityHandler.GetAntiVision)

	stateHandler := handlers.NewStateHandler(services.Despair, services.Identity, services.Daily, rolloverWorker, repos.WipeLog)
	huma.Get(api, "/api/v1/state", stateHandler.GetState)
	huma.Post(api, "/api/v1/state/foreground", stateHandler.Foreground)
	huma.Post(api, "/api/v1/despair/accept", stateHandler.AcceptDeath)
	huma.Post(api, "/api/v1/despair/exit", stateHandler.ExitDespair)
	huma.Get(api, "/api/v1/wipes", stateHandler.WipeHistory)

	onboardingHandler := handlers.NewOnboardingHandler(services.Onboarding)
	huma.Get(api, "/api/v1/onboarding", onboardingHandler.GetOnboarding)
	huma.Post(api, "/api/v1/onboarding/step", onboardingHandler.CompleteStep)
	huma.Post(api, "/api/v1/onboarding/reset", onboardingHandler.ResetOnboarding)

	questHandler := handlers.NewQuestHandler(services.Quest)
	huma.Get(api, "/api/v1/quests", questHandler.ListQuests)
	huma.Post(api, "/api/v1/quests/{id}/complete", questHandler.CompleteQuest)
	huma.Post(api, "/api/v1/quests/{id}/uncheck", questHandler.UncheckQuest)

	insuranceHandler := handlers.NewInsuranceHandler(services.Insurance)
	huma.Get(api, "/api/v1/insurance/eligibility", insuranceHandler.CheckEligibility)
	huma.Get(api, "/api/v1/insurance/product", insuranceHandler.GetProduct)
	huma.Post(api, "/api/v1/insurance/purchase", insuranceHandler.Purchase)
	huma.Get(api, "/api/v1/insurance/purchases", insuranceHandler.PurchaseHistory)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	rolloverWorker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("stopped")
}
