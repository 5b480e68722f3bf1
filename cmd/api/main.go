package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morelandlabs/dentalagent/internal/agent"
	"github.com/morelandlabs/dentalagent/internal/api/router"
	"github.com/morelandlabs/dentalagent/internal/app/bootstrap"
	"github.com/morelandlabs/dentalagent/internal/clinicstore"
	appconfig "github.com/morelandlabs/dentalagent/internal/config"
	"github.com/morelandlabs/dentalagent/internal/http/handlers"
	"github.com/morelandlabs/dentalagent/internal/observability/metrics"
	"github.com/morelandlabs/dentalagent/internal/webchat"
	"github.com/morelandlabs/dentalagent/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dental agent API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	agentMetrics := metrics.NewAgentMetrics(registry)

	store := clinicstore.New(pool, logger.Named("clinicstore"))
	sessions := bootstrap.BuildSessionStore(ctx, cfg, logger)

	engine := agent.NewEngine(agent.EngineConfig{
		Store:      store,
		Sessions:   sessions,
		Classifier: agent.NewClassifier(agent.TrainingCorpus(), cfg.ClassifierFloor),
		Matcher:    agent.NewMatcher(cfg.AmbiguityMargin, logger.Named("matcher")),
		Thresholds: map[agent.EntityType]int{
			agent.EntityPatient:   cfg.PatientMatchThreshold,
			agent.EntityDoctor:    cfg.DoctorMatchThreshold,
			agent.EntityTreatment: cfg.TreatmentMatchThreshold,
			agent.EntityInventory: cfg.InventoryMatchThreshold,
		},
		Logger:  logger.Named("agent"),
		Metrics: agentMetrics,
	})

	chatHandler := handlers.NewChatHandler(engine, logger.Named("chat"))
	dashboardHandler := handlers.NewAdminDashboardHandler(store, logger.Named("dashboard"))
	webchatHandler := webchat.NewHandler(engine, logger.Named("webchat"))

	r := router.New(&router.Config{
		Logger:             logger,
		Chat:               chatHandler,
		AdminDashboard:     dashboardHandler,
		Webchat:            webchatHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRateLimit:      cfg.ChatRateLimit,
		ChatRateBurst:      cfg.ChatRateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
