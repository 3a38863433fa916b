package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/agentservice"
	"github.com/dennisdiepolder/monti/agentdesk/internal/api"
	"github.com/dennisdiepolder/monti/agentdesk/internal/auth"
	"github.com/dennisdiepolder/monti/agentdesk/internal/cache"
	"github.com/dennisdiepolder/monti/agentdesk/internal/config"
	"github.com/dennisdiepolder/monti/agentdesk/internal/ingestion"
	"github.com/dennisdiepolder/monti/agentdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/agentdesk/internal/sdk"
	"github.com/dennisdiepolder/monti/agentdesk/internal/storage"
	"github.com/dennisdiepolder/monti/agentdesk/internal/ticker"
	"github.com/dennisdiepolder/monti/agentdesk/internal/tracker"
	"github.com/dennisdiepolder/monti/agentdesk/internal/websocket"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace/bridge"
	"github.com/dennisdiepolder/monti/agentdesk/pkg/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Str("metrics_store", string(cfg.Storage.Backend)).
		Str("workspace_url", cfg.WorkspaceURL).
		Msg("starting agent desk")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prom := metrics.Get()

	// Metrics store and tracker
	store, err := storage.New(ctx, cfg.Storage, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create metrics store")
	}
	metricsTracker := tracker.New(ctx, store, log.Logger)
	defer metricsTracker.Close()
	go ticker.NewTicker(metricsTracker, time.Second, log.Logger).Start(ctx)

	// Workspace connection
	provider := bridge.New(bridge.Config{
		URL:            cfg.WorkspaceURL,
		ConnectTimeout: cfg.WorkspaceConnectTimeout,
		RequestTimeout: cfg.WorkspaceRequestTimeout,
	}, log.Logger)
	manager := sdk.NewManager(provider, log.Logger, sdk.WithStatusRevertDelay(cfg.StatusRevertDelay))

	processor := ingestion.NewProcessor(ctx, metricsTracker, prom, log.Logger)
	manager.SetCallbacks(processor.Callbacks())
	manager.SetCallbacks(sdk.Callbacks{
		OnStatusChange: func(status string) {
			log.Info().Str("status", status).Msg("workspace status")
		},
	})
	go manager.KeepConnected(ctx)

	// Panel stream
	hub := websocket.NewHub(prom, log.Logger)
	go hub.Run(ctx)
	stopMetrics := hub.StreamMetrics(metricsTracker)
	defer stopMetrics()
	stopStatus := hub.StreamStatus(manager)
	defer stopStatus()
	wsHandler := websocket.NewHandler(hub, cfg, log.Logger)

	// Directory and messaging gateways
	gateway := agentservice.New(agentservice.Config{
		BaseURL:    cfg.AgentAPIURL,
		EmailURL:   cfg.EmailAPIURL,
		SMSURL:     cfg.SMSAPIURL,
		InstanceID: cfg.ConnectInstanceID,
		RateLimit:  cfg.APIRateLimit,
	}, prom, log.Logger)
	directory := cache.NewAgentDirectory(gateway, cfg.AgentCacheTTL, log.Logger)

	authenticator, err := auth.New(auth.Config{
		Enabled:  cfg.AuthEnabled,
		JWKSURL:  cfg.JWKSURL,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
	}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create authenticator")
	}

	apiHandler := api.NewHandler(manager, metricsTracker, processor, directory, gateway, log.Logger)

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(middleware.Metrics(prom))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Register public routes (no auth required)
	publicRoutes(r, prom)

	// Add auth middleware for protected routes
	r.Group(func(r chi.Router) {
		r.Use(authenticator.Middleware)
		r.Get("/ws", wsHandler.ServeHTTP)
		apiHandler.Routes(r)
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Stop the workspace connection first so abandoned calls are still saved,
	// then the ticker and hub
	manager.Destroy()
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// publicRoutes registers the routes served without authentication
func publicRoutes(r chi.Router, prom *metrics.Metrics) {
	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", prom.Handler())
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"agentdesk"}`)
}
