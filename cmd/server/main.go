package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mescon/Hassarr/internal/api"
	"github.com/mescon/Hassarr/internal/config"
	"github.com/mescon/Hassarr/internal/db"
	"github.com/mescon/Hassarr/internal/eventbus"
	"github.com/mescon/Hassarr/internal/integration"
	"github.com/mescon/Hassarr/internal/logger"
	"github.com/mescon/Hassarr/internal/metrics"
	"github.com/mescon/Hassarr/internal/notifier"
	"github.com/mescon/Hassarr/internal/services"
)

func main() {
	// Define command line flags (these override environment variables)
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.BoolVar(showVersion, "v", false, "Print version and exit (shorthand)")

	// Configuration flags - all can also be set via environment variables (HASSARR_*)
	flagPort := flag.String("port", "", "HTTP server port (env: HASSARR_PORT, default: 5056)")
	flagBasePath := flag.String("base-path", "", "URL base path for reverse proxy (env: HASSARR_BASE_PATH, default: /)")
	flagLogLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (env: HASSARR_LOG_LEVEL, default: info)")
	flagDataDir := flag.String("data-dir", "", "Data directory path (env: HASSARR_DATA_DIR)")
	flagDatabasePath := flag.String("database-path", "", "Database file path (env: HASSARR_DATABASE_PATH)")
	flagOverseerrURL := flag.String("overseerr-url", "", "Overseerr base URL (env: HASSARR_OVERSEERR_URL)")
	flagRequestTimeout := flag.Duration("request-timeout", 0, "Timeout for upstream requests (env: HASSARR_REQUEST_TIMEOUT, default: 30s)")
	flagRefreshSchedule := flag.String("refresh-schedule", "", "Cron expression for sensor refresh (env: HASSARR_REFRESH_SCHEDULE, default: @every 30s)")
	flagRetentionDays := flag.Int("retention-days", -1, "Days to keep events, 0 to disable pruning (env: HASSARR_RETENTION_DAYS, default: 30)")

	flag.Parse()

	if *showVersion {
		fmt.Printf("Hassarr %s\n", config.Version)
		os.Exit(0)
	}

	config.Load()

	flagOverrides := config.FlagOverrides{
		Port:            flagPort,
		BasePath:        flagBasePath,
		LogLevel:        flagLogLevel,
		DataDir:         flagDataDir,
		DatabasePath:    flagDatabasePath,
		OverseerrURL:    flagOverseerrURL,
		RequestTimeout:  flagRequestTimeout,
		RefreshSchedule: flagRefreshSchedule,
	}
	// -1 means not set (use default), 0 means disable
	if *flagRetentionDays >= 0 {
		flagOverrides.RetentionDays = flagRetentionDays
	}
	config.ApplyFlags(flagOverrides)

	cfg := config.Get()

	logger.Init(cfg.LogDir)
	logger.SetLevel(cfg.LogLevel)

	logger.Infof("========================================")
	logger.Infof("Starting Hassarr %s...", config.Version)
	logger.Infof("Home Assistant media requests through Overseerr")
	logger.Infof("========================================")

	logger.Infof("Configuration:")
	logger.Infof("  Port: %s", cfg.Port)
	logger.Infof("  Log Level: %s", cfg.LogLevel)
	logger.Infof("  Data Directory: %s", cfg.DataDir)
	logger.Infof("  Database: %s", cfg.DatabasePath)
	logger.Infof("  Log Directory: %s", cfg.LogDir)
	logger.Infof("  Request Timeout: %s", cfg.RequestTimeout)
	logger.Infof("  Upstream Rate Limit: %.1f req/s (burst: %d)", cfg.RateLimitRPS, cfg.RateLimitBurst)
	logger.Infof("  Sensor Refresh: %s", cfg.RefreshSchedule)
	if cfg.RetentionDays > 0 {
		logger.Infof("  Event Retention: %d days", cfg.RetentionDays)
	} else {
		logger.Infof("  Event Retention: disabled (no automatic pruning)")
	}

	logger.Infof("Initializing database: %s", cfg.DatabasePath)
	repo, err := db.NewRepository(cfg.DatabasePath)
	if err != nil {
		logger.Errorf("Failed to initialize database: %v", err)
		os.Exit(1)
	}
	logger.Infof("✓ Database initialized successfully")
	stopCheckpoint := repo.StartPeriodicCheckpoint(5 * time.Minute)

	// Stored settings fill whatever the environment left empty
	config.LoadBasePathFromDB(repo.DB)
	config.LoadSettingsFromDB(repo.DB)
	cfg = config.Get()
	logger.Infof("  Base Path: %s (source: %s)", cfg.BasePath, cfg.BasePathSource)
	if cfg.OverseerrURL == "" || cfg.OverseerrAPIKey == "" {
		logger.Warnf("Overseerr is not configured; set HASSARR_OVERSEERR_URL and HASSARR_OVERSEERR_API_KEY or use PUT /api/settings")
	}

	logger.Infof("Initializing Event Bus...")
	eb := eventbus.NewEventBus(repo.DB)
	logger.Infof("✓ Event Bus initialized")

	logger.Infof("Initializing Metrics Service...")
	metricsService := metrics.NewMetricsService(eb)
	metricsService.Start()
	logger.Infof("✓ Metrics Service (Prometheus endpoint at /metrics)")

	logger.Infof("Initializing upstream clients...")
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	breakerConfig := integration.DefaultCircuitBreakerConfig()
	clientOptions := func(name string) integration.ClientOptions {
		return integration.ClientOptions{
			HTTPClient: httpClient,
			Limiter:    integration.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, nil),
			Breaker:    integration.NewCircuitBreaker(name, breakerConfig),
			Observer:   metricsService,
		}
	}

	overseerr := integration.NewOverseerrClient(cfg.OverseerrURL, cfg.OverseerrAPIKey, clientOptions("overseerr"))
	logger.Infof("✓ Overseerr client (%s)", orNone(cfg.OverseerrURL))

	deps := services.Deps{
		Overseerr:              overseerr,
		Mappings:               repo,
		Bus:                    eb,
		Metrics:                metricsService,
		AddCooldown:            cfg.AddCooldown,
		RadarrQualityProfileID: int64(cfg.RadarrQualityProfileID),
		SonarrQualityProfileID: int64(cfg.SonarrQualityProfileID),
	}
	// Only set when configured so the interfaces stay nil otherwise
	if cfg.RadarrURL != "" && cfg.RadarrAPIKey != "" {
		deps.Radarr = integration.NewArrClient("radarr", cfg.RadarrURL, cfg.RadarrAPIKey, clientOptions("radarr"))
		logger.Infof("✓ Radarr client (%s)", cfg.RadarrURL)
	}
	if cfg.SonarrURL != "" && cfg.SonarrAPIKey != "" {
		deps.Sonarr = integration.NewArrClient("sonarr", cfg.SonarrURL, cfg.SonarrAPIKey, clientOptions("sonarr"))
		logger.Infof("✓ Sonarr client (%s)", cfg.SonarrURL)
	}

	logger.Infof("Initializing Notification Service...")
	notifierService := notifier.NewNotifier(cfg.NotifyURLs, eb)
	notifierService.Start()
	logger.Infof("✓ Notification Service (%d targets)", len(notifierService.Targets()))

	logger.Infof("Initializing core services...")
	results := services.NewResultStore(repo)
	if err := results.Load(context.Background()); err != nil {
		logger.Errorf("Failed to load stored results: %v", err)
	}
	deps.Results = results

	mediaService := services.NewMediaService(deps)
	logger.Infof("✓ Media Service (Overseerr operations)")

	coordinator := services.NewCoordinator(deps, cfg.OverseerrURL)
	logger.Infof("✓ Sensor Coordinator")

	schedulerService := services.NewSchedulerService(repo, coordinator, mediaService, services.SchedulerOptions{
		RefreshSchedule: cfg.RefreshSchedule,
		RetentionDays:   cfg.RetentionDays,
	})
	if err := schedulerService.Start(); err != nil {
		logger.Errorf("Failed to start scheduler: %v", err)
		os.Exit(1)
	}
	logger.Infof("✓ Scheduler Service (sensor refresh, maintenance, Overseerr jobs)")

	// First refresh in the background so startup does not wait on Overseerr
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout+5*time.Second)
		defer cancel()
		if _, err := coordinator.Refresh(ctx); err != nil {
			logger.Warnf("Initial sensor refresh failed: %v", err)
		}
	}()

	logger.Infof("Initializing REST API and WebSocket server...")
	apiServer := api.NewRESTServer(api.ServerDeps{
		Repo:        repo,
		EventBus:    eb,
		Media:       mediaService,
		Coordinator: coordinator,
		Scheduler:   schedulerService,
		Results:     results,
		Notifier:    notifierService,
		Metrics:     metricsService,
	})
	go func() {
		addr := ":" + cfg.Port
		if err := apiServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Failed to start API server: %v", err)
			os.Exit(1)
		}
	}()

	logger.Infof("========================================")
	logger.Infof("✓ Hassarr %s started successfully", config.Version)
	logger.Infof("✓ Server listening on port %s", cfg.Port)
	if cfg.BasePath != "/" {
		logger.Infof("✓ API available at base path: %s", cfg.BasePath)
	}
	logger.Infof("========================================")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Infof("========================================")
	logger.Infof("Received signal %v, initiating graceful shutdown...", sig)
	logger.Infof("========================================")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown in reverse order of startup
	logger.Infof("Stopping API Server...")
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API Server shutdown error: %v", err)
	} else {
		logger.Infof("✓ API Server stopped")
	}

	logger.Infof("Stopping Scheduler Service...")
	schedulerService.Stop()
	logger.Infof("✓ Scheduler Service stopped")

	logger.Infof("Stopping Notification Service...")
	notifierService.Stop()
	logger.Infof("✓ Notification Service stopped")

	logger.Infof("Stopping Event Bus...")
	eb.Shutdown()
	logger.Infof("✓ Event Bus stopped")

	stopCheckpoint()
	logger.Infof("Closing database connection...")
	if err := repo.GracefulClose(); err != nil {
		logger.Errorf("Failed to close database connection: %v", err)
	} else {
		logger.Infof("✓ Database connection closed")
	}

	logger.Infof("========================================")
	logger.Infof("✓ Hassarr shutdown complete")
	logger.Infof("========================================")
}

func orNone(s string) string {
	if s == "" {
		return "not configured"
	}
	return s
}
