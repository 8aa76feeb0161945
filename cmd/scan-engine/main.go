package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crmscanstack/crmscan-engine/internal/api"
	"github.com/crmscanstack/crmscan-engine/internal/cache"
	"github.com/crmscanstack/crmscan-engine/internal/config"
	"github.com/crmscanstack/crmscan-engine/internal/metrics"
	"github.com/crmscanstack/crmscan-engine/internal/repo"
	"github.com/crmscanstack/crmscan-engine/internal/services"
	"github.com/crmscanstack/crmscan-engine/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting scan-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NewMemoryProvider()
	switch cfg.Cache.Backend {
	case "redis":
		provider, err := cache.NewRedisProvider(context.Background(), cfg.Cache)
		if err != nil {
			logger.Warn("redis cache unavailable, falling back to memory", slog.Any("error", err))
		} else {
			cacheProvider = provider
		}
	case "none":
		cacheProvider = cache.NewNoopProvider()
	}
	defer cacheProvider.Close()

	var (
		portals   *repo.PortalRepo
		historier services.HistoryStore
		unlocks   *repo.UnlockRepo
	)
	if cfg.Database.DSN != "" {
		db, err := repo.OpenDB(cfg.Database.DSN)
		if err != nil {
			logger.Error("database unavailable", slog.Any("error", err))
			os.Exit(1)
		}
		portals = repo.NewPortalRepo(db)
		historier = repo.NewHistoryRepo(db)
		unlocks = repo.NewUnlockRepo(db, cfg.Unlock.TokenTTL)
	} else {
		logger.Warn("no database configured; history, unlock and OAuth persistence disabled")
	}

	oauth := repo.NewOAuthClient(
		cfg.HubSpot.BaseURL,
		cfg.HubSpot.OAuth.ClientID,
		cfg.HubSpot.OAuth.ClientSecret,
		cfg.HubSpot.OAuth.RedirectURI,
		cfg.HubSpot.Timeout,
	)

	var tokens repo.TokenSource
	if token := os.Getenv("HUBSPOT_PRIVATE_APP_TOKEN"); token != "" {
		tokens = repo.StaticTokenSource(token)
	} else if portals != nil {
		tokens = repo.NewPortalTokenSource(portals, oauth)
	} else {
		logger.Error("no credential source: set HUBSPOT_PRIVATE_APP_TOKEN or configure a database for OAuth")
		os.Exit(1)
	}

	crm := repo.NewHubSpotClient(
		cfg.HubSpot.BaseURL,
		tokens,
		cfg.HubSpot.Timeout,
		cfg.HubSpot.PageSize,
		cfg.HubSpot.SampleLimit,
	)

	scanService := services.NewScanService(logger, crm, cacheProvider, historier, cfg.Cache.ScanResultTTL, cfg.HubSpot.AssociationWorkers)
	exportService := services.NewExportService(logger)

	server := api.NewServer(logger, *cfg, scanService, exportService, unlocks, portals, oauth)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("http server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("scan-engine stopped")
}
