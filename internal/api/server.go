package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/crmscanstack/crmscan-engine/internal/config"
	"github.com/crmscanstack/crmscan-engine/internal/repo"
	"github.com/crmscanstack/crmscan-engine/internal/services"
)

// Server owns the HTTP surface of the scan engine.
type Server struct {
	logger  *slog.Logger
	scans   *services.ScanService
	exports *services.ExportService
	unlocks *repo.UnlockRepo
	portals *repo.PortalRepo
	oauth   *repo.OAuthClient
	cfg     config.Config

	httpServer *http.Server
}

func NewServer(logger *slog.Logger, cfg config.Config, scans *services.ScanService, exports *services.ExportService, unlocks *repo.UnlockRepo, portals *repo.PortalRepo, oauth *repo.OAuthClient) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		logger:  logger,
		scans:   scans,
		exports: exports,
		unlocks: unlocks,
		portals: portals,
		oauth:   oauth,
		cfg:     cfg,
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/scan", s.handleScan)
		r.Get("/scan/history", s.handleHistory)
		r.Get("/scan/details/{objectType}", s.handleDetails)

		r.Get("/unlock/status", s.handleUnlockStatus)
		r.Get("/unlock/validate", s.handleUnlockValidate)
		r.Post("/payment/webhook", s.handlePaymentWebhook)

		r.Get("/export/summary.csv", s.handleExportSummaryCSV)
		r.Get("/export/issues.csv", s.handleExportIssuesCSV)
		r.Get("/export/audit.xlsx", s.handleExportXLSX)
	})

	r.Get("/oauth/install", s.handleOAuthInstall)
	r.Get("/oauth/callback", s.handleOAuthCallback)

	return r
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("address", s.cfg.Server.Address))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
