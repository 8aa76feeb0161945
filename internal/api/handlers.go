package api

import (
	"crypto/hmac"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"

	"github.com/crmscanstack/crmscan-engine/internal/models"
	"github.com/crmscanstack/crmscan-engine/internal/repo"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func portalIDParam(r *http.Request) string {
	return r.URL.Query().Get("portalId")
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	portalID := portalIDParam(r)
	if portalID == "" {
		s.renderError(w, r, http.StatusBadRequest, "portalId is required")
		return
	}

	result, err := s.scans.Scan(r.Context(), portalID)
	if err != nil {
		s.logger.Error("scan failed", slog.String("portal_id", portalID), slog.Any("error", err))
		s.renderError(w, r, http.StatusInternalServerError, "scan failed")
		return
	}
	render.JSON(w, r, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	portalID := portalIDParam(r)
	if portalID == "" {
		s.renderError(w, r, http.StatusBadRequest, "portalId is required")
		return
	}
	limit := cast.ToInt(r.URL.Query().Get("limit"))

	entries, err := s.scans.History(r.Context(), portalID, limit)
	if err != nil {
		s.logger.Error("history lookup failed", slog.Any("error", err))
		s.renderError(w, r, http.StatusInternalServerError, "history unavailable")
		return
	}
	render.JSON(w, r, map[string]any{"portalId": portalID, "history": entries})
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	portalID := portalIDParam(r)
	if portalID == "" {
		s.renderError(w, r, http.StatusBadRequest, "portalId is required")
		return
	}
	objectType := chi.URLParam(r, "objectType")

	details, err := s.scans.Details(r.Context(), portalID, objectType)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, fmt.Sprintf("unsupported object type %q", objectType))
		return
	}
	render.JSON(w, r, details)
}

// requireStore fails requests for features that need the database when the
// server runs without one.
func (s *Server) requireStore(w http.ResponseWriter, r *http.Request) bool {
	if s.unlocks == nil || s.portals == nil {
		s.renderError(w, r, http.StatusServiceUnavailable, "feature requires a configured database")
		return false
	}
	return true
}

func (s *Server) handleUnlockStatus(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}
	portalID := portalIDParam(r)
	if portalID == "" {
		s.renderError(w, r, http.StatusBadRequest, "portalId is required")
		return
	}

	token, err := s.unlocks.StatusForPortal(r.Context(), portalID, time.Now())
	if errors.Is(err, repo.ErrTokenNotFound) {
		render.JSON(w, r, map[string]any{"unlocked": false})
		return
	}
	if err != nil {
		s.logger.Error("unlock status failed", slog.Any("error", err))
		s.renderError(w, r, http.StatusInternalServerError, "unlock status unavailable")
		return
	}
	render.JSON(w, r, map[string]any{
		"unlocked":  true,
		"token":     token.Token,
		"expiresAt": token.ExpiresAt,
	})
}

func (s *Server) handleUnlockValidate(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}
	tokenValue := r.URL.Query().Get("token")
	if tokenValue == "" {
		s.renderError(w, r, http.StatusBadRequest, "token is required")
		return
	}

	token, err := s.unlocks.Validate(r.Context(), tokenValue, time.Now())
	switch {
	case errors.Is(err, repo.ErrTokenNotFound):
		s.renderError(w, r, http.StatusNotFound, "unknown token")
	case errors.Is(err, repo.ErrTokenExpired):
		s.renderError(w, r, http.StatusGone, "token expired")
	case err != nil:
		s.logger.Error("token validation failed", slog.Any("error", err))
		s.renderError(w, r, http.StatusInternalServerError, "validation unavailable")
	default:
		render.JSON(w, r, map[string]any{
			"valid":     true,
			"portalId":  token.PortalID,
			"expiresAt": token.ExpiresAt,
		})
	}
}

type paymentWebhook struct {
	PortalID string `json:"portalId"`
	Email    string `json:"email"`
}

func (p *paymentWebhook) Bind(r *http.Request) error {
	if p.PortalID == "" {
		return errors.New("portalId is required")
	}
	return nil
}

func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}
	secret := s.cfg.Unlock.WebhookSecret
	if secret == "" || !hmac.Equal([]byte(r.Header.Get("X-Webhook-Secret")), []byte(secret)) {
		s.renderError(w, r, http.StatusUnauthorized, "invalid webhook secret")
		return
	}

	payload := &paymentWebhook{}
	if err := render.Bind(r, payload); err != nil {
		s.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, err := s.unlocks.Create(r.Context(), payload.PortalID, payload.Email, time.Now())
	if err != nil {
		s.logger.Error("unlock token creation failed", slog.Any("error", err))
		s.renderError(w, r, http.StatusInternalServerError, "could not create unlock token")
		return
	}
	s.logger.Info("unlock token issued", slog.String("portal_id", payload.PortalID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]any{"token": token.Token, "expiresAt": token.ExpiresAt})
}

// requireUnlock validates the export token and returns the portal it covers.
func (s *Server) requireUnlock(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	if !s.requireStore(w, r) {
		return "", "", false
	}
	tokenValue := r.URL.Query().Get("token")
	if tokenValue == "" {
		s.renderError(w, r, http.StatusUnauthorized, "token is required")
		return "", "", false
	}
	token, err := s.unlocks.Validate(r.Context(), tokenValue, time.Now())
	if err != nil {
		s.renderError(w, r, http.StatusForbidden, "token is not valid")
		return "", "", false
	}
	return token.PortalID, token.Token, true
}

func (s *Server) serveExport(w http.ResponseWriter, r *http.Request, format, filename, contentType string, build func(*models.ScanResult) ([]byte, error)) {
	portalID, tokenValue, ok := s.requireUnlock(w, r)
	if !ok {
		return
	}

	result, err := s.scans.Scan(r.Context(), portalID)
	if err != nil {
		s.logger.Error("export scan failed", slog.Any("error", err))
		s.renderError(w, r, http.StatusInternalServerError, "export unavailable")
		return
	}

	payload, err := build(result)
	if err != nil {
		s.logger.Error("export render failed", slog.String("format", format), slog.Any("error", err))
		s.renderError(w, r, http.StatusInternalServerError, "export unavailable")
		return
	}

	if err := s.unlocks.LogDownload(r.Context(), tokenValue, format, time.Now()); err != nil {
		s.logger.Warn("download log failed", slog.Any("error", err))
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(payload)
}

func (s *Server) handleExportSummaryCSV(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, "csv", "audit-summary.csv", "text/csv", s.exports.AuditSummaryCSV)
}

func (s *Server) handleExportIssuesCSV(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, "csv", "audit-issues.csv", "text/csv", s.exports.IssuesCSV)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, "xlsx", "audit.xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", s.exports.AuditXLSX)
}

func (s *Server) handleOAuthInstall(w http.ResponseWriter, r *http.Request) {
	oauth := s.cfg.HubSpot.OAuth
	if oauth.ClientID == "" {
		s.renderError(w, r, http.StatusServiceUnavailable, "oauth is not configured")
		return
	}
	authorize := url.URL{Scheme: "https", Host: "app.hubspot.com", Path: "/oauth/authorize"}
	q := authorize.Query()
	q.Set("client_id", oauth.ClientID)
	q.Set("redirect_uri", oauth.RedirectURI)
	q.Set("scope", oauth.Scopes)
	authorize.RawQuery = q.Encode()
	http.Redirect(w, r, authorize.String(), http.StatusFound)
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w, r) {
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		s.renderError(w, r, http.StatusBadRequest, "code is required")
		return
	}

	grant, err := s.oauth.ExchangeCode(r.Context(), code)
	if err != nil {
		s.logger.Error("oauth code exchange failed", slog.Any("error", err))
		s.renderError(w, r, http.StatusBadGateway, "could not complete installation")
		return
	}

	portalID, err := s.oauth.TokenPortalID(r.Context(), grant.AccessToken)
	if err != nil {
		s.logger.Error("portal resolution failed", slog.Any("error", err))
		s.renderError(w, r, http.StatusBadGateway, "could not resolve portal")
		return
	}

	portal := &repo.Portal{
		PortalID:     portalID,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(grant.ExpiresIn) * time.Second),
	}
	if err := s.portals.Save(r.Context(), portal); err != nil {
		s.logger.Error("portal save failed", slog.Any("error", err))
		s.renderError(w, r, http.StatusInternalServerError, "could not store credentials")
		return
	}

	s.logger.Info("portal connected", slog.String("portal_id", portalID))
	render.JSON(w, r, map[string]any{"connected": true, "portalId": portalID})
}
