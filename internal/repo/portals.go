package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Portal stores the OAuth credentials obtained when a HubSpot account
// installs the app.
type Portal struct {
	PortalID     string    `gorm:"primaryKey;size:32"`
	AccessToken  string    `gorm:"size:512"`
	RefreshToken string    `gorm:"size:512"`
	ExpiresAt    time.Time `gorm:""`
	InstalledAt  time.Time `gorm:""`
	UpdatedAt    time.Time `gorm:""`
}

// ErrPortalNotFound is returned when no credentials exist for a portal.
var ErrPortalNotFound = errors.New("portal not connected")

// PortalRepo persists portal credentials.
type PortalRepo struct {
	db *gorm.DB
}

func NewPortalRepo(db *gorm.DB) *PortalRepo {
	return &PortalRepo{db: db}
}

func (r *PortalRepo) Save(ctx context.Context, portal *Portal) error {
	portal.UpdatedAt = time.Now()
	if portal.InstalledAt.IsZero() {
		portal.InstalledAt = portal.UpdatedAt
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "portal_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "expires_at", "updated_at"}),
		}).
		Create(portal).Error
}

func (r *PortalRepo) Get(ctx context.Context, portalID string) (*Portal, error) {
	var portal Portal
	err := r.db.WithContext(ctx).First(&portal, "portal_id = ?", portalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPortalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &portal, nil
}

// OAuthClient talks to HubSpot's OAuth endpoints for the install flow and
// refresh-token exchange.
type OAuthClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	redirectURI  string
	httpClient   *http.Client
}

func NewOAuthClient(baseURL, clientID, clientSecret, redirectURI string, timeout time.Duration) *OAuthClient {
	return &OAuthClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// TokenResponse is HubSpot's reply to a token grant.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// ExchangeCode trades an install authorization code for tokens.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("redirect_uri", c.redirectURI)
	form.Set("code", code)
	return c.tokenGrant(ctx, form)
}

// RefreshGrant trades a refresh token for a fresh access token.
func (c *OAuthClient) RefreshGrant(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("refresh_token", refreshToken)
	return c.tokenGrant(ctx, form)
}

func (c *OAuthClient) tokenGrant(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/v1/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Kind: KindTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &APIError{
			Kind:    kindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(body)),
		}
	}

	var token TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, &APIError{Kind: KindTransport, Message: fmt.Sprintf("decode token: %v", err)}
	}
	return &token, nil
}

// TokenPortalID resolves which portal an access token belongs to. HubSpot
// does not include the hub id in the grant response.
func (c *OAuthClient) TokenPortalID(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/oauth/v1/access-tokens/"+url.PathEscape(accessToken), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &APIError{Kind: KindTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode}
	}
	var info struct {
		HubID json.Number `json:"hub_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", &APIError{Kind: KindTransport, Message: fmt.Sprintf("decode token info: %v", err)}
	}
	return info.HubID.String(), nil
}

// PortalTokenSource serves per-portal access tokens from the database and
// refreshes them through the OAuth client when they expire.
type PortalTokenSource struct {
	portals *PortalRepo
	oauth   *OAuthClient
}

func NewPortalTokenSource(portals *PortalRepo, oauth *OAuthClient) *PortalTokenSource {
	return &PortalTokenSource{portals: portals, oauth: oauth}
}

func (s *PortalTokenSource) AccessToken(ctx context.Context, portalID string) (string, error) {
	portal, err := s.portals.Get(ctx, portalID)
	if err != nil {
		return "", err
	}
	// Refresh ahead of expiry so callers rarely see a 401.
	if !portal.ExpiresAt.IsZero() && time.Until(portal.ExpiresAt) < time.Minute {
		return s.Refresh(ctx, portalID)
	}
	return portal.AccessToken, nil
}

func (s *PortalTokenSource) Refresh(ctx context.Context, portalID string) (string, error) {
	portal, err := s.portals.Get(ctx, portalID)
	if err != nil {
		return "", err
	}
	token, err := s.oauth.RefreshGrant(ctx, portal.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh portal %s: %w", portalID, err)
	}
	portal.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		portal.RefreshToken = token.RefreshToken
	}
	portal.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	if err := s.portals.Save(ctx, portal); err != nil {
		return "", err
	}
	return portal.AccessToken, nil
}
