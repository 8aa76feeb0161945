package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crmscanstack/crmscan-engine/internal/models"
)

// Property sets requested for each CRM object type. They cover everything
// the analyzers inspect plus the fields used to label affected objects.
var (
	contactProperties = []string{"firstname", "lastname", "email", "phone", "lifecyclestage", "lastmodifieddate", "company"}
	dealProperties    = []string{"dealname", "amount", "hubspot_owner_id", "dealstage", "hs_lastmodifieddate", "notes_last_updated"}
	companyProperties = []string{"name", "domain", "phone", "hubspot_owner_id", "hs_lastmodifieddate", "notes_last_updated"}
)

// TokenSource yields a portal's current access token and can mint a fresh
// one when HubSpot reports the old one expired.
type TokenSource interface {
	AccessToken(ctx context.Context, portalID string) (string, error)
	Refresh(ctx context.Context, portalID string) (string, error)
}

// StaticTokenSource serves a fixed token. Used with private app tokens and
// in tests.
type StaticTokenSource string

func (s StaticTokenSource) AccessToken(ctx context.Context, portalID string) (string, error) {
	return string(s), nil
}

func (s StaticTokenSource) Refresh(ctx context.Context, portalID string) (string, error) {
	return string(s), nil
}

// HubSpotClient reads CRM data through the public HubSpot REST API. All
// listing calls fetch a bounded sample rather than the full portal.
type HubSpotClient struct {
	baseURL     string
	httpClient  *http.Client
	tokens      TokenSource
	pageSize    int
	sampleLimit int
}

func NewHubSpotClient(baseURL string, tokens TokenSource, timeout time.Duration, pageSize, sampleLimit int) *HubSpotClient {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	if sampleLimit <= 0 {
		sampleLimit = 500
	}
	return &HubSpotClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		tokens:      tokens,
		pageSize:    pageSize,
		sampleLimit: sampleLimit,
	}
}

type objectPage struct {
	Results []struct {
		ID         string            `json:"id"`
		Properties map[string]string `json:"properties"`
	} `json:"results"`
	Paging struct {
		Next struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

// FetchContacts returns a sample of contact records with the properties the
// contact checks need.
func (c *HubSpotClient) FetchContacts(ctx context.Context, portalID string) ([]models.Record, error) {
	return c.fetchObjects(ctx, portalID, "contacts", contactProperties)
}

// FetchDeals returns a sample of deal records.
func (c *HubSpotClient) FetchDeals(ctx context.Context, portalID string) ([]models.Record, error) {
	return c.fetchObjects(ctx, portalID, "deals", dealProperties)
}

// FetchCompanies returns a sample of company records.
func (c *HubSpotClient) FetchCompanies(ctx context.Context, portalID string) ([]models.Record, error) {
	return c.fetchObjects(ctx, portalID, "companies", companyProperties)
}

func (c *HubSpotClient) fetchObjects(ctx context.Context, portalID, objectType string, properties []string) ([]models.Record, error) {
	records := make([]models.Record, 0, c.pageSize)
	after := ""
	for len(records) < c.sampleLimit {
		query := url.Values{}
		query.Set("limit", fmt.Sprintf("%d", c.pageSize))
		query.Set("properties", strings.Join(properties, ","))
		query.Set("archived", "false")
		if after != "" {
			query.Set("after", after)
		}

		var page objectPage
		endpoint := fmt.Sprintf("/crm/v3/objects/%s?%s", objectType, query.Encode())
		if err := c.getJSON(ctx, portalID, endpoint, &page); err != nil {
			// Partial pages are still useful. Hand back what we have
			// only when nothing failed on the very first page.
			if len(records) > 0 {
				return records, nil
			}
			return nil, err
		}

		for _, item := range page.Results {
			records = append(records, models.Record{ID: item.ID, Properties: item.Properties})
			if len(records) >= c.sampleLimit {
				break
			}
		}

		after = page.Paging.Next.After
		if after == "" || len(page.Results) == 0 {
			break
		}
	}
	return records, nil
}

// FetchUsers lists the portal's user accounts.
func (c *HubSpotClient) FetchUsers(ctx context.Context, portalID string) ([]models.User, error) {
	users := make([]models.User, 0, c.pageSize)
	after := ""
	for {
		query := url.Values{}
		query.Set("limit", fmt.Sprintf("%d", c.pageSize))
		if after != "" {
			query.Set("after", after)
		}

		var page struct {
			Results []struct {
				ID        string `json:"id"`
				Email     string `json:"email"`
				FirstName string `json:"firstName"`
				LastName  string `json:"lastName"`
				Suspended bool   `json:"suspended"`
				Archived  bool   `json:"archived"`
			} `json:"results"`
			Paging struct {
				Next struct {
					After string `json:"after"`
				} `json:"next"`
			} `json:"paging"`
		}
		if err := c.getJSON(ctx, portalID, "/settings/v3/users?"+query.Encode(), &page); err != nil {
			if len(users) > 0 {
				return users, nil
			}
			return nil, err
		}

		for _, item := range page.Results {
			users = append(users, models.User{
				ID:        item.ID,
				Email:     item.Email,
				FirstName: item.FirstName,
				LastName:  item.LastName,
				Suspended: item.Suspended,
				Archived:  item.Archived,
			})
		}

		after = page.Paging.Next.After
		if after == "" || len(page.Results) == 0 {
			break
		}
	}
	return users, nil
}

// DealHasContacts reports whether the deal has at least one associated
// contact. One call per deal, so callers should bound concurrency.
func (c *HubSpotClient) DealHasContacts(ctx context.Context, portalID, dealID string) (bool, error) {
	var page struct {
		Results []json.RawMessage `json:"results"`
	}
	endpoint := fmt.Sprintf("/crm/v4/objects/deal/%s/associations/contact?limit=1", url.PathEscape(dealID))
	if err := c.getJSON(ctx, portalID, endpoint, &page); err != nil {
		return false, err
	}
	return len(page.Results) > 0, nil
}

// ProbeTool checks whether a HubSpot tool holds any objects at all by
// requesting a single item from its listing endpoint.
func (c *HubSpotClient) ProbeTool(ctx context.Context, portalID, path string) (bool, error) {
	var page struct {
		Results []json.RawMessage `json:"results"`
		Total   int               `json:"total"`
		Objects []json.RawMessage `json:"objects"`
	}
	if err := c.getJSON(ctx, portalID, path, &page); err != nil {
		return false, err
	}
	return len(page.Results) > 0 || len(page.Objects) > 0 || page.Total > 0, nil
}

func (c *HubSpotClient) getJSON(ctx context.Context, portalID, endpoint string, out any) error {
	token, err := c.tokens.AccessToken(ctx, portalID)
	if err != nil {
		return &APIError{Kind: KindAuth, Message: fmt.Sprintf("access token: %v", err)}
	}

	err = c.doGet(ctx, endpoint, token, out)
	if !IsKind(err, KindAuth) {
		return err
	}

	// Expired tokens get one refresh-and-retry before we give up.
	token, refreshErr := c.tokens.Refresh(ctx, portalID)
	if refreshErr != nil {
		return err
	}
	return c.doGet(ctx, endpoint, token, out)
}

func (c *HubSpotClient) doGet(ctx context.Context, endpoint, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return &APIError{Kind: KindTransport, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Kind: KindTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{
			Kind:    kindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Kind: KindTransport, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}
