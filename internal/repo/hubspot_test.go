package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler, tokens TokenSource, sampleLimit int) *HubSpotClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHubSpotClient(srv.URL, tokens, 2*time.Second, 2, sampleLimit)
}

func writeObjectPage(w http.ResponseWriter, ids []string, after string) {
	type result struct {
		ID         string            `json:"id"`
		Properties map[string]string `json:"properties"`
	}
	page := struct {
		Results []result `json:"results"`
		Paging  *struct {
			Next struct {
				After string `json:"after"`
			} `json:"next"`
		} `json:"paging,omitempty"`
	}{}
	for _, id := range ids {
		page.Results = append(page.Results, result{ID: id, Properties: map[string]string{"email": id + "@example.com"}})
	}
	if after != "" {
		page.Paging = &struct {
			Next struct {
				After string `json:"after"`
			} `json:"next"`
		}{}
		page.Paging.Next.After = after
	}
	_ = json.NewEncoder(w).Encode(page)
}

func TestFetchContactsPagesUntilSampleLimit(t *testing.T) {
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		switch r.URL.Query().Get("after") {
		case "":
			writeObjectPage(w, []string{"1", "2"}, "cursor-1")
		case "cursor-1":
			writeObjectPage(w, []string{"3", "4"}, "cursor-2")
		default:
			writeObjectPage(w, []string{"5", "6"}, "")
		}
	})

	client := newTestClient(t, handler, StaticTokenSource("tok"), 3)
	records, err := client.FetchContacts(context.Background(), "123")
	if err != nil {
		t.Fatalf("FetchContacts: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3 (sample limit)", len(records))
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if records[0].Property("email") != "1@example.com" {
		t.Errorf("first record email = %q", records[0].Property("email"))
	}
}

func TestFetchContactsPartialResultOnLaterPageError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("after") == "" {
			writeObjectPage(w, []string{"1", "2"}, "cursor-1")
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	})

	client := newTestClient(t, handler, StaticTokenSource("tok"), 10)
	records, err := client.FetchContacts(context.Background(), "123")
	if err != nil {
		t.Fatalf("expected partial result, got error %v", err)
	}
	if len(records) != 2 {
		t.Errorf("records = %d, want 2", len(records))
	}
}

func TestErrorKindMapping(t *testing.T) {
	for _, tc := range []struct {
		status int
		kind   ErrorKind
	}{
		{http.StatusForbidden, KindPermission},
		{http.StatusTooManyRequests, KindRateLimit},
		{http.StatusInternalServerError, KindTransport},
	} {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		client := newTestClient(t, handler, StaticTokenSource("tok"), 10)
		_, err := client.FetchDeals(context.Background(), "123")
		if !IsKind(err, tc.kind) {
			t.Errorf("status %d: err = %v, want kind %s", tc.status, err, tc.kind)
		}
		if !IsVisibilityError(err) {
			t.Errorf("status %d: expected visibility error", tc.status)
		}
	}
}

type refreshingTokens struct {
	refreshed bool
}

func (r *refreshingTokens) AccessToken(ctx context.Context, portalID string) (string, error) {
	return "stale", nil
}

func (r *refreshingTokens) Refresh(ctx context.Context, portalID string) (string, error) {
	r.refreshed = true
	return "fresh", nil
}

func TestExpiredTokenRefreshedOnce(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"category":"EXPIRED_AUTHENTICATION"}`)
			return
		}
		writeObjectPage(w, []string{"1"}, "")
	})

	tokens := &refreshingTokens{}
	client := newTestClient(t, handler, tokens, 10)
	records, err := client.FetchCompanies(context.Background(), "123")
	if err != nil {
		t.Fatalf("FetchCompanies: %v", err)
	}
	if !tokens.refreshed {
		t.Error("expected token refresh on 401")
	}
	if len(records) != 1 {
		t.Errorf("records = %d, want 1", len(records))
	}
}

func TestFetchUsers(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/settings/v3/users" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"results":[
			{"id":"u1","email":"a@b.com","firstName":"Ana","suspended":false},
			{"id":"u2","email":"","suspended":true}
		]}`)
	})

	client := newTestClient(t, handler, StaticTokenSource("tok"), 10)
	users, err := client.FetchUsers(context.Background(), "123")
	if err != nil {
		t.Fatalf("FetchUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("users = %d, want 2", len(users))
	}
	if users[0].ID != "u1" || users[1].Suspended != true {
		t.Errorf("users = %+v", users)
	}
}

func TestDealHasContacts(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/crm/v4/objects/deal/77/associations/contact" {
			fmt.Fprint(w, `{"results":[{"toObjectId":901}]}`)
			return
		}
		fmt.Fprint(w, `{"results":[]}`)
	})

	client := newTestClient(t, handler, StaticTokenSource("tok"), 10)
	has, err := client.DealHasContacts(context.Background(), "123", "77")
	if err != nil || !has {
		t.Errorf("deal 77: has=%v err=%v, want true", has, err)
	}
	has, err = client.DealHasContacts(context.Background(), "123", "88")
	if err != nil || has {
		t.Errorf("deal 88: has=%v err=%v, want false", has, err)
	}
}

func TestProbeTool(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crm/v3/objects/tickets":
			fmt.Fprint(w, `{"results":[{"id":"1"}],"total":12}`)
		case "/automation/v3/workflows":
			fmt.Fprint(w, `{"workflows":[],"objects":[],"total":0,"results":[]}`)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	})

	client := newTestClient(t, handler, StaticTokenSource("tok"), 10)
	used, err := client.ProbeTool(context.Background(), "123", "/crm/v3/objects/tickets?limit=1")
	if err != nil || !used {
		t.Errorf("tickets: used=%v err=%v, want true", used, err)
	}
	used, err = client.ProbeTool(context.Background(), "123", "/automation/v3/workflows?limit=1")
	if err != nil || used {
		t.Errorf("workflows: used=%v err=%v, want false", used, err)
	}
	if _, err = client.ProbeTool(context.Background(), "123", "/cms/v3/blogs/posts?limit=1"); !IsKind(err, KindPermission) {
		t.Errorf("blog: err = %v, want permission kind", err)
	}
}
