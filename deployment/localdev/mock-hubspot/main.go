package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"
)

type objectResult struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

type userResult struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Suspended bool   `json:"suspended"`
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	fresh := time.Now().Add(-12 * time.Hour).Format(time.RFC3339)
	stale := time.Now().AddDate(-2, 0, 0).Format(time.RFC3339)

	mux.HandleFunc("/crm/v3/objects/contacts", func(w http.ResponseWriter, r *http.Request) {
		var results []objectResult
		for i := 1; i <= 40; i++ {
			props := map[string]string{
				"firstname":        "Contact",
				"lastname":         strconv.Itoa(i),
				"email":            fmt.Sprintf("contact%d@example.com", i),
				"phone":            "+1-555-0100",
				"lifecyclestage":   "lead",
				"lastmodifieddate": fresh,
			}
			if i%4 == 0 {
				props["email"] = "" // a quarter without email
			}
			if i%5 == 0 {
				props["lastmodifieddate"] = stale
			}
			results = append(results, objectResult{ID: strconv.Itoa(i), Properties: props})
		}
		writeJSON(w, map[string]any{"results": results})
	})

	mux.HandleFunc("/crm/v3/objects/deals", func(w http.ResponseWriter, r *http.Request) {
		var results []objectResult
		for i := 1; i <= 12; i++ {
			props := map[string]string{
				"dealname":           "Deal " + strconv.Itoa(i),
				"amount":             "2500",
				"hubspot_owner_id":   "owner-1",
				"notes_last_updated": fresh,
			}
			if i%3 == 0 {
				props["hubspot_owner_id"] = ""
			}
			if i%6 == 0 {
				props["amount"] = ""
			}
			results = append(results, objectResult{ID: strconv.Itoa(i), Properties: props})
		}
		writeJSON(w, map[string]any{"results": results})
	})

	mux.HandleFunc("/crm/v3/objects/companies", func(w http.ResponseWriter, r *http.Request) {
		var results []objectResult
		for i := 1; i <= 8; i++ {
			props := map[string]string{
				"name":               "Company " + strconv.Itoa(i),
				"domain":             fmt.Sprintf("company%d.example.com", i),
				"phone":              "+1-555-0200",
				"hubspot_owner_id":   "owner-1",
				"notes_last_updated": fresh,
			}
			if i%4 == 0 {
				props["domain"] = ""
			}
			results = append(results, objectResult{ID: strconv.Itoa(i), Properties: props})
		}
		writeJSON(w, map[string]any{"results": results})
	})

	mux.HandleFunc("/settings/v3/users", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"results": []userResult{
			{ID: "u1", Email: "owner@example.com", FirstName: "Olive", LastName: "Owner"},
			{ID: "u2", Email: "rep@example.com", FirstName: "Rudy", LastName: "Rep"},
			{ID: "u3", Email: "", Suspended: true},
		}})
	})

	mux.HandleFunc("/crm/v4/objects/deal/", func(w http.ResponseWriter, r *http.Request) {
		// Odd deal ids have an associated contact, even ones do not.
		var dealID int
		_, _ = fmt.Sscanf(r.URL.Path, "/crm/v4/objects/deal/%d/associations/contact", &dealID)
		if dealID%2 == 1 {
			writeJSON(w, map[string]any{"results": []map[string]any{{"toObjectId": 900 + dealID}}})
			return
		}
		writeJSON(w, map[string]any{"results": []map[string]any{}})
	})

	for _, path := range []string{
		"/crm/v3/objects/tickets",
		"/automation/v3/workflows",
		"/forms/v2/forms",
		"/cms/v3/pages/landing-pages",
		"/cms/v3/pages/site-pages",
		"/cms/v3/blogs/posts",
	} {
		empty := path == "/automation/v3/workflows" || path == "/cms/v3/blogs/posts"
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			if empty {
				writeJSON(w, map[string]any{"results": []any{}, "total": 0})
				return
			}
			writeJSON(w, map[string]any{"results": []map[string]any{{"id": "1"}}, "total": 3})
		})
	}

	mux.HandleFunc("/oauth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, map[string]any{
			"access_token":  "mock-access-token",
			"refresh_token": "mock-refresh-token",
			"expires_in":    1800,
		})
	})

	mux.HandleFunc("/oauth/v1/access-tokens/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"hub_id": 1234567})
	})

	addr := ":8090"
	log.Printf("mock hubspot listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
