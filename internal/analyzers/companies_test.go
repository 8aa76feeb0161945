package analyzers

import (
	"strconv"
	"testing"
	"time"

	"github.com/crmscanstack/crmscan-engine/internal/models"
)

func makeCompanies(total int) []models.Record {
	records := make([]models.Record, total)
	fresh := testNow.AddDate(0, -1, 0).Format(time.RFC3339)
	for i := range records {
		records[i] = models.Record{
			ID: strconv.Itoa(i + 1),
			Properties: map[string]string{
				"name":                "Acme " + strconv.Itoa(i+1),
				"domain":              "acme.example.com",
				"phone":               "+1-555-0101",
				"hubspot_owner_id":    "owner-3",
				"notes_last_updated":  fresh,
				"hs_lastmodifieddate": fresh,
			},
		}
	}
	return records
}

func TestClassifyCompaniesChecks(t *testing.T) {
	records := makeCompanies(10)
	records[0].Properties["domain"] = ""
	records[1].Properties["phone"] = ""
	records[2].Properties["hubspot_owner_id"] = ""

	result := ClassifyCompanies("123", records, false, testNow)
	if result.WithoutDomain.Count != 1 || result.WithoutPhone.Count != 1 || result.WithoutOwner.Count != 1 {
		t.Errorf("counts = domain %d phone %d owner %d, want 1 each",
			result.WithoutDomain.Count, result.WithoutPhone.Count, result.WithoutOwner.Count)
	}
	// 1/10 = 10% lands in the 60 bucket.
	if result.WithoutDomain.Score != 60 {
		t.Errorf("domain score = %d, want 60", result.WithoutDomain.Score)
	}
}

func TestClassifyCompaniesMissingDomainIsNotVisibility(t *testing.T) {
	records := makeCompanies(5)
	for i := range records {
		records[i].Properties["domain"] = ""
	}
	result := ClassifyCompanies("123", records, false, testNow)
	if result.LimitedVisibility {
		t.Error("missing domains must not flag limited visibility")
	}
	if result.WithoutDomain.Count != 5 {
		t.Errorf("withoutDomain = %d, want 5", result.WithoutDomain.Count)
	}
}

func TestClassifyCompaniesPreviewLabels(t *testing.T) {
	records := makeCompanies(1)
	records[0].Properties["name"] = ""
	records[0].Properties["phone"] = ""
	result := ClassifyCompanies("123", records, false, testNow)

	item := result.WithoutPhone.Items[0]
	if item.DisplayName != "acme.example.com" {
		t.Errorf("display name = %q, want domain fallback", item.DisplayName)
	}
	if item.HubSpotURL != "https://app.hubspot.com/contacts/123/record/0-2/1" {
		t.Errorf("url = %q", item.HubSpotURL)
	}
}

func TestClassifyCompaniesEmptySample(t *testing.T) {
	result := ClassifyCompanies("123", nil, true, testNow)
	if result.Total != 0 || result.WithoutDomain != nil {
		t.Errorf("empty sample should carry no checks: %+v", result)
	}
	if result.LimitedVisibility {
		t.Error("empty sample must not report limited visibility")
	}
}
