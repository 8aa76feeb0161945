package services

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/crmscanstack/crmscan-engine/internal/cache"
	"github.com/crmscanstack/crmscan-engine/internal/models"
	"github.com/crmscanstack/crmscan-engine/internal/repo"
)

// fakeCRM serves canned data and can fail whole domains.
type fakeCRM struct {
	contacts  []models.Record
	users     []models.User
	deals     []models.Record
	companies []models.Record
	failAll   bool

	mu         sync.Mutex
	fetchCalls int
}

func (f *fakeCRM) countCall() {
	f.mu.Lock()
	f.fetchCalls++
	f.mu.Unlock()
}

func (f *fakeCRM) fail() error {
	return &repo.APIError{Kind: repo.KindAuth, Status: 401}
}

func (f *fakeCRM) FetchContacts(ctx context.Context, portalID string) ([]models.Record, error) {
	f.countCall()
	if f.failAll {
		return nil, f.fail()
	}
	return f.contacts, nil
}

func (f *fakeCRM) FetchUsers(ctx context.Context, portalID string) ([]models.User, error) {
	f.countCall()
	if f.failAll {
		return nil, f.fail()
	}
	return f.users, nil
}

func (f *fakeCRM) FetchDeals(ctx context.Context, portalID string) ([]models.Record, error) {
	f.countCall()
	if f.failAll {
		return nil, f.fail()
	}
	return f.deals, nil
}

func (f *fakeCRM) FetchCompanies(ctx context.Context, portalID string) ([]models.Record, error) {
	f.countCall()
	if f.failAll {
		return nil, f.fail()
	}
	return f.companies, nil
}

func (f *fakeCRM) DealHasContacts(ctx context.Context, portalID, dealID string) (bool, error) {
	if f.failAll {
		return false, f.fail()
	}
	return true, nil
}

func (f *fakeCRM) ProbeTool(ctx context.Context, portalID, path string) (bool, error) {
	if f.failAll {
		return false, f.fail()
	}
	return true, nil
}

type fakeHistory struct {
	mu       sync.Mutex
	saved    []models.Snapshot
	averages models.BenchmarkAverages
	entries  []models.HistoryEntry
}

func (f *fakeHistory) SaveSnapshot(ctx context.Context, snap models.Snapshot, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, snap)
	return nil
}

func (f *fakeHistory) List(ctx context.Context, portalID string, limit int) ([]models.HistoryEntry, error) {
	return f.entries, nil
}

func (f *fakeHistory) CohortAverages(ctx context.Context, cohort string, now time.Time) (models.BenchmarkAverages, error) {
	return f.averages, nil
}

func healthyCRM(contacts int) *fakeCRM {
	crm := &fakeCRM{users: []models.User{{ID: "u1", Email: "a@b.com"}}}
	fresh := time.Now().Add(-24 * time.Hour).Format(time.RFC3339)
	for i := 0; i < contacts; i++ {
		crm.contacts = append(crm.contacts, models.Record{
			ID: strconv.Itoa(i + 1),
			Properties: map[string]string{
				"email": "p@example.com", "phone": "1", "lifecyclestage": "lead",
				"lastmodifieddate": fresh,
			},
		})
	}
	crm.deals = []models.Record{{ID: "d1", Properties: map[string]string{
		"dealname": "Deal", "amount": "100", "hubspot_owner_id": "o1",
		"notes_last_updated": fresh,
	}}}
	crm.companies = []models.Record{{ID: "c1", Properties: map[string]string{
		"name": "Acme", "domain": "acme.io", "phone": "1", "hubspot_owner_id": "o1",
		"notes_last_updated": fresh,
	}}}
	return crm
}

func TestScanHealthyPortal(t *testing.T) {
	crm := healthyCRM(10)
	history := &fakeHistory{averages: models.BenchmarkAverages{AvgEfficiency: 75, SnapshotsConsidered: 4}}
	svc := NewScanService(nil, crm, cache.NewNoopProvider(), history, time.Minute, 2)

	result, err := svc.Scan(context.Background(), "123")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Efficiency.Score != 100 || result.Efficiency.Level != "Excellent" {
		t.Errorf("efficiency = %+v", result.Efficiency)
	}
	if len(result.Insights) != 1 || result.Insights[0].ID != "healthy-account" {
		t.Errorf("insights = %+v, want only the healthy fallback", result.Insights)
	}
	if result.Prioritization.NextStep != nil {
		t.Errorf("next step = %q, want nil", *result.Prioritization.NextStep)
	}
	if result.Benchmark == nil || result.Benchmark.Cohort != "small" {
		t.Errorf("benchmark = %+v", result.Benchmark)
	}
	if result.TrafficLights["overall"].Status != "green" {
		t.Errorf("overall light = %+v", result.TrafficLights["overall"])
	}
	if result.Version != ScanVersion || result.PortalID != "123" {
		t.Errorf("envelope = %q %q", result.Version, result.PortalID)
	}
}

func TestScanNeverFailsOnTotalAuthFailure(t *testing.T) {
	crm := &fakeCRM{failAll: true}
	svc := NewScanService(nil, crm, cache.NewNoopProvider(), nil, time.Minute, 2)

	result, err := svc.Scan(context.Background(), "123")
	if err != nil {
		t.Fatalf("Scan must not fail: %v", err)
	}
	// All domains degraded to their neutral baselines.
	if result.Contacts.Score != 70 || result.Users.Score != 50 {
		t.Errorf("baselines = contacts %d users %d", result.Contacts.Score, result.Users.Score)
	}
	if !result.Efficiency.HasLimitedVisibility {
		t.Error("total failure should flag limited visibility")
	}
	if len(result.Insights) == 0 {
		t.Error("insights must never be empty")
	}
}

func TestScanUsesCacheWithinTTL(t *testing.T) {
	crm := healthyCRM(3)
	svc := NewScanService(nil, crm, cache.NewMemoryProvider(), nil, time.Minute, 2)
	ctx := context.Background()

	first, err := svc.Scan(ctx, "123")
	if err != nil {
		t.Fatal(err)
	}
	callsAfterFirst := crm.fetchCalls

	second, err := svc.Scan(ctx, "123")
	if err != nil {
		t.Fatal(err)
	}
	if crm.fetchCalls != callsAfterFirst {
		t.Errorf("second scan hit the CRM (%d calls)", crm.fetchCalls-callsAfterFirst)
	}
	if second.Efficiency.Score != first.Efficiency.Score {
		t.Error("cached result differs")
	}

	// Another portal is a separate cache entry.
	if _, err := svc.Scan(ctx, "456"); err != nil {
		t.Fatal(err)
	}
	if crm.fetchCalls == callsAfterFirst {
		t.Error("different portal should not share the cache entry")
	}
}

func TestScanPersistsSnapshot(t *testing.T) {
	crm := healthyCRM(5)
	history := &fakeHistory{}
	svc := NewScanService(nil, crm, cache.NewNoopProvider(), history, time.Minute, 2)

	if _, err := svc.Scan(context.Background(), "123"); err != nil {
		t.Fatal(err)
	}

	// The save runs in the background.
	deadline := time.Now().Add(2 * time.Second)
	for {
		history.mu.Lock()
		saved := len(history.saved)
		history.mu.Unlock()
		if saved > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("snapshot was never saved")
		}
		time.Sleep(10 * time.Millisecond)
	}

	history.mu.Lock()
	snap := history.saved[0]
	history.mu.Unlock()
	if snap.PortalID != "123" || snap.ContactsTotal != 5 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestDetails(t *testing.T) {
	crm := healthyCRM(3)
	crm.contacts[0].Properties["email"] = ""
	svc := NewScanService(nil, crm, cache.NewNoopProvider(), nil, time.Minute, 2)

	details, err := svc.Details(context.Background(), "123", "contacts")
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if details.Total != 3 {
		t.Errorf("total = %d, want 3", details.Total)
	}
	if details.Issues["withoutEmail"].Count != 1 {
		t.Errorf("withoutEmail = %+v", details.Issues["withoutEmail"])
	}

	if _, err := svc.Details(context.Background(), "123", "tickets"); err == nil {
		t.Error("unsupported object type should error")
	}
}

func TestDetailsUsers(t *testing.T) {
	crm := healthyCRM(1)
	crm.users = append(crm.users, models.User{ID: "u2", FirstName: "Sam", LastName: "Serrano", Suspended: true})
	svc := NewScanService(nil, crm, cache.NewNoopProvider(), nil, time.Minute, 2)

	details, err := svc.Details(context.Background(), "123", "users")
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if details.Total != 2 {
		t.Errorf("total = %d, want 2", details.Total)
	}
	inactive := details.Issues["inactive"]
	if inactive.Count != 1 {
		t.Fatalf("inactive = %+v", inactive)
	}
	if inactive.Items[0].DisplayName != "Sam Serrano" {
		t.Errorf("display name = %q", inactive.Items[0].DisplayName)
	}
	if inactive.Items[0].HubSpotURL != "https://app.hubspot.com/settings/123/users" {
		t.Errorf("url = %q", inactive.Items[0].HubSpotURL)
	}
}
