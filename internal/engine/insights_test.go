package engine

import (
	"strings"
	"testing"

	"github.com/crmscanstack/crmscan-engine/internal/models"
)

func findInsight(insights []models.Insight, id string) *models.Insight {
	for i := range insights {
		if insights[i].ID == id {
			return &insights[i]
		}
	}
	return nil
}

func TestGenerateInsightsHealthyFallback(t *testing.T) {
	contacts := models.ContactsAnalysis{Total: 100, Score: 100}
	users := models.UsersAnalysis{Total: 10, Score: 100}
	eff := models.Efficiency{Score: 100, Level: "Excellent"}

	insights := GenerateInsights(eff, contacts, users, nil, nil, nil)
	if len(insights) != 1 {
		t.Fatalf("insights = %d, want exactly the fallback", len(insights))
	}
	if insights[0].ID != "healthy-account" || insights[0].Severity != models.SeverityInfo {
		t.Errorf("fallback = %+v", insights[0])
	}
}

func TestGenerateInsightsNeverEmpty(t *testing.T) {
	// Even with entirely zero-valued inputs the list has at least one entry.
	insights := GenerateInsights(models.Efficiency{}, models.ContactsAnalysis{}, models.UsersAnalysis{}, &models.DealsAnalysis{}, &models.CompaniesAnalysis{}, &models.ToolsUsage{})
	if len(insights) == 0 {
		t.Fatal("insight list must never be empty")
	}
}

func TestContactEmailTiers(t *testing.T) {
	eff := models.Efficiency{}
	users := models.UsersAnalysis{}

	critical := GenerateInsights(eff, models.ContactsAnalysis{Total: 100, WithoutEmail: 25}, users, nil, nil, nil)
	if findInsight(critical, "contacts-without-email-critical") == nil {
		t.Error("25% without email should be critical")
	}
	if findInsight(critical, "contacts-without-email-warning") != nil {
		t.Error("tiers are exclusive")
	}

	warning := GenerateInsights(eff, models.ContactsAnalysis{Total: 100, WithoutEmail: 15}, users, nil, nil, nil)
	if findInsight(warning, "contacts-without-email-warning") == nil {
		t.Error("15% without email should be a warning")
	}

	clean := GenerateInsights(eff, models.ContactsAnalysis{Total: 100, WithoutEmail: 5}, users, nil, nil, nil)
	if findInsight(clean, "contacts-without-email-critical") != nil || findInsight(clean, "contacts-without-email-warning") != nil {
		t.Error("5% without email should not fire")
	}
}

func TestInsightTitlesCarryCounts(t *testing.T) {
	insights := GenerateInsights(models.Efficiency{}, models.ContactsAnalysis{Total: 100, WithoutEmail: 25}, models.UsersAnalysis{}, nil, nil, nil)
	insight := findInsight(insights, "contacts-without-email-critical")
	if insight == nil {
		t.Fatal("expected the email insight")
	}
	if !strings.Contains(insight.Title, "25") {
		t.Errorf("title %q should contain the count", insight.Title)
	}
	if insight.BusinessImpact == "" || insight.Recommendation == "" {
		t.Error("impact and recommendation are mandatory")
	}
}

func TestUserInsightAnyInactiveWarns(t *testing.T) {
	insights := GenerateInsights(models.Efficiency{}, models.ContactsAnalysis{}, models.UsersAnalysis{Total: 20, Inactive: 1}, nil, nil, nil)
	if findInsight(insights, "users-inactive-warning") == nil {
		t.Error("a single inactive seat should warn")
	}

	insights = GenerateInsights(models.Efficiency{}, models.ContactsAnalysis{}, models.UsersAnalysis{Total: 20, Inactive: 5}, nil, nil, nil)
	if findInsight(insights, "users-inactive-critical") == nil {
		t.Error("25% inactive seats should be critical")
	}
}

func TestDealInsightThresholds(t *testing.T) {
	deals := &models.DealsAnalysis{
		Total:          100,
		WithoutContact: &models.CheckResult{Count: 20, Percentage: 20},  // >15 critical
		WithoutOwner:   &models.CheckResult{Count: 7, Percentage: 7},    // >5 warning
		WithoutPrice:   &models.CheckResult{Count: 2, Percentage: 2},    // under both
		Inactive:       &models.CheckResult{Count: 16, Percentage: 16},  // >15 warning
	}
	insights := GenerateInsights(models.Efficiency{}, models.ContactsAnalysis{}, models.UsersAnalysis{}, deals, nil, nil)

	if findInsight(insights, "deals-without-contact-critical") == nil {
		t.Error("20% without contact should be critical")
	}
	if findInsight(insights, "deals-without-owner-warning") == nil {
		t.Error("7% without owner should warn")
	}
	if findInsight(insights, "deals-without-price-warning") != nil || findInsight(insights, "deals-without-price-critical") != nil {
		t.Error("2% without price should not fire")
	}
	if findInsight(insights, "deals-inactive-warning") == nil {
		t.Error("16% inactive should warn")
	}
}

func TestCompanyInsightsAreWarningOnly(t *testing.T) {
	companies := &models.CompaniesAnalysis{
		Total:         100,
		WithoutDomain: &models.CheckResult{Count: 50, Percentage: 50},
		WithoutOwner:  &models.CheckResult{Count: 30, Percentage: 30},
		Inactive:      &models.CheckResult{Count: 60, Percentage: 60},
	}
	insights := GenerateInsights(models.Efficiency{}, models.ContactsAnalysis{}, models.UsersAnalysis{}, nil, companies, nil)
	for _, insight := range insights {
		if insight.RelatedModule == models.ModuleCompanies && insight.Severity == models.SeverityCritical {
			t.Errorf("company insight %s should never be critical", insight.ID)
		}
	}
	if findInsight(insights, "companies-without-domain") == nil {
		t.Error("50% without domain should warn")
	}
}

func TestToolInsights(t *testing.T) {
	tools := &models.ToolsUsage{
		TotalTools: 8,
		Unused: []models.ToolStatus{
			{Tool: "Workflows", Category: "automation"},
			{Tool: "Tickets", Category: "service"},
			{Tool: "Blog", Category: "marketing"},
		},
	}
	insights := GenerateInsights(models.Efficiency{}, models.ContactsAnalysis{}, models.UsersAnalysis{}, nil, nil, tools)

	if findInsight(insights, "tool-unused-automation") == nil {
		t.Error("unused Workflows should warn")
	}
	if findInsight(insights, "tools-underused") == nil {
		t.Error("three unused tools should produce the info insight")
	}
	// Tickets is not a critical tool, so no per-tool warning for it.
	if findInsight(insights, "tool-unused-service") != nil {
		t.Error("unused Tickets should not produce a per-tool warning")
	}
}

func TestLimitedVisibilityInsight(t *testing.T) {
	eff := models.Efficiency{HasLimitedVisibility: true}
	insights := GenerateInsights(eff, models.ContactsAnalysis{}, models.UsersAnalysis{}, nil, nil, nil)
	if findInsight(insights, "limited-visibility") == nil {
		t.Error("limited visibility should surface as a warning insight")
	}
}
