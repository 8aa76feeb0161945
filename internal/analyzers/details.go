package analyzers

import (
	"fmt"
	"strings"
	"time"

	"github.com/crmscanstack/crmscan-engine/internal/models"
	"github.com/crmscanstack/crmscan-engine/internal/utils"
)

// ContactDetails expands the contact checks into concrete affected records
// for the drill-down view. Counts are authoritative; Items hold at most
// PreviewLimit examples each.
func ContactDetails(portalID string, records []models.Record, visibilityError bool, now time.Time) models.ObjectDetails {
	withoutEmail := newCheck()
	withoutPhone := newCheck()
	withoutLifecycle := newCheck()
	stale := newCheck()

	staleCutoff := now.Add(-contactStaleWindow)
	for _, rec := range records {
		if rec.Property("email") == "" {
			withoutEmail.add(preview("contact", portalID, rec, "No email address"))
		}
		if rec.Property("phone") == "" {
			withoutPhone.add(preview("contact", portalID, rec, "No phone number"))
		}
		if rec.Property("lifecyclestage") == "" {
			withoutLifecycle.add(preview("contact", portalID, rec, "No lifecycle stage"))
		}
		if utils.OlderThan(rec.Property("lastmodifieddate"), staleCutoff) {
			stale.add(preview("contact", portalID, rec, "No activity in over a year"))
		}
	}

	total := len(records)
	return models.ObjectDetails{
		ObjectType: "contact",
		Total:      total,
		Issues: map[string]*models.CheckResult{
			"withoutEmail":     withoutEmail.finish(total),
			"withoutPhone":     withoutPhone.finish(total),
			"withoutLifecycle": withoutLifecycle.finish(total),
			"stale":            stale.finish(total),
		},
		LimitedVisibility: visibilityError,
	}
}

// UserDetails expands the inactive-seat check into concrete affected users.
// Seat management has no per-user record page, so every item links to the
// portal's user settings.
func UserDetails(portalID string, users []models.User, visibilityError bool) models.ObjectDetails {
	inactive := newCheck()
	settingsURL := fmt.Sprintf("https://app.hubspot.com/settings/%s/users", portalID)

	for _, u := range users {
		if !u.Suspended && u.Email != "" {
			continue
		}
		name := strings.TrimSpace(u.FirstName + " " + u.LastName)
		inactive.add(models.ObjectPreview{
			ID:             u.ID,
			ObjectType:     "user",
			DisplayName:    firstNonEmpty(name, u.Email, "User "+u.ID),
			SecondaryLabel: u.Email,
			Reason:         "Seat is suspended or has no email",
			HubSpotURL:     settingsURL,
		})
	}

	total := len(users)
	return models.ObjectDetails{
		ObjectType: "user",
		Total:      total,
		Issues: map[string]*models.CheckResult{
			"inactive": inactive.finish(total),
		},
		LimitedVisibility: visibilityError,
	}
}

// DealDetails projects a deals analysis into the drill-down shape.
func DealDetails(deals models.DealsAnalysis) models.ObjectDetails {
	return models.ObjectDetails{
		ObjectType: "deal",
		Total:      deals.Total,
		Issues: map[string]*models.CheckResult{
			"withoutContact": deals.WithoutContact,
			"withoutOwner":   deals.WithoutOwner,
			"withoutPrice":   deals.WithoutPrice,
			"inactive":       deals.Inactive,
		},
		LimitedVisibility: deals.LimitedVisibility,
	}
}

// CompanyDetails projects a companies analysis into the drill-down shape.
func CompanyDetails(companies models.CompaniesAnalysis) models.ObjectDetails {
	return models.ObjectDetails{
		ObjectType: "company",
		Total:      companies.Total,
		Issues: map[string]*models.CheckResult{
			"withoutDomain": companies.WithoutDomain,
			"withoutOwner":  companies.WithoutOwner,
			"withoutPhone":  companies.WithoutPhone,
			"inactive":      companies.Inactive,
		},
		LimitedVisibility: companies.LimitedVisibility,
	}
}
