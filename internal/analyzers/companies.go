package analyzers

import (
	"time"

	"github.com/crmscanstack/crmscan-engine/internal/models"
	"github.com/crmscanstack/crmscan-engine/internal/utils"
)

// ClassifyCompanies runs the four company checks over a sample. No network
// calls are involved, so unlike deals this is a pure function.
func ClassifyCompanies(portalID string, records []models.Record, visibilityError bool, now time.Time) models.CompaniesAnalysis {
	result := models.CompaniesAnalysis{
		Total:             len(records),
		VisibilityError:   visibilityError,
		LimitedVisibility: visibilityError,
	}
	if result.Total == 0 {
		result.LimitedVisibility = false
		return result
	}

	withoutDomain := newCheck()
	withoutOwner := newCheck()
	withoutPhone := newCheck()
	inactive := newCheck()
	cutoff := now.Add(-inactivityWindow)
	for _, rec := range records {
		// A missing domain is a data quality issue, not a visibility one.
		if rec.Property("domain") == "" {
			withoutDomain.add(preview("company", portalID, rec, "No website domain"))
		}
		if rec.Property("hubspot_owner_id") == "" {
			withoutOwner.add(preview("company", portalID, rec, "No owner assigned"))
		}
		if rec.Property("phone") == "" {
			withoutPhone.add(preview("company", portalID, rec, "No phone number"))
		}
		lastTouch := firstNonEmpty(rec.Property("notes_last_updated"), rec.Property("hs_lastmodifieddate"))
		if utils.OlderThan(lastTouch, cutoff) {
			inactive.add(preview("company", portalID, rec, "No activity in the last 90 days"))
		}
	}

	result.WithoutDomain = withoutDomain.finish(result.Total)
	result.WithoutOwner = withoutOwner.finish(result.Total)
	result.WithoutPhone = withoutPhone.finish(result.Total)
	result.Inactive = inactive.finish(result.Total)
	return result
}
