package analyzers

import (
	"time"

	"github.com/crmscanstack/crmscan-engine/internal/models"
	"github.com/crmscanstack/crmscan-engine/internal/utils"
)

const contactStaleWindow = 365 * 24 * time.Hour // last touch more than a year ago

// ClassifyContacts scores a contact sample. It is a pure function of its
// inputs; the reference time is injected so results are reproducible.
func ClassifyContacts(records []models.Record, visibilityError bool, now time.Time) models.ContactsAnalysis {
	result := models.ContactsAnalysis{
		Total:             len(records),
		VisibilityError:   visibilityError,
		LimitedVisibility: visibilityError,
	}

	if result.Total == 0 {
		// Fixed baseline for an empty portal, not a computed score.
		// Empty-but-healthy is not a visibility problem.
		result.Score = 70
		result.LimitedVisibility = false
		return result
	}

	staleCutoff := now.Add(-contactStaleWindow)
	for _, rec := range records {
		if rec.Property("email") == "" {
			result.WithoutEmail++
		}
		if rec.Property("phone") == "" {
			result.WithoutPhone++
		}
		if rec.Property("lifecyclestage") == "" {
			result.WithoutLifecycle++
		}
		if utils.OlderThan(rec.Property("lastmodifieddate"), staleCutoff) {
			result.Stale++
		}
	}

	score := 100
	total := float64(result.Total)
	if float64(result.WithoutEmail)/total > 0.2 {
		score -= 15
	}
	if float64(result.WithoutLifecycle)/total > 0.3 {
		score -= 20
	}
	if float64(result.Stale)/total > 0.25 {
		score -= 15
	}
	if visibilityError {
		score -= 10
	}
	result.Score = clampScore(score)
	return result
}
