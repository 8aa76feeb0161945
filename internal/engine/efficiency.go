package engine

import (
	"math"

	"github.com/crmscanstack/crmscan-engine/internal/models"
)

// Composite weights. Each set must sum to 1.0 exactly.
const (
	weightContactsFull  = 0.30
	weightUsersFull     = 0.20
	weightDealsFull     = 0.30
	weightCompaniesFull = 0.20

	weightContactsBasic = 0.60
	weightUsersBasic    = 0.40

	visibilityPenalty = 0.85
)

// DealsScore collapses the deal checks into one number: the unweighted mean
// of whichever sub-scores are present. An empty portal scores 100.
func DealsScore(deals models.DealsAnalysis) int {
	if deals.Total == 0 {
		return 100
	}
	return checkAverage(deals.WithoutContact, deals.WithoutOwner, deals.WithoutPrice, deals.Inactive)
}

// CompaniesScore mirrors DealsScore for the company checks.
func CompaniesScore(companies models.CompaniesAnalysis) int {
	if companies.Total == 0 {
		return 100
	}
	return checkAverage(companies.WithoutDomain, companies.WithoutOwner, companies.WithoutPhone, companies.Inactive)
}

func checkAverage(checks ...*models.CheckResult) int {
	sum, present := 0, 0
	for _, c := range checks {
		if c == nil {
			continue
		}
		sum += c.Score
		present++
	}
	if present == 0 {
		return 100
	}
	return int(math.Round(float64(sum) / float64(present)))
}

// ComposeEfficiency computes the portal health score. With deals and
// companies supplied it uses the four-domain weighting; passing nil for both
// selects the reduced contacts-and-users variant.
func ComposeEfficiency(contacts models.ContactsAnalysis, users models.UsersAnalysis, deals *models.DealsAnalysis, companies *models.CompaniesAnalysis) models.Efficiency {
	var raw float64
	breakdown := map[string]int{
		"contacts": contacts.Score,
		"users":    users.Score,
	}
	limited := contacts.VisibilityError || users.VisibilityError

	if deals == nil && companies == nil {
		raw = float64(contacts.Score)*weightContactsBasic + float64(users.Score)*weightUsersBasic
	} else {
		dealsScore, companiesScore := 100, 100
		if deals != nil {
			dealsScore = DealsScore(*deals)
			limited = limited || deals.VisibilityError
		}
		if companies != nil {
			companiesScore = CompaniesScore(*companies)
			limited = limited || companies.VisibilityError
		}
		breakdown["deals"] = dealsScore
		breakdown["companies"] = companiesScore
		raw = float64(contacts.Score)*weightContactsFull +
			float64(users.Score)*weightUsersFull +
			float64(dealsScore)*weightDealsFull +
			float64(companiesScore)*weightCompaniesFull
	}

	if limited {
		raw *= visibilityPenalty
	}

	score := int(math.Round(raw))
	if score < 40 {
		score = 40
	}
	if score > 100 {
		score = 100
	}

	return models.Efficiency{
		Score:                score,
		Level:                levelFor(score),
		HasLimitedVisibility: limited,
		Breakdown:            breakdown,
	}
}

func levelFor(score int) string {
	switch {
	case score >= 90:
		return "Excellent"
	case score >= 75:
		return "Good"
	case score >= 60:
		return "Needs Attention"
	default:
		return "Critical"
	}
}
