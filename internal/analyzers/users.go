package analyzers

import (
	"github.com/crmscanstack/crmscan-engine/internal/models"
)

// ClassifyUsers scores the portal's seats. A seat is inactive when it is
// suspended or has no email.
func ClassifyUsers(users []models.User, visibilityError bool) models.UsersAnalysis {
	result := models.UsersAnalysis{
		Total:             len(users),
		VisibilityError:   visibilityError,
		LimitedVisibility: visibilityError,
	}

	if result.Total == 0 {
		result.Score = 50
		result.LimitedVisibility = false
		return result
	}

	for _, u := range users {
		if u.Suspended || u.Email == "" {
			result.Inactive++
		}
	}

	score := 100
	ratio := float64(result.Inactive) / float64(result.Total)
	if ratio > 0.2 {
		score -= 20
	}
	if ratio > 0.4 {
		score -= 30
	}
	result.Score = clampScore(score)
	return result
}
