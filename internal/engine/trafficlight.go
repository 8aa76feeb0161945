package engine

import (
	"math"

	"github.com/crmscanstack/crmscan-engine/internal/models"
)

// TrafficLights maps each domain score onto a green/yellow/red status for
// the dashboard. The overall light is the rounded mean of the domain light
// scores rather than the weighted composite, so it reads as a plain summary
// of the individual lights.
func TrafficLights(contacts models.ContactsAnalysis, users models.UsersAnalysis, deals *models.DealsAnalysis, companies *models.CompaniesAnalysis) map[string]models.TrafficLight {
	lights := map[string]models.TrafficLight{
		"contacts": trafficLight("contacts", contacts.Score),
		"users":    trafficLight("users", users.Score),
	}
	if deals != nil {
		lights["deals"] = trafficLight("deals", DealsScore(*deals))
	}
	if companies != nil {
		lights["companies"] = trafficLight("companies", CompaniesScore(*companies))
	}

	sum := 0
	for _, light := range lights {
		sum += light.Score
	}
	overall := 100
	if len(lights) > 0 {
		overall = int(math.Round(float64(sum) / float64(len(lights))))
	}
	lights["overall"] = trafficLight("overall", overall)
	return lights
}

func trafficLight(objectType string, score int) models.TrafficLight {
	light := models.TrafficLight{ObjectType: objectType, Score: score}
	switch {
	case score >= 80:
		light.Status = "green"
		light.Label = "Healthy"
	case score >= 50:
		light.Status = "yellow"
		light.Label = "Needs attention"
	default:
		light.Status = "red"
		light.Label = "At risk"
	}
	return light
}
