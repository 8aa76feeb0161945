package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/crmscanstack/crmscan-engine/internal/models"
)

var severityWeight = map[models.Severity]int{
	models.SeverityCritical: 3,
	models.SeverityWarning:  2,
	models.SeverityInfo:     1,
}

var urgencyWeight = map[models.Urgency]int{
	models.UrgencyHigh:   3,
	models.UrgencyMedium: 2,
	models.UrgencyLow:    1,
}

var moduleDisplayNames = map[models.Module]string{
	models.ModuleContacts:  "Contacts",
	models.ModuleUsers:     "Users",
	models.ModuleDeals:     "Deals",
	models.ModuleCompanies: "Companies",
	models.ModuleTools:     "Platform tools",
	models.ModuleGlobal:    "Account",
}

// PriorityScore ranks an insight for sorting. It is never shown to users.
func PriorityScore(insight models.Insight) int {
	score := severityWeight[insight.Severity]*10 + urgencyWeight[insight.Urgency]*5
	if insight.BusinessImpact != "" {
		score += 10
	}
	return score
}

// Prioritize ranks insights, picks the top risks and writes the executive
// narrative. Ties keep the insight generator's original order.
func Prioritize(insights []models.Insight) models.Prioritization {
	summary := models.PrioritizationSummary{TotalInsights: len(insights)}
	for _, insight := range insights {
		switch insight.Severity {
		case models.SeverityCritical:
			summary.Critical++
		case models.SeverityWarning:
			summary.Warning++
		default:
			summary.Info++
		}
		if insight.Urgency == models.UrgencyHigh &&
			(insight.Severity == models.SeverityCritical || insight.Severity == models.SeverityWarning) {
			summary.UrgentCount++
		}
	}
	switch {
	case summary.Critical > 0:
		summary.HighestSeverity = models.SeverityCritical
	case summary.Warning > 0:
		summary.HighestSeverity = models.SeverityWarning
	default:
		summary.HighestSeverity = models.SeverityInfo
	}

	ranked := make([]models.PrioritizedInsight, 0, len(insights))
	for _, insight := range insights {
		ranked = append(ranked, models.PrioritizedInsight{Insight: insight, PriorityScore: PriorityScore(insight)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PriorityScore > ranked[j].PriorityScore
	})

	topRisks := make([]models.PrioritizedInsight, 0, 5)
	for _, item := range ranked {
		if item.Severity == models.SeverityInfo {
			continue
		}
		topRisks = append(topRisks, item)
		if len(topRisks) == 5 {
			break
		}
	}

	return models.Prioritization{
		Summary:             summary,
		TopRisks:            topRisks,
		PrioritizedInsights: ranked,
		ExecutiveSummary:    executiveSummary(summary, ranked),
		NextStep:            nextStep(summary, topRisks),
	}
}

func executiveSummary(summary models.PrioritizationSummary, ranked []models.PrioritizedInsight) string {
	if summary.Critical == 0 && summary.Warning == 0 {
		return "The scan found no issues above alert thresholds. The CRM is in good shape; keep the current data hygiene practices and rescan periodically to catch regressions early."
	}

	seen := make(map[models.Module]bool)
	var modules []string
	for _, item := range ranked {
		if item.Severity == models.SeverityInfo || seen[item.RelatedModule] {
			continue
		}
		seen[item.RelatedModule] = true
		modules = append(modules, moduleDisplayNames[item.RelatedModule])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The scan surfaced %d finding(s): %d critical and %d warning(s)",
		summary.Critical+summary.Warning, summary.Critical, summary.Warning)
	if summary.UrgentCount > 0 {
		fmt.Fprintf(&b, ", of which %d need urgent attention", summary.UrgentCount)
	}
	fmt.Fprintf(&b, ". Affected areas: %s.", strings.Join(modules, ", "))
	if summary.Critical > 0 {
		b.WriteString(" Address the critical findings first; they directly affect revenue operations.")
	} else {
		b.WriteString(" None of the findings is critical, but resolving them will lift the overall score.")
	}
	return b.String()
}

func nextStep(summary models.PrioritizationSummary, topRisks []models.PrioritizedInsight) *string {
	point := func(s string) *string { return &s }

	switch {
	case summary.Critical >= 3:
		return point("Multiple critical issues detected. Schedule a full CRM audit this week and assign an owner to drive the cleanup.")
	case summary.Critical > 0:
		if len(topRisks) > 0 {
			title := strings.ToLower(topRisks[0].Title)
			switch {
			case strings.Contains(title, "owner"):
				return point("Start by assigning owners to unowned records so every record has someone accountable.")
			case strings.Contains(title, "contact"):
				return point("Start by associating deals with their contacts to restore pipeline attribution.")
			case strings.Contains(title, "email"):
				return point("Start by completing missing email addresses so the contact base is reachable again.")
			case strings.Contains(title, "lifecycle"):
				return point("Start by assigning lifecycle stages so funnel reporting covers the whole base.")
			case strings.Contains(title, "price"), strings.Contains(title, "amount"):
				return point("Start by filling in deal amounts so the revenue forecast is reliable.")
			}
		}
		return point("Resolve the critical finding at the top of the list before anything else.")
	case summary.UrgentCount >= 2:
		return point("Several findings are marked urgent. Review the top risks list and plan fixes this sprint.")
	case summary.Warning >= 3:
		return point("A guided optimization pass over the flagged areas would lift the score with modest effort.")
	default:
		return nil
	}
}
