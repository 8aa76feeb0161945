package engine

import (
	"fmt"

	"github.com/crmscanstack/crmscan-engine/internal/analyzers"
	"github.com/crmscanstack/crmscan-engine/internal/models"
)

// GenerateInsights evaluates the whole rule table. Rules fire independently,
// so one scan can surface several findings per domain. The returned list is
// never empty: a healthy portal gets a single informational insight.
func GenerateInsights(efficiency models.Efficiency, contacts models.ContactsAnalysis, users models.UsersAnalysis, deals *models.DealsAnalysis, companies *models.CompaniesAnalysis, tools *models.ToolsUsage) []models.Insight {
	var insights []models.Insight
	add := func(i models.Insight) { insights = append(insights, i) }

	contactInsights(contacts, add)
	userInsights(users, add)
	if deals != nil {
		dealInsights(*deals, add)
	}
	if companies != nil {
		companyInsights(*companies, add)
	}
	if tools != nil {
		toolInsights(*tools, add)
	}

	if efficiency.HasLimitedVisibility {
		add(models.Insight{
			ID:             "limited-visibility",
			Severity:       models.SeverityWarning,
			Urgency:        models.UrgencyMedium,
			Title:          "Some data could not be inspected",
			Description:    "One or more data sources returned an authorization or rate-limit error during the scan.",
			BusinessImpact: "The score reflects only the data the scan could reach, so real issues may be hidden.",
			Recommendation: "Review the app's granted scopes and re-run the scan once access is restored.",
			RelatedModule:  models.ModuleGlobal,
		})
	}

	if len(insights) == 0 {
		insights = append(insights, models.Insight{
			ID:             "healthy-account",
			Severity:       models.SeverityInfo,
			Urgency:        models.UrgencyLow,
			Title:          "Your CRM is in good shape",
			Description:    "No data quality rule crossed its alert threshold in this scan.",
			BusinessImpact: "Clean data keeps reporting trustworthy and automation effective.",
			Recommendation: "Keep the current data hygiene practices and rescan periodically.",
			RelatedModule:  models.ModuleGlobal,
		})
	}
	return insights
}

func ratio(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

func contactInsights(contacts models.ContactsAnalysis, add func(models.Insight)) {
	if contacts.Total == 0 {
		return
	}

	if pct := ratio(contacts.WithoutEmail, contacts.Total); pct > 20 {
		add(models.Insight{
			ID:             "contacts-without-email-critical",
			Severity:       models.SeverityCritical,
			Urgency:        models.UrgencyHigh,
			Title:          fmt.Sprintf("%d contacts (%.0f%%) have no email address", contacts.WithoutEmail, pct),
			Description:    "A large share of the contact base cannot be reached or deduplicated by email.",
			BusinessImpact: "Email campaigns skip these contacts and duplicate records multiply, inflating list costs.",
			Recommendation: "Run an enrichment pass or a form-based recapture campaign to fill in missing emails.",
			RelatedModule:  models.ModuleContacts,
		})
	} else if pct > 10 {
		add(models.Insight{
			ID:             "contacts-without-email-warning",
			Severity:       models.SeverityWarning,
			Urgency:        models.UrgencyMedium,
			Title:          fmt.Sprintf("%d contacts (%.0f%%) have no email address", contacts.WithoutEmail, pct),
			Description:    "Part of the contact base is missing an email address.",
			BusinessImpact: "These contacts are invisible to email marketing and harder to deduplicate.",
			Recommendation: "Review the affected contacts and complete their email addresses.",
			RelatedModule:  models.ModuleContacts,
		})
	}

	if pct := ratio(contacts.WithoutPhone, contacts.Total); pct > 30 {
		add(models.Insight{
			ID:             "contacts-without-phone",
			Severity:       models.SeverityWarning,
			Urgency:        models.UrgencyLow,
			Title:          fmt.Sprintf("%d contacts (%.0f%%) have no phone number", contacts.WithoutPhone, pct),
			Description:    "Many contacts cannot be reached by phone.",
			BusinessImpact: "Sales follow-up that depends on calls stalls for these contacts.",
			Recommendation: "Capture phone numbers in forms or enrich the records from a data provider.",
			RelatedModule:  models.ModuleContacts,
		})
	}

	if pct := ratio(contacts.WithoutLifecycle, contacts.Total); pct > 20 {
		add(models.Insight{
			ID:             "contacts-without-lifecycle-critical",
			Severity:       models.SeverityCritical,
			Urgency:        models.UrgencyHigh,
			Title:          fmt.Sprintf("%d contacts (%.0f%%) have no lifecycle stage", contacts.WithoutLifecycle, pct),
			Description:    "A large share of contacts is not classified in the funnel.",
			BusinessImpact: "Funnel reporting and stage-based automation ignore these contacts entirely.",
			Recommendation: "Define default lifecycle stages and backfill the unclassified contacts.",
			RelatedModule:  models.ModuleContacts,
		})
	} else if pct > 10 {
		add(models.Insight{
			ID:             "contacts-without-lifecycle-warning",
			Severity:       models.SeverityWarning,
			Urgency:        models.UrgencyMedium,
			Title:          fmt.Sprintf("%d contacts (%.0f%%) have no lifecycle stage", contacts.WithoutLifecycle, pct),
			Description:    "Some contacts are not classified in the funnel.",
			BusinessImpact: "Funnel metrics undercount these contacts and nurture flows skip them.",
			Recommendation: "Assign lifecycle stages to the unclassified contacts.",
			RelatedModule:  models.ModuleContacts,
		})
	}

	if pct := ratio(contacts.Stale, contacts.Total); pct > 25 {
		add(models.Insight{
			ID:             "contacts-stale-critical",
			Severity:       models.SeverityCritical,
			Urgency:        models.UrgencyMedium,
			Title:          fmt.Sprintf("%d contacts (%.0f%%) have had no activity in over a year", contacts.Stale, pct),
			Description:    "A large share of the database has gone cold.",
			BusinessImpact: "Stale records degrade deliverability, skew metrics and raise subscription tier costs.",
			Recommendation: "Launch a re-engagement campaign and archive contacts that stay unresponsive.",
			RelatedModule:  models.ModuleContacts,
		})
	} else if pct > 15 {
		add(models.Insight{
			ID:             "contacts-stale-warning",
			Severity:       models.SeverityWarning,
			Urgency:        models.UrgencyLow,
			Title:          fmt.Sprintf("%d contacts (%.0f%%) have had no activity in over a year", contacts.Stale, pct),
			Description:    "Part of the database has gone cold.",
			BusinessImpact: "Cold records dilute engagement metrics and waste marketing spend.",
			Recommendation: "Segment the inactive contacts and try a re-engagement sequence.",
			RelatedModule:  models.ModuleContacts,
		})
	}
}

func userInsights(users models.UsersAnalysis, add func(models.Insight)) {
	if users.Total == 0 {
		return
	}
	pct := ratio(users.Inactive, users.Total)
	if pct > 20 {
		add(models.Insight{
			ID:             "users-inactive-critical",
			Severity:       models.SeverityCritical,
			Urgency:        models.UrgencyHigh,
			Title:          fmt.Sprintf("%d of %d user seats (%.0f%%) are inactive", users.Inactive, users.Total, pct),
			Description:    "A large share of paid seats belongs to suspended accounts or accounts without email.",
			BusinessImpact: "Unused seats are paid for every month and orphan the records they own.",
			Recommendation: "Deactivate unused seats and reassign their owned records.",
			RelatedModule:  models.ModuleUsers,
		})
	} else if users.Inactive > 0 {
		add(models.Insight{
			ID:             "users-inactive-warning",
			Severity:       models.SeverityWarning,
			Urgency:        models.UrgencyLow,
			Title:          fmt.Sprintf("%d user seats are inactive", users.Inactive),
			Description:    "Some seats belong to suspended accounts or accounts without email.",
			BusinessImpact: "Records owned by inactive users get no follow-up.",
			Recommendation: "Review the inactive seats and reassign their records.",
			RelatedModule:  models.ModuleUsers,
		})
	}
}

func dealInsights(deals models.DealsAnalysis, add func(models.Insight)) {
	if deals.Total == 0 {
		return
	}

	twoTier(add, deals.WithoutContact, 15, 5, models.ModuleDeals, "deals-without-contact",
		"deals have no associated contact",
		"Deals without a contact cannot be followed up and break attribution reporting.",
		"Associate every open deal with at least one contact.")
	twoTier(add, deals.WithoutOwner, 10, 5, models.ModuleDeals, "deals-without-owner",
		"deals have no owner",
		"Unowned deals sit in the pipeline with nobody accountable for closing them.",
		"Assign an owner to every open deal, using round-robin rules if needed.")
	twoTier(add, deals.WithoutPrice, 20, 10, models.ModuleDeals, "deals-without-price",
		"deals have no amount",
		"Deals without an amount make revenue forecasts unreliable.",
		"Require an amount when deals are created and backfill the existing ones.")
	twoTier(add, deals.Inactive, 30, 15, models.ModuleDeals, "deals-inactive",
		"deals have had no activity in 90 days",
		"Stalled deals inflate the pipeline and hide the real forecast.",
		"Review stalled deals and close or re-engage them.")
}

// twoTier emits a critical or warning insight for a percentage-scored check.
func twoTier(add func(models.Insight), check *models.CheckResult, criticalAt, warningAt float64, module models.Module, id, subject, impact, action string) {
	if check == nil {
		return
	}
	title := fmt.Sprintf("%d %s (%.1f%%)", check.Count, subject, check.Percentage)
	switch {
	case check.Percentage > criticalAt:
		add(models.Insight{
			ID:             id + "-critical",
			Severity:       models.SeverityCritical,
			Urgency:        models.UrgencyHigh,
			Title:          title,
			Description:    "The share of affected records crossed the critical threshold.",
			BusinessImpact: impact,
			Recommendation: action,
			RelatedModule:  module,
		})
	case check.Percentage > warningAt:
		add(models.Insight{
			ID:             id + "-warning",
			Severity:       models.SeverityWarning,
			Urgency:        models.UrgencyMedium,
			Title:          title,
			Description:    "The share of affected records is above the recommended level.",
			BusinessImpact: impact,
			Recommendation: action,
			RelatedModule:  module,
		})
	}
}

// warnOnly emits a warning insight when a check crosses its only threshold.
func warnOnly(add func(models.Insight), check *models.CheckResult, warningAt float64, module models.Module, id, subject, impact, action string) {
	if check == nil || check.Percentage <= warningAt {
		return
	}
	add(models.Insight{
		ID:             id,
		Severity:       models.SeverityWarning,
		Urgency:        models.UrgencyMedium,
		Title:          fmt.Sprintf("%d %s (%.1f%%)", check.Count, subject, check.Percentage),
		Description:    "The share of affected records is above the recommended level.",
		BusinessImpact: impact,
		Recommendation: action,
		RelatedModule:  module,
	})
}

func companyInsights(companies models.CompaniesAnalysis, add func(models.Insight)) {
	if companies.Total == 0 {
		return
	}

	warnOnly(add, companies.WithoutDomain, 30, models.ModuleCompanies, "companies-without-domain",
		"companies have no website domain",
		"Companies without a domain miss automatic enrichment and deduplication.",
		"Fill in the website domain for the affected companies.")
	warnOnly(add, companies.WithoutOwner, 20, models.ModuleCompanies, "companies-without-owner",
		"companies have no owner",
		"Unowned companies get no account management attention.",
		"Assign an owner to every active company.")
	warnOnly(add, companies.Inactive, 40, models.ModuleCompanies, "companies-inactive",
		"companies have had no activity in 90 days",
		"Dormant accounts quietly churn without anyone noticing.",
		"Schedule check-ins for accounts with no recent activity.")
}

func toolInsights(tools models.ToolsUsage, add func(models.Insight)) {
	critical := analyzers.CriticalTools()
	for _, tool := range tools.Unused {
		if !critical[tool.Tool] {
			continue
		}
		add(models.Insight{
			ID:             "tool-unused-" + tool.Category,
			Severity:       models.SeverityWarning,
			Urgency:        models.UrgencyMedium,
			Title:          fmt.Sprintf("The %s tool is not being used", tool.Tool),
			Description:    fmt.Sprintf("No objects were found in %s, a core part of the platform.", tool.Tool),
			BusinessImpact: "Paying for the platform while core tools sit idle leaves easy wins on the table.",
			Recommendation: fmt.Sprintf("Set up %s or confirm the team intentionally works without it.", tool.Tool),
			RelatedModule:  models.ModuleTools,
		})
	}
	if len(tools.Unused) >= 3 {
		add(models.Insight{
			ID:             "tools-underused",
			Severity:       models.SeverityInfo,
			Urgency:        models.UrgencyLow,
			Title:          fmt.Sprintf("%d of %d platform tools are unused", len(tools.Unused), tools.TotalTools),
			Description:    "Several platform capabilities hold no objects at all.",
			BusinessImpact: "The subscription's value is capped by how much of the platform is actually adopted.",
			Recommendation: "Review the unused tools and plan adoption for the relevant ones.",
			RelatedModule:  models.ModuleTools,
		})
	}
}
