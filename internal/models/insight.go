package models

// Severity classifies how damaging a finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Urgency classifies how soon a finding should be acted on. The wire values
// are kept as shipped to existing consumers.
type Urgency string

const (
	UrgencyHigh   Urgency = "alta"
	UrgencyMedium Urgency = "media"
	UrgencyLow    Urgency = "baja"
)

// Module identifies the CRM area an insight belongs to.
type Module string

const (
	ModuleContacts  Module = "contacts"
	ModuleUsers     Module = "users"
	ModuleDeals     Module = "deals"
	ModuleCompanies Module = "companies"
	ModuleTools     Module = "tools"
	ModuleGlobal    Module = "global"
)

// Insight is a single structured finding. Insights are recomputed on every
// scan and never persisted individually.
type Insight struct {
	ID             string   `json:"id"`
	Severity       Severity `json:"severity"`
	Urgency        Urgency  `json:"urgency"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	BusinessImpact string   `json:"businessImpact,omitempty"`
	Recommendation string   `json:"recommendation"`
	RelatedModule  Module   `json:"relatedModule"`
}

// PrioritizedInsight pairs an insight with its computed priority score.
type PrioritizedInsight struct {
	Insight
	PriorityScore int `json:"priorityScore"`
}

// PrioritizationSummary tallies insights by severity.
type PrioritizationSummary struct {
	TotalInsights   int      `json:"totalInsights"`
	Critical        int      `json:"critical"`
	Warning         int      `json:"warning"`
	Info            int      `json:"info"`
	HighestSeverity Severity `json:"highestSeverity"`
	UrgentCount     int      `json:"urgentCount"`
}

// Prioritization ranks insights and derives the executive narrative.
type Prioritization struct {
	Summary             PrioritizationSummary `json:"summary"`
	TopRisks            []PrioritizedInsight  `json:"topRisks"`
	PrioritizedInsights []PrioritizedInsight  `json:"prioritizedInsights"`
	ExecutiveSummary    string                `json:"executiveSummary"`
	NextStep            *string               `json:"nextStep"`
}
