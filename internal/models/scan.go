package models

import "time"

// Record is a raw CRM object sample as returned by the HubSpot objects API.
type Record struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// Property returns a named property or the empty string.
func (r Record) Property(name string) string {
	if r.Properties == nil {
		return ""
	}
	return r.Properties[name]
}

// User is a portal seat from the settings users API.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Suspended bool   `json:"suspended"`
	Archived  bool   `json:"archived"`
}

// ContactsAnalysis is the contacts domain result.
type ContactsAnalysis struct {
	Total             int  `json:"total"`
	WithoutEmail      int  `json:"withoutEmail"`
	WithoutPhone      int  `json:"withoutPhone"`
	WithoutLifecycle  int  `json:"withoutLifecycle"`
	Stale             int  `json:"stale"`
	Score             int  `json:"score"`
	LimitedVisibility bool `json:"limitedVisibility"`
	VisibilityError   bool `json:"visibilityError"`
}

// UsersAnalysis is the portal users domain result.
type UsersAnalysis struct {
	Total             int  `json:"total"`
	Inactive          int  `json:"inactive"`
	Score             int  `json:"score"`
	LimitedVisibility bool `json:"limitedVisibility"`
	VisibilityError   bool `json:"visibilityError"`
}

// ObjectPreview is a human-readable reference to one affected CRM record.
type ObjectPreview struct {
	ID             string `json:"id"`
	ObjectType     string `json:"objectType"`
	DisplayName    string `json:"displayName"`
	SecondaryLabel string `json:"secondaryLabel,omitempty"`
	Reason         string `json:"reason"`
	HubSpotURL     string `json:"hubspotUrl,omitempty"`
}

// CheckResult carries one issue predicate's outcome for deals or companies.
// Items holds at most PreviewLimit records; Count is the authoritative figure.
type CheckResult struct {
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
	Score      int             `json:"score"`
	Items      []ObjectPreview `json:"items"`
}

// PreviewLimit caps how many affected records ride along in scan payloads.
const PreviewLimit = 5

// DealsAnalysis is the deals domain result. Absent checks are excluded from
// the domain average rather than treated as zero.
type DealsAnalysis struct {
	Total             int          `json:"total"`
	WithoutContact    *CheckResult `json:"withoutContact,omitempty"`
	WithoutOwner      *CheckResult `json:"withoutOwner,omitempty"`
	WithoutPrice      *CheckResult `json:"withoutPrice,omitempty"`
	Inactive          *CheckResult `json:"inactive,omitempty"`
	LimitedVisibility bool         `json:"limitedVisibility"`
	VisibilityError   bool         `json:"visibilityError"`
}

// CompaniesAnalysis is the companies domain result.
type CompaniesAnalysis struct {
	Total             int          `json:"total"`
	WithoutDomain     *CheckResult `json:"withoutDomain,omitempty"`
	WithoutOwner      *CheckResult `json:"withoutOwner,omitempty"`
	WithoutPhone      *CheckResult `json:"withoutPhone,omitempty"`
	Inactive          *CheckResult `json:"inactive,omitempty"`
	LimitedVisibility bool         `json:"limitedVisibility"`
	VisibilityError   bool         `json:"visibilityError"`
}

// ObjectDetails expands one object type's issues with concrete affected
// records, for the drill-down views.
type ObjectDetails struct {
	ObjectType        string                  `json:"objectType"`
	Total             int                     `json:"total"`
	Issues            map[string]*CheckResult `json:"issues"`
	LimitedVisibility bool                    `json:"limitedVisibility"`
}

// ToolStatus reports one HubSpot tool probe.
type ToolStatus struct {
	Tool     string `json:"tool"`
	Category string `json:"category"`
	Reason   string `json:"reason,omitempty"`
}

// ToolsUsage summarises which portal tools hold any objects at all.
type ToolsUsage struct {
	Unused            []ToolStatus `json:"unused"`
	InUse             []ToolStatus `json:"inUse"`
	TotalTools        int          `json:"totalTools"`
	UsagePercentage   float64      `json:"usagePercentage"`
	LimitedVisibility bool         `json:"limitedVisibility"`
}

// Efficiency is the composite portal health score.
type Efficiency struct {
	Score                int            `json:"score"`
	Level                string         `json:"level"`
	HasLimitedVisibility bool           `json:"hasLimitedVisibility"`
	Breakdown            map[string]int `json:"breakdown,omitempty"`
}

// TrafficLight maps a score onto a green/yellow/red status for the UI.
type TrafficLight struct {
	ObjectType string `json:"objectType"`
	Score      int    `json:"score"`
	Status     string `json:"status"`
	Label      string `json:"label"`
}

// BenchmarkAverages holds cohort-wide means from stored snapshots.
type BenchmarkAverages struct {
	AvgEfficiency       int `json:"avgEfficiency"`
	AvgCriticalIssues   int `json:"avgCriticalInsights"`
	AvgWarningIssues    int `json:"avgWarningInsights"`
	SnapshotsConsidered int `json:"snapshotsConsidered"`
}

// Benchmark compares the current scan against its size cohort.
type Benchmark struct {
	Cohort     string            `json:"cohort"`
	Benchmark  BenchmarkAverages `json:"benchmark"`
	Comparison struct {
		EfficiencyDelta int `json:"efficiencyDelta"`
	} `json:"comparison"`
}

// ScanMeta carries timing information for one scan invocation.
type ScanMeta struct {
	DurationMs int64 `json:"durationMs"`
}

// ScanResult is the full payload returned to the HTTP layer and consumed by
// the export and history collaborators.
type ScanResult struct {
	Version        string                  `json:"version"`
	PortalID       string                  `json:"portalId"`
	Efficiency     Efficiency              `json:"efficiency"`
	Benchmark      *Benchmark              `json:"benchmark,omitempty"`
	Prioritization Prioritization          `json:"prioritization"`
	Insights       []Insight               `json:"insights"`
	Contacts       ContactsAnalysis        `json:"contacts"`
	Users          UsersAnalysis           `json:"users"`
	Deals          DealsAnalysis           `json:"deals"`
	Companies      CompaniesAnalysis       `json:"companies"`
	Tools          *ToolsUsage             `json:"tools,omitempty"`
	TrafficLights  map[string]TrafficLight `json:"trafficLights,omitempty"`
	Meta           ScanMeta                `json:"meta"`
	GeneratedAt    time.Time               `json:"generatedAt"`
}

// Snapshot is the flat scalar projection persisted by the history repository.
type Snapshot struct {
	PortalID             string
	EfficiencyScore      int
	EfficiencyLevel      string
	HasLimitedVisibility bool
	ContactsTotal        int
	UsersTotal           int
	DealsTotal           int
	CompaniesTotal       int
	CriticalInsights     int
	WarningInsights      int
}

// HistoryEntry is one row of the portal's scan history as served to the UI.
type HistoryEntry struct {
	EfficiencyScore  int       `json:"efficiencyScore"`
	CriticalInsights int       `json:"criticalInsights"`
	WarningInsights  int       `json:"warningInsights"`
	CreatedAt        time.Time `json:"createdAt"`
}
