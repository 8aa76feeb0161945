package repo

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/crmscanstack/crmscan-engine/internal/models"
)

// ScanSnapshot is one persisted scan outcome. At most one row exists per
// portal per calendar day; rescans on the same day overwrite it.
type ScanSnapshot struct {
	ID                   uint   `gorm:"primaryKey"`
	PortalID             string `gorm:"size:32;uniqueIndex:idx_portal_day,priority:1"`
	ScanDate             string `gorm:"size:10;uniqueIndex:idx_portal_day,priority:2"`
	EfficiencyScore      int
	EfficiencyLevel      string `gorm:"size:32"`
	HasLimitedVisibility bool
	ContactsTotal        int
	UsersTotal           int
	DealsTotal           int
	CompaniesTotal       int
	CriticalInsights     int
	WarningInsights      int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Cohort buckets a portal by the size of its contact base.
func Cohort(contactsTotal int) string {
	switch {
	case contactsTotal < 1000:
		return "small"
	case contactsTotal <= 10000:
		return "medium"
	default:
		return "large"
	}
}

func cohortBounds(cohort string) (min, max int) {
	switch cohort {
	case "small":
		return 0, 999
	case "medium":
		return 1000, 10000
	default:
		return 10001, math.MaxInt32
	}
}

// HistoryRepo persists and queries scan snapshots.
type HistoryRepo struct {
	db *gorm.DB
}

func NewHistoryRepo(db *gorm.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// SaveSnapshot upserts today's snapshot for the portal.
func (r *HistoryRepo) SaveSnapshot(ctx context.Context, snap models.Snapshot, now time.Time) error {
	row := ScanSnapshot{
		PortalID:             snap.PortalID,
		ScanDate:             now.UTC().Format("2006-01-02"),
		EfficiencyScore:      snap.EfficiencyScore,
		EfficiencyLevel:      snap.EfficiencyLevel,
		HasLimitedVisibility: snap.HasLimitedVisibility,
		ContactsTotal:        snap.ContactsTotal,
		UsersTotal:           snap.UsersTotal,
		DealsTotal:           snap.DealsTotal,
		CompaniesTotal:       snap.CompaniesTotal,
		CriticalInsights:     snap.CriticalInsights,
		WarningInsights:      snap.WarningInsights,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "portal_id"}, {Name: "scan_date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"efficiency_score", "efficiency_level", "has_limited_visibility",
				"contacts_total", "users_total", "deals_total", "companies_total",
				"critical_insights", "warning_insights", "updated_at",
			}),
		}).
		Create(&row).Error
}

// List returns the portal's most recent snapshots, newest first.
func (r *HistoryRepo) List(ctx context.Context, portalID string, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []ScanSnapshot
	err := r.db.WithContext(ctx).
		Where("portal_id = ?", portalID).
		Order("scan_date DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]models.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, models.HistoryEntry{
			EfficiencyScore:  row.EfficiencyScore,
			CriticalInsights: row.CriticalInsights,
			WarningInsights:  row.WarningInsights,
			CreatedAt:        row.UpdatedAt,
		})
	}
	return entries, nil
}

// CohortAverages aggregates the last 30 days of snapshots across portals of
// the same size cohort.
func (r *HistoryRepo) CohortAverages(ctx context.Context, cohort string, now time.Time) (models.BenchmarkAverages, error) {
	minContacts, maxContacts := cohortBounds(cohort)
	since := now.AddDate(0, 0, -30).UTC().Format("2006-01-02")

	var agg struct {
		AvgEfficiency float64
		AvgCritical   float64
		AvgWarning    float64
		Count         int64
	}
	err := r.db.WithContext(ctx).
		Model(&ScanSnapshot{}).
		Select("COALESCE(AVG(efficiency_score),0) AS avg_efficiency, COALESCE(AVG(critical_insights),0) AS avg_critical, COALESCE(AVG(warning_insights),0) AS avg_warning, COUNT(*) AS count").
		Where("scan_date >= ? AND contacts_total BETWEEN ? AND ?", since, minContacts, maxContacts).
		Scan(&agg).Error
	if err != nil {
		return models.BenchmarkAverages{}, err
	}

	return models.BenchmarkAverages{
		AvgEfficiency:       int(math.Round(agg.AvgEfficiency)),
		AvgCriticalIssues:   int(math.Round(agg.AvgCritical)),
		AvgWarningIssues:    int(math.Round(agg.AvgWarning)),
		SnapshotsConsidered: int(agg.Count),
	}, nil
}
