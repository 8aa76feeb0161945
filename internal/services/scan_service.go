package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/crmscanstack/crmscan-engine/internal/analyzers"
	"github.com/crmscanstack/crmscan-engine/internal/cache"
	"github.com/crmscanstack/crmscan-engine/internal/engine"
	"github.com/crmscanstack/crmscan-engine/internal/metrics"
	"github.com/crmscanstack/crmscan-engine/internal/models"
	"github.com/crmscanstack/crmscan-engine/internal/repo"
	"github.com/crmscanstack/crmscan-engine/internal/utils"
)

// ScanVersion tags result payloads so clients can detect format changes.
const ScanVersion = "3.0"

// CRMClient is everything the scan needs from HubSpot.
type CRMClient interface {
	FetchContacts(ctx context.Context, portalID string) ([]models.Record, error)
	FetchUsers(ctx context.Context, portalID string) ([]models.User, error)
	FetchDeals(ctx context.Context, portalID string) ([]models.Record, error)
	FetchCompanies(ctx context.Context, portalID string) ([]models.Record, error)
	DealHasContacts(ctx context.Context, portalID, dealID string) (bool, error)
	ProbeTool(ctx context.Context, portalID, path string) (bool, error)
}

// HistoryStore persists scan snapshots and answers benchmark queries.
type HistoryStore interface {
	SaveSnapshot(ctx context.Context, snap models.Snapshot, now time.Time) error
	List(ctx context.Context, portalID string, limit int) ([]models.HistoryEntry, error)
	CohortAverages(ctx context.Context, cohort string, now time.Time) (models.BenchmarkAverages, error)
}

// ScanService orchestrates a full portal scan: concurrent domain analysis,
// composite scoring, insight generation and persistence.
type ScanService struct {
	logger    *slog.Logger
	crm       CRMClient
	cache     cache.Provider
	history   HistoryStore
	cacheTTL  time.Duration
	workers   int
	latencies *utils.LatencyTracker

	now func() time.Time
}

func NewScanService(logger *slog.Logger, crm CRMClient, provider cache.Provider, history HistoryStore, cacheTTL time.Duration, workers int) *ScanService {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		provider = cache.NewNoopProvider()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &ScanService{
		logger:    logger,
		crm:       crm,
		cache:     provider,
		history:   history,
		cacheTTL:  cacheTTL,
		workers:   workers,
		latencies: utils.NewLatencyTracker(1024),
		now:       time.Now,
	}
}

func cacheKey(portalID string) string { return "scan:" + portalID }

// Scan runs the full analysis for one portal. It never fails on CRM errors;
// inaccessible domains degrade to neutral results with visibility flags.
func (s *ScanService) Scan(ctx context.Context, portalID string) (*models.ScanResult, error) {
	if cached, err := s.cache.Get(ctx, cacheKey(portalID)); err == nil {
		var result models.ScanResult
		if err := json.Unmarshal(cached, &result); err == nil {
			metrics.ObserveScan(0, metrics.OutcomeCached)
			s.logger.Debug("scan served from cache", slog.String("portal_id", portalID))
			return &result, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("cache read failed", slog.Any("error", err))
	}

	start := s.now()
	result := s.runScan(ctx, portalID, start)
	duration := time.Since(start)

	result.Meta.DurationMs = duration.Milliseconds()
	result.GeneratedAt = start.UTC()

	s.latencies.Observe(duration)
	metrics.ObserveScan(duration, metrics.OutcomeSuccess)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("scan latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}

	if payload, err := json.Marshal(result); err == nil {
		if err := s.cache.Set(ctx, cacheKey(portalID), payload, s.cacheTTL); err != nil {
			s.logger.Warn("cache write failed", slog.Any("error", err))
		}
	}

	s.persistSnapshot(result)
	return result, nil
}

func (s *ScanService) runScan(ctx context.Context, portalID string, now time.Time) *models.ScanResult {
	var (
		wg        sync.WaitGroup
		contacts  models.ContactsAnalysis
		users     models.UsersAnalysis
		deals     models.DealsAnalysis
		companies models.CompaniesAnalysis
		tools     models.ToolsUsage
	)

	// The five collectors run independently. A failure in one must not
	// cancel or corrupt the others, so each keeps its own error handling.
	wg.Add(5)
	go func() {
		defer wg.Done()
		records, err := s.crm.FetchContacts(ctx, portalID)
		contacts = analyzers.ClassifyContacts(records, s.noteFetchError("contacts", portalID, err), now)
	}()
	go func() {
		defer wg.Done()
		seats, err := s.crm.FetchUsers(ctx, portalID)
		users = analyzers.ClassifyUsers(seats, s.noteFetchError("users", portalID, err))
	}()
	go func() {
		defer wg.Done()
		records, err := s.crm.FetchDeals(ctx, portalID)
		deals = analyzers.AnalyzeDeals(ctx, s.crm, portalID, records, s.noteFetchError("deals", portalID, err), now, s.workers)
	}()
	go func() {
		defer wg.Done()
		records, err := s.crm.FetchCompanies(ctx, portalID)
		companies = analyzers.ClassifyCompanies(portalID, records, s.noteFetchError("companies", portalID, err), now)
	}()
	go func() {
		defer wg.Done()
		tools = analyzers.AnalyzeTools(ctx, s.crm, portalID)
	}()
	wg.Wait()

	efficiency := engine.ComposeEfficiency(contacts, users, &deals, &companies)
	insights := engine.GenerateInsights(efficiency, contacts, users, &deals, &companies, &tools)
	prioritization := engine.Prioritize(insights)

	result := &models.ScanResult{
		Version:        ScanVersion,
		PortalID:       portalID,
		Efficiency:     efficiency,
		Prioritization: prioritization,
		Insights:       insights,
		Contacts:       contacts,
		Users:          users,
		Deals:          deals,
		Companies:      companies,
		Tools:          &tools,
		TrafficLights:  engine.TrafficLights(contacts, users, &deals, &companies),
	}
	result.Benchmark = s.benchmark(ctx, result)
	return result
}

// noteFetchError converts a fetch failure into the domain's visibility flag.
func (s *ScanService) noteFetchError(domain, portalID string, err error) bool {
	if err == nil {
		return false
	}
	metrics.ObserveVisibilityError(domain)
	s.logger.Warn("domain fetch degraded",
		slog.String("domain", domain),
		slog.String("portal_id", portalID),
		slog.Any("error", err))
	return true
}

func (s *ScanService) benchmark(ctx context.Context, result *models.ScanResult) *models.Benchmark {
	if s.history == nil {
		return nil
	}
	cohort := repo.Cohort(result.Contacts.Total)
	averages, err := s.history.CohortAverages(ctx, cohort, s.now())
	if err != nil || averages.SnapshotsConsidered == 0 {
		if err != nil {
			s.logger.Warn("benchmark lookup failed", slog.Any("error", err))
		}
		return nil
	}
	return engine.CompareToBenchmark(cohort, result.Efficiency, averages)
}

// persistSnapshot records the scan for history and benchmarks. It runs in
// the background so a slow database never delays the response.
func (s *ScanService) persistSnapshot(result *models.ScanResult) {
	if s.history == nil {
		return
	}
	snap := models.Snapshot{
		PortalID:             result.PortalID,
		EfficiencyScore:      result.Efficiency.Score,
		EfficiencyLevel:      result.Efficiency.Level,
		HasLimitedVisibility: result.Efficiency.HasLimitedVisibility,
		ContactsTotal:        result.Contacts.Total,
		UsersTotal:           result.Users.Total,
		DealsTotal:           result.Deals.Total,
		CompaniesTotal:       result.Companies.Total,
		CriticalInsights:     result.Prioritization.Summary.Critical,
		WarningInsights:      result.Prioritization.Summary.Warning,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.history.SaveSnapshot(ctx, snap, s.now()); err != nil {
			s.logger.Warn("snapshot save failed",
				slog.String("portal_id", snap.PortalID),
				slog.Any("error", err))
		}
	}()
}

// Details re-fetches one object type and expands its issues into concrete
// affected records.
func (s *ScanService) Details(ctx context.Context, portalID, objectType string) (*models.ObjectDetails, error) {
	now := s.now()
	switch objectType {
	case "contacts":
		records, err := s.crm.FetchContacts(ctx, portalID)
		visibility := s.noteFetchError("contacts", portalID, err)
		details := analyzers.ContactDetails(portalID, records, visibility, now)
		return &details, nil
	case "users":
		seats, err := s.crm.FetchUsers(ctx, portalID)
		visibility := s.noteFetchError("users", portalID, err)
		details := analyzers.UserDetails(portalID, seats, visibility)
		return &details, nil
	case "deals":
		records, err := s.crm.FetchDeals(ctx, portalID)
		visibility := s.noteFetchError("deals", portalID, err)
		analysis := analyzers.AnalyzeDeals(ctx, s.crm, portalID, records, visibility, now, s.workers)
		details := analyzers.DealDetails(analysis)
		return &details, nil
	case "companies":
		records, err := s.crm.FetchCompanies(ctx, portalID)
		visibility := s.noteFetchError("companies", portalID, err)
		analysis := analyzers.ClassifyCompanies(portalID, records, visibility, now)
		details := analyzers.CompanyDetails(analysis)
		return &details, nil
	default:
		return nil, utils.NewAppError("services.Details", "unsupported object type "+objectType, nil)
	}
}

// History returns the portal's recent scan history.
func (s *ScanService) History(ctx context.Context, portalID string, limit int) ([]models.HistoryEntry, error) {
	if s.history == nil {
		return nil, utils.NewAppError("services.History", "history store not configured", nil)
	}
	return s.history.List(ctx, portalID, limit)
}
