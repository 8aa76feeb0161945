package analyzers

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/crmscanstack/crmscan-engine/internal/models"
	"github.com/crmscanstack/crmscan-engine/internal/utils"
)

const inactivityWindow = 90 * 24 * time.Hour // one quarter without activity

// AssociationChecker answers whether a deal has any associated contact.
// One call per deal, so the analyzer bounds its fan-out.
type AssociationChecker interface {
	DealHasContacts(ctx context.Context, portalID, dealID string) (bool, error)
}

// AnalyzeDeals runs the four deal checks over a sample. Association lookups
// happen concurrently; a failed lookup counts the deal as unlinked and flags
// limited visibility instead of aborting the batch.
func AnalyzeDeals(ctx context.Context, checker AssociationChecker, portalID string, records []models.Record, visibilityError bool, now time.Time, workers int) models.DealsAnalysis {
	result := models.DealsAnalysis{
		Total:             len(records),
		VisibilityError:   visibilityError,
		LimitedVisibility: visibilityError,
	}
	if result.Total == 0 {
		result.LimitedVisibility = false
		return result
	}

	withoutContact := checkDealsWithoutContact(ctx, checker, portalID, records, workers, &result.LimitedVisibility)

	withoutOwner := newCheck()
	withoutPrice := newCheck()
	inactive := newCheck()
	cutoff := now.Add(-inactivityWindow)
	for _, rec := range records {
		if rec.Property("hubspot_owner_id") == "" {
			withoutOwner.add(preview("deal", portalID, rec, "No owner assigned"))
		}
		if !hasPositiveAmount(rec.Property("amount")) {
			withoutPrice.add(preview("deal", portalID, rec, "Missing or zero amount"))
		}
		lastTouch := firstNonEmpty(rec.Property("notes_last_updated"), rec.Property("hs_lastmodifieddate"))
		if utils.OlderThan(lastTouch, cutoff) {
			inactive.add(preview("deal", portalID, rec, "No activity in the last 90 days"))
		}
	}

	result.WithoutContact = withoutContact.finish(result.Total)
	result.WithoutOwner = withoutOwner.finish(result.Total)
	result.WithoutPrice = withoutPrice.finish(result.Total)
	result.Inactive = inactive.finish(result.Total)
	return result
}

func checkDealsWithoutContact(ctx context.Context, checker AssociationChecker, portalID string, records []models.Record, workers int, limited *bool) *check {
	type outcome struct {
		unlinked bool
		failed   bool
	}
	outcomes := make([]outcome, len(records))

	if workers <= 0 {
		workers = 5
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, rec := range records {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, dealID string) {
			defer wg.Done()
			defer func() { <-sem }()
			has, err := checker.DealHasContacts(ctx, portalID, dealID)
			if err != nil {
				outcomes[i] = outcome{unlinked: true, failed: true}
				return
			}
			outcomes[i] = outcome{unlinked: !has}
		}(i, rec.ID)
	}
	wg.Wait()

	c := newCheck()
	for i, o := range outcomes {
		if o.failed {
			*limited = true
		}
		if o.unlinked {
			c.add(preview("deal", portalID, records[i], "No associated contacts"))
		}
	}
	return c
}

func hasPositiveAmount(raw string) bool {
	if raw == "" {
		return false
	}
	amount, err := strconv.ParseFloat(raw, 64)
	return err == nil && amount > 0
}

// check accumulates one issue predicate's matches.
type check struct {
	count int
	items []models.ObjectPreview
}

func newCheck() *check { return &check{} }

func (c *check) add(p models.ObjectPreview) {
	c.count++
	if len(c.items) < models.PreviewLimit {
		c.items = append(c.items, p)
	}
}

func (c *check) finish(total int) *models.CheckResult {
	pct := percentage(c.count, total)
	return &models.CheckResult{
		Count:      c.count,
		Percentage: pct,
		Score:      stepScore(pct),
		Items:      capPreviews(c.items),
	}
}
