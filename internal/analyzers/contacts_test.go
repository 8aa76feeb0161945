package analyzers

import (
	"strconv"
	"testing"
	"time"

	"github.com/crmscanstack/crmscan-engine/internal/models"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestClassifyContactsRatioDeductions(t *testing.T) {
	// 25% without email crosses the 20% threshold; lifecycle and staleness
	// stay under theirs.
	records := makeContacts(100, contactSpec{withoutEmail: 25, withoutLifecycle: 5, stale: 5})
	result := ClassifyContacts(records, false, testNow)

	if result.Total != 100 || result.WithoutEmail != 25 {
		t.Fatalf("counts = total %d withoutEmail %d", result.Total, result.WithoutEmail)
	}
	if result.Score != 85 {
		t.Errorf("score = %d, want 85", result.Score)
	}
	if result.LimitedVisibility || result.VisibilityError {
		t.Error("visibility flags should be clear")
	}
}

func TestClassifyContactsAllDeductions(t *testing.T) {
	records := makeContacts(100, contactSpec{withoutEmail: 30, withoutLifecycle: 40, stale: 30})
	result := ClassifyContacts(records, true, testNow)

	// 100 - 15 - 20 - 15 - 10 = 40, already at the floor.
	if result.Score != 40 {
		t.Errorf("score = %d, want 40", result.Score)
	}
	if !result.VisibilityError || !result.LimitedVisibility {
		t.Error("expected visibility flags set")
	}
}

func TestClassifyContactsEmptySample(t *testing.T) {
	result := ClassifyContacts(nil, false, testNow)
	if result.Score != 70 {
		t.Errorf("score = %d, want baseline 70", result.Score)
	}
	if result.LimitedVisibility {
		t.Error("empty sample must not report limited visibility")
	}

	// Even when the fetch failed, an empty sample keeps the baseline.
	result = ClassifyContacts(nil, true, testNow)
	if result.Score != 70 || result.LimitedVisibility {
		t.Errorf("failed empty fetch: score %d limited %v, want 70/false", result.Score, result.LimitedVisibility)
	}
	if !result.VisibilityError {
		t.Error("visibilityError should survive for the composite penalty")
	}
}

func TestClassifyContactsStaleWindow(t *testing.T) {
	fresh := testNow.AddDate(0, -6, 0).Format(time.RFC3339)
	old := testNow.AddDate(-1, -1, 0).Format(time.RFC3339)
	records := makeContacts(4, contactSpec{})
	records[0].Properties["lastmodifieddate"] = fresh
	records[1].Properties["lastmodifieddate"] = old
	records[2].Properties["lastmodifieddate"] = old
	records[3].Properties["lastmodifieddate"] = "" // unparseable never counts stale

	result := ClassifyContacts(records, false, testNow)
	if result.Stale != 2 {
		t.Errorf("stale = %d, want 2", result.Stale)
	}
	// 2/4 = 50% > 25% threshold.
	if result.Score != 85 {
		t.Errorf("score = %d, want 85", result.Score)
	}
}

func TestClassifyContactsDeterministic(t *testing.T) {
	records := makeContacts(50, contactSpec{withoutEmail: 20, stale: 10})
	first := ClassifyContacts(records, false, testNow)
	second := ClassifyContacts(records, false, testNow)
	if first != second {
		t.Errorf("results differ between runs: %+v vs %+v", first, second)
	}
}

type contactSpec struct {
	withoutEmail     int
	withoutLifecycle int
	stale            int
}

func makeContacts(total int, spec contactSpec) []models.Record {
	records := make([]models.Record, total)
	fresh := testNow.AddDate(0, -1, 0).Format(time.RFC3339)
	old := testNow.AddDate(-2, 0, 0).Format(time.RFC3339)
	for i := range records {
		props := map[string]string{
			"email":            "person@example.com",
			"phone":            "+1-555-0100",
			"lifecyclestage":   "customer",
			"lastmodifieddate": fresh,
		}
		if i < spec.withoutEmail {
			props["email"] = ""
		}
		if i < spec.withoutLifecycle {
			props["lifecyclestage"] = ""
		}
		if i < spec.stale {
			props["lastmodifieddate"] = old
		}
		records[i] = models.Record{ID: strconv.Itoa(i + 1), Properties: props}
	}
	return records
}
