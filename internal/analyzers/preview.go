package analyzers

import (
	"fmt"
	"strings"

	"github.com/crmscanstack/crmscan-engine/internal/models"
)

// Record-page type codes used by HubSpot's UI URLs.
var objectTypeCodes = map[string]string{
	"contact": "0-1",
	"company": "0-2",
	"deal":    "0-3",
}

// preview renders a record as a human-readable reference. The display name
// falls back through name, email and company before giving up on a generic
// label.
func preview(objectType, portalID string, rec models.Record, reason string) models.ObjectPreview {
	p := models.ObjectPreview{
		ID:         rec.ID,
		ObjectType: objectType,
		Reason:     reason,
	}

	switch objectType {
	case "contact":
		name := strings.TrimSpace(rec.Property("firstname") + " " + rec.Property("lastname"))
		p.DisplayName = firstNonEmpty(name, rec.Property("email"), rec.Property("company"))
		p.SecondaryLabel = rec.Property("email")
	case "deal":
		p.DisplayName = rec.Property("dealname")
		p.SecondaryLabel = rec.Property("amount")
	case "company":
		p.DisplayName = firstNonEmpty(rec.Property("name"), rec.Property("domain"))
		p.SecondaryLabel = rec.Property("domain")
	}
	if p.DisplayName == "" {
		label := objectType
		if label != "" {
			label = strings.ToUpper(label[:1]) + label[1:]
		}
		p.DisplayName = fmt.Sprintf("%s %s", label, rec.ID)
	}

	if code, ok := objectTypeCodes[objectType]; ok && portalID != "" {
		p.HubSpotURL = fmt.Sprintf("https://app.hubspot.com/contacts/%s/record/%s/%s", portalID, code, rec.ID)
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// capPreviews trims an issue's preview list without touching its count.
func capPreviews(items []models.ObjectPreview) []models.ObjectPreview {
	if len(items) > models.PreviewLimit {
		return items[:models.PreviewLimit]
	}
	return items
}
