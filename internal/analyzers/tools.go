package analyzers

import (
	"context"
	"math"
	"sync"

	"github.com/crmscanstack/crmscan-engine/internal/models"
)

// ToolProber checks whether a HubSpot tool holds any objects.
type ToolProber interface {
	ProbeTool(ctx context.Context, portalID, path string) (bool, error)
}

type toolDefinition struct {
	Name     string
	Category string
	Path     string
	Critical bool
}

// toolCatalog lists the portal tools worth probing. Critical tools get a
// warning insight when unused.
var toolCatalog = []toolDefinition{
	{Name: "Deals", Category: "sales", Path: "/crm/v3/objects/deals?limit=1", Critical: true},
	{Name: "Tickets", Category: "service", Path: "/crm/v3/objects/tickets?limit=1"},
	{Name: "Companies", Category: "crm", Path: "/crm/v3/objects/companies?limit=1"},
	{Name: "Workflows", Category: "automation", Path: "/automation/v3/workflows?limit=1", Critical: true},
	{Name: "Forms", Category: "marketing", Path: "/forms/v2/forms?limit=1", Critical: true},
	{Name: "Landing Pages", Category: "marketing", Path: "/cms/v3/pages/landing-pages?limit=1"},
	{Name: "Website Pages", Category: "cms", Path: "/cms/v3/pages/site-pages?limit=1"},
	{Name: "Blog", Category: "marketing", Path: "/cms/v3/blogs/posts?limit=1"},
}

// CriticalTools names the tools whose absence warrants a warning.
func CriticalTools() map[string]bool {
	out := make(map[string]bool)
	for _, tool := range toolCatalog {
		if tool.Critical {
			out[tool.Name] = true
		}
	}
	return out
}

// AnalyzeTools probes every catalogued tool concurrently. Probe failures
// exclude the tool from the tally and flag limited visibility.
func AnalyzeTools(ctx context.Context, prober ToolProber, portalID string) models.ToolsUsage {
	type probe struct {
		used   bool
		failed bool
	}
	outcomes := make([]probe, len(toolCatalog))

	var wg sync.WaitGroup
	for i, tool := range toolCatalog {
		wg.Add(1)
		go func(i int, tool toolDefinition) {
			defer wg.Done()
			used, err := prober.ProbeTool(ctx, portalID, tool.Path)
			if err != nil {
				outcomes[i] = probe{failed: true}
				return
			}
			outcomes[i] = probe{used: used}
		}(i, tool)
	}
	wg.Wait()

	usage := models.ToolsUsage{}
	probed := 0
	for i, tool := range toolCatalog {
		if outcomes[i].failed {
			usage.LimitedVisibility = true
			continue
		}
		probed++
		status := models.ToolStatus{Tool: tool.Name, Category: tool.Category}
		if outcomes[i].used {
			usage.InUse = append(usage.InUse, status)
		} else {
			status.Reason = "No objects found"
			usage.Unused = append(usage.Unused, status)
		}
	}
	usage.TotalTools = probed
	if probed > 0 {
		usage.UsagePercentage = math.Round(float64(len(usage.InUse))/float64(probed)*1000) / 10
	}
	return usage
}
