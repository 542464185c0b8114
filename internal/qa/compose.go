package qa

import (
	"maps"
	"time"

	"github.com/seenimoa/stockqa/pkg/models"
	"github.com/seenimoa/stockqa/pkg/utils"
)

// Health component names.
const (
	ComponentNews     = "news_fetcher"
	ComponentEarnings = "earnings_fetcher"
	ComponentStock    = "stock_fetcher"
	ComponentEngine   = "ai_system"
)

// Compose merges a result with the request metadata. totalDocuments is the
// corpus size at orchestration time.
func Compose(result models.QueryResult, symbol, companyName string, sources map[string]models.SourceStatus,
	totalDocuments int, now time.Time) models.Response {
	ds := make(map[string]models.SourceStatus, len(sources))
	maps.Copy(ds, sources)
	return models.Response{
		QueryResult:    result,
		Symbol:         symbol,
		CompanyName:    companyName,
		DataSources:    ds,
		TotalDocuments: totalDocuments,
		Timestamp:      utils.FormatTimestamp(now),
	}
}

// Health reports component availability as fixed at startup. The overall
// status is "error" if any component is unavailable.
func Health(components map[string]bool, now time.Time) models.HealthReport {
	report := models.HealthReport{
		Status:     models.HealthHealthy,
		Components: make(map[string]string, len(components)),
		Timestamp:  utils.FormatTimestamp(now),
	}
	for name, ok := range components {
		if ok {
			report.Components[name] = models.ComponentOK
			continue
		}
		report.Components[name] = models.ComponentError
		report.Status = models.HealthError
	}
	return report
}
