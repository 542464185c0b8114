// Package datasource fetches evidence from financial data providers: a news
// feed reader, a fundamentals/earnings lookup, and a price-history source
// with locally computed technical indicators. The Aggregator fans out to all
// three for a query and isolates each provider's failures.
package datasource

import (
	"context"
	"errors"
	"fmt"

	"github.com/seenimoa/stockqa/pkg/models"
)

// NewsProvider returns recent articles about a company.
type NewsProvider interface {
	FetchCompanyNews(ctx context.Context, symbol, companyName string, daysBack int) ([]models.NewsFragment, error)
}

// EarningsProvider returns the company profile and earnings summary.
type EarningsProvider interface {
	FetchEarningsData(ctx context.Context, symbol string) (*models.EarningsData, error)
}

// PriceProvider returns a price summary and technical indicators over period.
type PriceProvider interface {
	FetchStockData(ctx context.Context, symbol, period string) (*models.StockData, error)
}

// CompanyProvider returns only the company profile.
type CompanyProvider interface {
	FetchCompanyInfo(ctx context.Context, symbol string) (*models.CompanyInfo, error)
}

// --- Sentinel errors ---

// ErrTickerNotFound is returned when a ticker cannot be resolved.
var ErrTickerNotFound = errors.New("ticker not found")

// ErrNoData is returned when a provider answered but had nothing usable.
var ErrNoData = errors.New("no data returned")

// ErrNotConfigured is recorded for a provider slot that has no implementation.
var ErrNotConfigured = errors.New("provider not configured")

// ErrHTTP wraps an HTTP error with status code.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}
