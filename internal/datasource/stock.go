package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/seenimoa/stockqa/internal/analysis/technical"
	"github.com/seenimoa/stockqa/pkg/models"
	"github.com/seenimoa/stockqa/pkg/utils"
)

// DefaultStockPeriod is the history window used when none is given.
const DefaultStockPeriod = "1y"

// Stock fetches daily price history from the Yahoo Finance chart endpoint
// and derives a summary and technical indicators from it.
type Stock struct {
	client  *Client
	baseURL string
	logger  *zap.Logger
}

// NewStock creates a price/technical provider.
func NewStock(client *Client, baseURL string, logger *zap.Logger) *Stock {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stock{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Name returns the data source name.
func (s *Stock) Name() string { return "stock" }

// FetchStockData returns a price summary and the latest indicators over period.
func (s *Stock) FetchStockData(ctx context.Context, symbol, period string) (*models.StockData, error) {
	candles, err := s.History(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	if period == "" {
		period = DefaultStockPeriod
	}

	last := candles[len(candles)-1]
	return &models.StockData{
		Summary:             technical.Summarize(utils.NormalizeSymbol(symbol), period, candles),
		TechnicalIndicators: technical.Compute(candles),
		Candles:             candles,
		AsOf:                last.Timestamp,
	}, nil
}

// History returns daily candles over period, oldest first.
func (s *Stock) History(ctx context.Context, symbol, period string) ([]models.OHLCV, error) {
	symbol = utils.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("stock: empty symbol")
	}
	if period == "" {
		period = DefaultStockPeriod
	}
	if !utils.ValidPeriod(period) {
		return nil, fmt.Errorf("stock: unsupported period %q", period)
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d&includeAdjustedClose=true",
		s.baseURL, url.PathEscape(symbol), url.QueryEscape(period))

	var resp yfChartResponse
	if err := s.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s", symbol, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}

	candles := parseYFCandles(resp.Chart.Result[0])
	if len(candles) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, ErrNoData)
	}
	return candles, nil
}
