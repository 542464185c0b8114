package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/stockqa/pkg/models"
	"github.com/seenimoa/stockqa/pkg/utils"
)

// summaryModules are the quoteSummary modules requested for fundamentals.
var summaryModules = []string{
	"assetProfile",
	"price",
	"summaryDetail",
	"financialData",
	"defaultKeyStatistics",
	"earnings",
	"calendarEvents",
}

// Earnings fetches company profiles and earnings summaries from the Yahoo
// Finance quoteSummary endpoint.
type Earnings struct {
	client  *Client
	baseURL string
	now     func() time.Time
	logger  *zap.Logger
}

// NewEarnings creates an earnings/fundamentals provider.
func NewEarnings(client *Client, baseURL string, logger *zap.Logger) *Earnings {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Earnings{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
		logger:  logger,
	}
}

// Name returns the data source name.
func (e *Earnings) Name() string { return "earnings" }

// FetchEarningsData returns the company profile and an earnings summary.
func (e *Earnings) FetchEarningsData(ctx context.Context, symbol string) (*models.EarningsData, error) {
	r, err := e.quoteSummary(ctx, symbol)
	if err != nil {
		return nil, err
	}

	data := &models.EarningsData{
		CompanyInfo: companyInfoFrom(r),
		Summary:     earningsSummaryFrom(utils.NormalizeSymbol(symbol), r),
		AsOf:        e.now().UTC().Truncate(time.Second),
	}
	if data.CompanyInfo == nil && len(data.Summary) == 0 {
		return nil, fmt.Errorf("earnings %s: %w", symbol, ErrNoData)
	}
	return data, nil
}

// FetchCompanyInfo returns only the company profile.
func (e *Earnings) FetchCompanyInfo(ctx context.Context, symbol string) (*models.CompanyInfo, error) {
	r, err := e.quoteSummary(ctx, symbol)
	if err != nil {
		return nil, err
	}
	info := companyInfoFrom(r)
	if info == nil {
		return nil, fmt.Errorf("company info %s: %w", symbol, ErrNoData)
	}
	return info, nil
}

func (e *Earnings) quoteSummary(ctx context.Context, symbol string) (*yfSummaryResult, error) {
	symbol = utils.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("earnings: empty symbol")
	}

	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		e.baseURL, url.PathEscape(symbol), strings.Join(summaryModules, ","))

	var resp yfQuoteSummaryResponse
	if err := e.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("yahoo quoteSummary %s: %w", symbol, err)
	}
	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yahoo quoteSummary %s: %s", symbol, resp.QuoteSummary.Error.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}
	return &resp.QuoteSummary.Result[0], nil
}

func companyInfoFrom(r *yfSummaryResult) *models.CompanyInfo {
	if r.AssetProfile == nil && r.Price == nil && r.SummaryDetail == nil && r.FinancialData == nil {
		return nil
	}

	info := &models.CompanyInfo{}
	if p := r.Price; p != nil {
		info.Name = coalesce(p.LongName, p.ShortName)
		info.MarketCap = p.MarketCap.float()
	}
	if a := r.AssetProfile; a != nil {
		info.Sector = a.Sector
		info.Industry = a.Industry
		info.BusinessSummary = a.LongBusinessSummary
	}
	if d := r.SummaryDetail; d != nil {
		info.PERatio = d.TrailingPE.float()
		if info.MarketCap == nil {
			info.MarketCap = d.MarketCap.float()
		}
	}
	if f := r.FinancialData; f != nil {
		info.Revenue = f.TotalRevenue.float()
		info.ProfitMargin = f.ProfitMargins.float()
	}
	if info.ProfitMargin == nil && r.DefaultKeyStatistics != nil {
		info.ProfitMargin = r.DefaultKeyStatistics.ProfitMargins.float()
	}
	return info
}

func earningsSummaryFrom(symbol string, r *yfSummaryResult) map[string]any {
	s := map[string]any{}
	put := func(key string, v *yfVal) {
		if f := v.float(); f != nil {
			s[key] = *f
		}
	}

	if p := r.Price; p != nil && p.Currency != "" {
		s["currency"] = p.Currency
	}
	if k := r.DefaultKeyStatistics; k != nil {
		put("trailing_eps", k.TrailingEps)
		put("forward_eps", k.ForwardEps)
		put("net_income", k.NetIncomeToCommon)
	}
	if d := r.SummaryDetail; d != nil {
		put("trailing_pe", d.TrailingPE)
		put("forward_pe", d.ForwardPE)
		put("dividend_yield", d.DividendYield)
	}
	if f := r.FinancialData; f != nil {
		put("total_revenue", f.TotalRevenue)
		put("revenue_growth", f.RevenueGrowth)
		put("earnings_growth", f.EarningsGrowth)
		put("gross_margins", f.GrossMargins)
		put("operating_margins", f.OperatingMargins)
		put("profit_margins", f.ProfitMargins)
		put("ebitda", f.Ebitda)
		put("free_cashflow", f.FreeCashflow)
		put("total_debt", f.TotalDebt)
		put("total_cash", f.TotalCash)
		put("target_mean_price", f.TargetMeanPrice)
		if f.RecommendationKey != "" {
			s["analyst_recommendation"] = f.RecommendationKey
		}
	}
	if e := r.Earnings; e != nil {
		var quarters []any
		for _, q := range e.EarningsChart.Quarterly {
			row := map[string]any{"quarter": q.Date}
			if v := q.Actual.float(); v != nil {
				row["actual_eps"] = *v
			}
			if v := q.Estimate.float(); v != nil {
				row["estimated_eps"] = *v
			}
			if a, est := q.Actual.float(), q.Estimate.float(); a != nil && est != nil {
				row["surprise"] = *a - *est
			}
			quarters = append(quarters, row)
		}
		if len(quarters) > 0 {
			s["quarterly_eps"] = quarters
		}

		var years []any
		for _, y := range e.FinancialsChart.Yearly {
			row := map[string]any{"year": y.Date}
			if v := y.Revenue.float(); v != nil {
				row["revenue"] = *v
			}
			if v := y.Earnings.float(); v != nil {
				row["earnings"] = *v
			}
			years = append(years, row)
		}
		if len(years) > 0 {
			s["yearly_financials"] = years
		}
	}
	if c := r.CalendarEvents; c != nil && len(c.Earnings.EarningsDate) > 0 {
		if raw := c.Earnings.EarningsDate[0].Raw; raw != nil {
			s["next_earnings_date"] = time.Unix(int64(*raw), 0).UTC().Format("2006-01-02")
		}
	}

	if len(s) == 0 {
		return nil
	}
	s["symbol"] = symbol
	return s
}
