package datasource

import (
	"strings"
	"time"

	"github.com/seenimoa/stockqa/pkg/models"
)

// DefaultYahooBaseURL is the Yahoo Finance query host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// --- Yahoo Finance API types ---

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// yfVal is the {raw, fmt} pair Yahoo uses for numeric fields.
type yfVal struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

func (v *yfVal) float() *float64 {
	if v == nil || v.Raw == nil {
		return nil
	}
	f := *v.Raw
	return &f
}

type yfQuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []yfSummaryResult `json:"result"`
		Error  *yfError          `json:"error"`
	} `json:"quoteSummary"`
}

type yfSummaryResult struct {
	AssetProfile *struct {
		Sector              string `json:"sector"`
		Industry            string `json:"industry"`
		LongBusinessSummary string `json:"longBusinessSummary"`
		Website             string `json:"website"`
		FullTimeEmployees   *int64 `json:"fullTimeEmployees"`
	} `json:"assetProfile"`
	Price *struct {
		LongName  string `json:"longName"`
		ShortName string `json:"shortName"`
		Currency  string `json:"currency"`
		MarketCap *yfVal `json:"marketCap"`
	} `json:"price"`
	SummaryDetail *struct {
		TrailingPE    *yfVal `json:"trailingPE"`
		ForwardPE     *yfVal `json:"forwardPE"`
		DividendYield *yfVal `json:"dividendYield"`
		MarketCap     *yfVal `json:"marketCap"`
	} `json:"summaryDetail"`
	FinancialData *struct {
		TotalRevenue      *yfVal `json:"totalRevenue"`
		RevenueGrowth     *yfVal `json:"revenueGrowth"`
		EarningsGrowth    *yfVal `json:"earningsGrowth"`
		GrossMargins      *yfVal `json:"grossMargins"`
		OperatingMargins  *yfVal `json:"operatingMargins"`
		ProfitMargins     *yfVal `json:"profitMargins"`
		Ebitda            *yfVal `json:"ebitda"`
		FreeCashflow      *yfVal `json:"freeCashflow"`
		TotalDebt         *yfVal `json:"totalDebt"`
		TotalCash         *yfVal `json:"totalCash"`
		RecommendationKey string `json:"recommendationKey"`
		TargetMeanPrice   *yfVal `json:"targetMeanPrice"`
	} `json:"financialData"`
	DefaultKeyStatistics *struct {
		TrailingEps       *yfVal `json:"trailingEps"`
		ForwardEps        *yfVal `json:"forwardEps"`
		ProfitMargins     *yfVal `json:"profitMargins"`
		NetIncomeToCommon *yfVal `json:"netIncomeToCommon"`
	} `json:"defaultKeyStatistics"`
	Earnings *struct {
		EarningsChart struct {
			Quarterly []struct {
				Date     string `json:"date"`
				Actual   *yfVal `json:"actual"`
				Estimate *yfVal `json:"estimate"`
			} `json:"quarterly"`
		} `json:"earningsChart"`
		FinancialsChart struct {
			Yearly []struct {
				Date     int    `json:"date"`
				Revenue  *yfVal `json:"revenue"`
				Earnings *yfVal `json:"earnings"`
			} `json:"yearly"`
		} `json:"financialsChart"`
	} `json:"earnings"`
	CalendarEvents *struct {
		Earnings struct {
			EarningsDate []yfVal `json:"earningsDate"`
		} `json:"earnings"`
	} `json:"calendarEvents"`
}

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Meta       yfChartMeta  `json:"meta"`
	Timestamp  []int64      `json:"timestamp"`
	Indicators yfIndicators `json:"indicators"`
}

type yfChartMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
}

type yfIndicators struct {
	Quote    []yfOHLCV    `json:"quote"`
	AdjClose []yfAdjClose `json:"adjclose"`
}

type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yfAdjClose struct {
	AdjClose []*float64 `json:"adjclose"`
}

// parseYFCandles converts a chart result to candles, skipping sessions with
// no close.
func parseYFCandles(result yfChartResult) []models.OHLCV {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	q := result.Indicators.Quote[0]
	var adjCloses []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjCloses = result.Indicators.AdjClose[0].AdjClose
	}

	candles := make([]models.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		c := models.OHLCV{
			Timestamp: time.Unix(ts, 0).UTC(),
			Close:     *q.Close[i],
		}
		c.Open = valueAt(q.Open, i, c.Close)
		c.High = valueAt(q.High, i, c.Close)
		c.Low = valueAt(q.Low, i, c.Close)
		c.AdjClose = valueAt(adjCloses, i, c.Close)
		if i < len(q.Volume) && q.Volume[i] != nil {
			c.Volume = *q.Volume[i]
		}
		candles = append(candles, c)
	}
	return candles
}

func valueAt(vals []*float64, i int, fallback float64) float64 {
	if i < len(vals) && vals[i] != nil {
		return *vals[i]
	}
	return fallback
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
