package models

import "time"

// NewsFragment is one article as returned by a news provider.
type NewsFragment struct {
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Description   string    `json:"description"`
	Source        string    `json:"source"`
	URL           string    `json:"url"`
	PublishedDate time.Time `json:"published_date"`
}

// CompanyInfo is the company profile part of a fundamentals payload.
// Empty strings and nil pointers mean the provider did not report the field.
type CompanyInfo struct {
	Name            string   `json:"name,omitempty"`
	Sector          string   `json:"sector,omitempty"`
	Industry        string   `json:"industry,omitempty"`
	MarketCap       *float64 `json:"market_cap,omitempty"`
	PERatio         *float64 `json:"pe_ratio,omitempty"`
	Revenue         *float64 `json:"revenue,omitempty"`
	ProfitMargin    *float64 `json:"profit_margin,omitempty"`
	BusinessSummary string   `json:"business_summary,omitempty"`
}

// EarningsData is the payload of an earnings/fundamentals provider.
type EarningsData struct {
	CompanyInfo *CompanyInfo   `json:"company_info,omitempty"`
	Summary     map[string]any `json:"earnings_summary,omitempty"`
	AsOf        time.Time      `json:"as_of"`
}

// TechnicalIndicators holds the latest value of each indicator. Nil means
// there was not enough history to compute it.
type TechnicalIndicators struct {
	RSI            *float64 `json:"rsi,omitempty"`
	MACD           *float64 `json:"macd,omitempty"`
	SMA20          *float64 `json:"sma_20,omitempty"`
	SMA50          *float64 `json:"sma_50,omitempty"`
	Support        *float64 `json:"support,omitempty"`
	Resistance     *float64 `json:"resistance,omitempty"`
	BollingerUpper *float64 `json:"bollinger_upper,omitempty"`
	BollingerLower *float64 `json:"bollinger_lower,omitempty"`
}

// StockData is the payload of a price/technical provider.
type StockData struct {
	Summary             map[string]any       `json:"summary,omitempty"`
	TechnicalIndicators *TechnicalIndicators `json:"technical_indicators,omitempty"`
	Candles             []OHLCV              `json:"-"`
	AsOf                time.Time            `json:"as_of"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
