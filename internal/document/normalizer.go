// Package document converts provider payloads into canonical documents and
// assembles them into the evidence corpus for a query.
package document

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/seenimoa/stockqa/pkg/models"
	"github.com/seenimoa/stockqa/pkg/utils"
)

// Placeholder is rendered for every field a provider did not report.
const Placeholder = "N/A"

// DefaultQuotePageURL is the base of the canonical quote-page links.
const DefaultQuotePageURL = "https://finance.yahoo.com/quote"

const (
	sourceYahoo     = "Yahoo Finance"
	sourceTechnical = "Technical Analysis"
)

// Normalizer maps provider fragments to documents. Apart from the
// company_info timestamp its output depends only on its input.
type Normalizer struct {
	quotePageURL string
	now          func() time.Time
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithQuotePageURL overrides the base used to build quote-page URLs.
func WithQuotePageURL(base string) Option {
	return func(n *Normalizer) {
		if base != "" {
			n.quotePageURL = strings.TrimRight(base, "/")
		}
	}
}

// WithClock overrides the clock used for company_info timestamps.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{quotePageURL: DefaultQuotePageURL, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// QuoteURL returns the canonical quote page for symbol with an optional
// sub-page ("financials", "chart").
func (n *Normalizer) QuoteURL(symbol, page string) string {
	u := n.quotePageURL + "/" + symbol
	if page != "" {
		u += "/" + page
	}
	return u
}

// News produces one document per article, fields copied through.
func (n *Normalizer) News(symbol string, items []models.NewsFragment) []models.Document {
	docs := make([]models.Document, 0, len(items))
	for _, it := range items {
		docs = append(docs, models.Document{
			Title:         it.Title,
			Content:       it.Content,
			Description:   it.Description,
			Source:        it.Source,
			Symbol:        symbol,
			Type:          models.DocNews,
			PublishedDate: it.PublishedDate,
			URL:           it.URL,
		})
	}
	return docs
}

// Earnings produces a company_info document when a profile is present and
// an earnings_summary document when a summary is present.
func (n *Normalizer) Earnings(symbol string, data *models.EarningsData) []models.Document {
	if data == nil {
		return nil
	}
	var docs []models.Document
	if data.CompanyInfo != nil {
		docs = append(docs, n.CompanyInfo(symbol, data.CompanyInfo))
	}
	if len(data.Summary) > 0 {
		docs = append(docs, models.Document{
			Title:         symbol + " Earnings Summary",
			Content:       RenderJSON(data.Summary),
			Description:   "Earnings summary for " + symbol,
			Source:        sourceYahoo,
			Symbol:        symbol,
			Type:          models.DocEarningsSummary,
			PublishedDate: data.AsOf,
			URL:           n.QuoteURL(symbol, "financials"),
		})
	}
	return docs
}

// CompanyInfo renders a company profile. Its published date is the time of
// normalization.
func (n *Normalizer) CompanyInfo(symbol string, info *models.CompanyInfo) models.Document {
	content := strings.Join([]string{
		"Company: " + text(info.Name),
		"Sector: " + text(info.Sector),
		"Industry: " + text(info.Industry),
		"Market Cap: " + number(info.MarketCap),
		"P/E Ratio: " + number(info.PERatio),
		"Revenue: " + number(info.Revenue),
		"Profit Margin: " + number(info.ProfitMargin),
		"Description: " + text(info.BusinessSummary),
	}, "\n")

	return models.Document{
		Title:         symbol + " Company Information",
		Content:       content,
		Description:   "Company information for " + symbol,
		Source:        sourceYahoo,
		Symbol:        symbol,
		Type:          models.DocCompanyInfo,
		PublishedDate: n.now().UTC(),
		URL:           n.QuoteURL(symbol, ""),
	}
}

// Stock produces up to two documents: stock_analysis from the summary and
// technical_analysis from the indicators.
func (n *Normalizer) Stock(symbol string, data *models.StockData) []models.Document {
	if data == nil {
		return nil
	}
	var docs []models.Document
	if len(data.Summary) > 0 {
		docs = append(docs, models.Document{
			Title:         symbol + " Stock Analysis",
			Content:       RenderJSON(data.Summary),
			Description:   "Technical analysis and stock data for " + symbol,
			Source:        sourceYahoo,
			Symbol:        symbol,
			Type:          models.DocStockAnalysis,
			PublishedDate: data.AsOf,
			URL:           n.QuoteURL(symbol, ""),
		})
	}
	if ind := data.TechnicalIndicators; ind != nil {
		docs = append(docs, models.Document{
			Title:         symbol + " Technical Indicators",
			Content:       RenderIndicators(ind),
			Description:   "Technical indicators for " + symbol,
			Source:        sourceTechnical,
			Symbol:        symbol,
			Type:          models.DocTechnicalAnalysis,
			PublishedDate: data.AsOf,
			URL:           n.QuoteURL(symbol, "chart"),
		})
	}
	return docs
}

// RenderIndicators renders indicators in fixed order, one per line.
func RenderIndicators(ind *models.TechnicalIndicators) string {
	return strings.Join([]string{
		"RSI: " + number(ind.RSI),
		"MACD: " + number(ind.MACD),
		"SMA 20: " + number(ind.SMA20),
		"SMA 50: " + number(ind.SMA50),
		"Support: " + number(ind.Support),
		"Resistance: " + number(ind.Resistance),
		"Bollinger Upper: " + number(ind.BollingerUpper),
		"Bollinger Lower: " + number(ind.BollingerLower),
	}, "\n")
}

// RenderJSON renders v as indented JSON. Map keys are emitted in sorted
// order and non-finite floats become null, so equal inputs render equally.
func RenderJSON(v any) string {
	b, err := json.MarshalIndent(sanitize(v), "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func sanitize(v any) any {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	case float32:
		return sanitize(float64(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = sanitize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = sanitize(val)
		}
		return out
	case []float64:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = sanitize(val)
		}
		return out
	default:
		return v
	}
}

func text(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

func number(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return utils.FormatNumber(*v)
}
