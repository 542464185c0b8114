package models

import "time"

// DocumentType discriminates the closed set of document variants.
type DocumentType string

const (
	DocNews              DocumentType = "news"
	DocCompanyInfo       DocumentType = "company_info"
	DocEarningsSummary   DocumentType = "earnings_summary"
	DocStockAnalysis     DocumentType = "stock_analysis"
	DocTechnicalAnalysis DocumentType = "technical_analysis"
)

// Valid reports whether t is one of the known document types.
func (t DocumentType) Valid() bool {
	switch t {
	case DocNews, DocCompanyInfo, DocEarningsSummary, DocStockAnalysis, DocTechnicalAnalysis:
		return true
	}
	return false
}

// Structured reports whether content for this type is rendered from provider
// fields rather than copied through.
func (t DocumentType) Structured() bool {
	return t.Valid() && t != DocNews
}

// Document is one normalized piece of evidence. Documents are treated as
// immutable once built by the normalizer.
type Document struct {
	Title         string       `json:"title"`
	Content       string       `json:"content"`
	Description   string       `json:"description"`
	Source        string       `json:"source"`
	Symbol        string       `json:"symbol"`
	Type          DocumentType `json:"type"`
	PublishedDate time.Time    `json:"published_date"`
	URL           string       `json:"url"`
}

// Corpus is the ordered set of documents assembled for one query.
type Corpus struct {
	Documents []Document `json:"documents"`
	Count     int        `json:"count"`
}

// Empty reports whether the corpus holds no documents.
func (c Corpus) Empty() bool { return c.Count == 0 }
