// Package models defines the core data structures shared by the stockqa
// pipeline: normalized documents, query results, and market data.
package models

import "time"

// OHLCV represents a single candlestick bar of price data.
type OHLCV struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
	AdjClose  float64   `json:"adj_close,omitempty"`
}

// CompanySummary is the short company profile served by the company endpoint.
// Nil fields were not reported by the provider.
type CompanySummary struct {
	Symbol      string   `json:"symbol"`
	Name        string   `json:"name"`
	Sector      *string  `json:"sector"`
	Industry    *string  `json:"industry"`
	MarketCap   *float64 `json:"market_cap"`
	Description *string  `json:"description"`
}
