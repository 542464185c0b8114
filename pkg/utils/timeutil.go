package utils

import "time"

// TimestampLayout is the ISO-8601 layout used for every timestamp the
// service emits.
const TimestampLayout = time.RFC3339

// FormatTimestamp formats t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// chartRanges are the chart ranges Yahoo Finance accepts.
var chartRanges = map[string]bool{
	"1d": true, "5d": true, "1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
}

// ValidPeriod reports whether period is a chart range Yahoo Finance accepts.
func ValidPeriod(period string) bool {
	return chartRanges[period]
}

// DaysAgo returns the instant n days before now.
func DaysAgo(now time.Time, n int) time.Time {
	return now.AddDate(0, 0, -n)
}
