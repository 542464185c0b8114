// Package utils provides common utility functions for stockqa.
package utils

import "strings"

// NormalizeSymbol trims surrounding whitespace and upper-cases a ticker.
// The ticker is otherwise passed through as typed.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
