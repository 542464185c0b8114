package engine

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/seenimoa/stockqa/pkg/models"
)

// extractMetrics collects the numeric fields of the structured documents
// in docs. JSON documents contribute their top-level numbers; line-oriented
// documents contribute "Label: number" lines. Earlier documents win on key
// collisions.
func extractMetrics(docs []*models.Document) map[string]any {
	out := make(map[string]any)
	put := func(key string, v float64) {
		if _, exists := out[key]; !exists {
			out[key] = v
		}
	}

	for _, d := range docs {
		switch d.Type {
		case models.DocEarningsSummary, models.DocStockAnalysis:
			var m map[string]any
			if err := json.Unmarshal([]byte(d.Content), &m); err != nil {
				continue
			}
			for k, v := range m {
				if f, ok := v.(float64); ok {
					put(k, f)
				}
			}
		case models.DocCompanyInfo, models.DocTechnicalAnalysis:
			for _, line := range strings.Split(d.Content, "\n") {
				label, value, ok := strings.Cut(line, ":")
				if !ok {
					continue
				}
				f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
				if err != nil {
					continue
				}
				put(metricKey(label), f)
			}
		}
	}
	return out
}

// metricKey turns a display label into a snake_case key ("P/E Ratio" -> "pe_ratio").
func metricKey(label string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == '/':
		default:
			pendingSep = true
		}
	}
	return b.String()
}
