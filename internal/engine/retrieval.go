package engine

import (
	"sort"
	"strings"
	"unicode"

	"github.com/seenimoa/stockqa/pkg/models"
)

// Chunk is a slice of one corpus document considered for the prompt.
type Chunk struct {
	Doc   *models.Document
	Order int // index of Doc in the corpus
	Index int // position of the chunk within Doc
	Text  string
	Score float64
}

// Splitter cuts text into overlapping rune windows.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

// NewSplitter normalizes chunk settings; an overlap that would stall the
// window falls back to a quarter of the chunk size.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{ChunkSize: chunkSize, Overlap: overlap}
}

// Split returns the non-blank chunks of text in order.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := min(start+s.ChunkSize, len(runes))
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

// truncateRunes keeps at most n runes of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// documentText is what gets chunked: title and description give short
// news items something to match on.
func documentText(d *models.Document) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.Title, d.Description, d.Content} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	// News descriptions are usually a prefix of the content.
	if len(parts) == 3 && strings.HasPrefix(parts[2], parts[1]) {
		parts = append(parts[:1], parts[2])
	}
	return strings.Join(parts, "\n")
}

// stopwords are dropped from the question before overlap scoring.
var stopwords = map[string]struct{}{
	"a": {}, "about": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "can": {}, "do": {}, "does": {}, "for": {}, "from": {}, "has": {}, "have": {},
	"how": {}, "i": {}, "in": {}, "is": {}, "it": {}, "its": {}, "me": {}, "of": {}, "on": {},
	"or": {}, "s": {}, "should": {}, "tell": {}, "that": {}, "the": {}, "this": {}, "to": {},
	"was": {}, "what": {}, "whats": {}, "when": {}, "which": {}, "will": {}, "with": {}, "you": {},
}

// typeHints maps question vocabulary to the document type that answers it.
var typeHints = map[string]models.DocumentType{
	"rsi":        models.DocTechnicalAnalysis,
	"macd":       models.DocTechnicalAnalysis,
	"bollinger":  models.DocTechnicalAnalysis,
	"support":    models.DocTechnicalAnalysis,
	"resistance": models.DocTechnicalAnalysis,
	"technical":  models.DocTechnicalAnalysis,
	"eps":        models.DocEarningsSummary,
	"earnings":   models.DocEarningsSummary,
	"revenue":    models.DocEarningsSummary,
	"margin":     models.DocEarningsSummary,
	"margins":    models.DocEarningsSummary,
	"sector":     models.DocCompanyInfo,
	"industry":   models.DocCompanyInfo,
	"business":   models.DocCompanyInfo,
	"price":      models.DocStockAnalysis,
	"volatility": models.DocStockAnalysis,
	"trend":      models.DocStockAnalysis,
	"return":     models.DocStockAnalysis,
	"news":       models.DocNews,
	"sentiment":  models.DocNews,
}

// rankChunks scores every chunk against the question and returns the best
// topK, highest first. Ties keep corpus order.
func rankChunks(question, symbol string, chunks []Chunk, topK int) []Chunk {
	if len(chunks) == 0 {
		return nil
	}
	query := queryTokens(question)
	sym := strings.ToLower(symbol)
	hinted := make(map[models.DocumentType]bool)
	for token := range query {
		if t, ok := typeHints[token]; ok {
			hinted[t] = true
		}
	}

	ranked := make([]Chunk, len(chunks))
	copy(ranked, chunks)
	for i := range ranked {
		c := &ranked[i]
		tokens := toTokenSet(c.Text)
		score := 0.7 * tokenOverlap(query, tokens)
		if _, ok := tokens[sym]; ok && sym != "" {
			score += 0.1
		}
		if hinted[c.Doc.Type] {
			score += 0.2
		}
		c.Score = score
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Order != ranked[j].Order {
			return ranked[i].Order < ranked[j].Order
		}
		return ranked[i].Index < ranked[j].Index
	})

	if topK > 0 && topK < len(ranked) {
		ranked = ranked[:topK]
	}
	return ranked
}

func queryTokens(question string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, token := range splitAlphaNumLower(question) {
		if _, stop := stopwords[token]; stop {
			continue
		}
		out[token] = struct{}{}
	}
	return out
}

func tokenOverlap(query, chunk map[string]struct{}) float64 {
	if len(query) == 0 || len(chunk) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := chunk[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}
	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if r == '\'' || r == '’' {
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
