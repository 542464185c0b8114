// Package sentiment implements an offline keyword-based sentiment scorer for
// financial text. It is deterministic and needs no model.
package sentiment

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/seenimoa/stockqa/pkg/models"
)

// NeutralBand is the half-width around zero inside which a net score is
// labeled NEUTRAL.
const NeutralBand = 0.1

type keyword struct {
	term   string
	weight float64
}

// bullish / bearish keyword dictionaries (lowercase).
var bullishWords = sortedKeywords(map[string]float64{
	"bullish": 0.7, "rally": 0.6, "surge": 0.7, "upbeat": 0.5,
	"positive": 0.4, "growth": 0.4, "upgrade": 0.6, "outperform": 0.6,
	"buy": 0.5, "strong": 0.4, "recovery": 0.5, "breakout": 0.6,
	"record high": 0.7, "all-time high": 0.7, "beat": 0.5,
	"exceeds": 0.5, "beats estimate": 0.6, "expansion": 0.4,
	"profit": 0.3, "dividend": 0.4, "accumulate": 0.5, "optimistic": 0.5,
	"gain": 0.4, "soar": 0.7,
})

var bearishWords = sortedKeywords(map[string]float64{
	"bearish": 0.7, "crash": 0.8, "plunge": 0.7, "slump": 0.6,
	"negative": 0.4, "downgrade": 0.6, "underperform": 0.6,
	"sell": 0.5, "weak": 0.4, "decline": 0.5, "loss": 0.4,
	"selloff": 0.7, "fall": 0.4, "correction": 0.5,
	"default": 0.7, "fraud": 0.8, "scam": 0.8, "investigation": 0.5,
	"cut": 0.3, "miss": 0.5, "warning": 0.5, "concern": 0.3,
	"lawsuit": 0.6, "pessimistic": 0.5, "recession": 0.6,
})

func sortedKeywords(m map[string]float64) []keyword {
	out := make([]keyword, 0, len(m))
	for term, w := range m {
		out = append(out, keyword{term: term, weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].term < out[j].term })
	return out
}

// ScoreHeadline returns a sentiment score for a piece of text.
// Score ranges from -1.0 (very bearish) to +1.0 (very bullish).
func ScoreHeadline(headline string) (score float64, confidence float64) {
	lower := strings.ToLower(headline)

	bullScore := 0.0
	bearScore := 0.0
	matches := 0

	for _, kw := range bullishWords {
		if strings.Contains(lower, kw.term) {
			bullScore += kw.weight
			matches++
		}
	}
	for _, kw := range bearishWords {
		if strings.Contains(lower, kw.term) {
			bearScore += kw.weight
			matches++
		}
	}

	if matches == 0 {
		return 0, 0.1 // no signal
	}

	// Net score normalized to -1..+1.
	score = (bullScore - bearScore) / (bullScore + bearScore)

	// Confidence based on number of keyword matches.
	confidence = math.Min(float64(matches)*0.15+0.2, 0.85)

	return score, confidence
}

// Score is the sentiment of one piece of evidence.
type Score struct {
	Value       float64
	Confidence  float64
	PublishedAt time.Time
}

// ScoreDocument scores a document from its title and description.
func ScoreDocument(doc models.Document) Score {
	text := doc.Title
	if doc.Description != "" {
		text += " " + doc.Description
	}
	v, c := ScoreHeadline(text)
	return Score{Value: v, Confidence: c, PublishedAt: doc.PublishedDate}
}

// Aggregate computes a time-weighted mean score. Weight halves every 24
// hours of age relative to now; undated scores count as fresh.
func Aggregate(now time.Time, scores []Score) (score float64, confidence float64) {
	if len(scores) == 0 {
		return 0, 0
	}

	weightedSum := 0.0
	totalWeight := 0.0
	confSum := 0.0
	for _, s := range scores {
		age := 0.0
		if !s.PublishedAt.IsZero() {
			age = math.Max(now.Sub(s.PublishedAt).Hours(), 0)
		}
		w := math.Exp(-math.Ln2*age/24) * s.Confidence

		weightedSum += s.Value * w
		totalWeight += w
		confSum += s.Confidence
	}

	if totalWeight > 0 {
		score = weightedSum / totalWeight
	}
	return score, confSum / float64(len(scores))
}

// Label maps a net score in -1..+1 to a labeled sentiment whose score is in
// [0,1]. Scores inside NeutralBand are NEUTRAL at 0.5; otherwise the label
// is POSITIVE or NEGATIVE with score 0.5 + |net|/2.
func Label(net float64) models.Sentiment {
	if math.IsNaN(net) || math.Abs(net) < NeutralBand {
		return models.NeutralSentiment()
	}
	net = math.Max(-1, math.Min(1, net))
	label := models.SentimentPositive
	if net < 0 {
		label = models.SentimentNegative
	}
	return models.Sentiment{Label: label, Score: 0.5 + math.Abs(net)/2}
}

// Analyze scores the answer text together with the dated evidence and
// returns the labeled overall sentiment.
func Analyze(now time.Time, answer string, evidence []models.Document) models.Sentiment {
	scores := make([]Score, 0, len(evidence)+1)
	if answer != "" {
		v, c := ScoreHeadline(answer)
		scores = append(scores, Score{Value: v, Confidence: c})
	}
	for _, d := range evidence {
		if d.Type != models.DocNews {
			continue
		}
		scores = append(scores, ScoreDocument(d))
	}
	net, _ := Aggregate(now, scores)
	return Label(net)
}
