// Package engine synthesizes answers from an evidence corpus: it chunks and
// ranks the documents, prompts a language model with the best excerpts, and
// attaches sentiment, confidence, citations and extracted metrics.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/stockqa/internal/analysis/sentiment"
	"github.com/seenimoa/stockqa/internal/config"
	"github.com/seenimoa/stockqa/internal/llm"
	"github.com/seenimoa/stockqa/pkg/models"
)

// ErrNoModel is returned by New when no language model is configured.
var ErrNoModel = errors.New("engine: no language model configured")

// Options tunes retrieval.
type Options struct {
	ChunkSize         int
	ChunkOverlap      int
	MaxDocumentLength int
	TopK              int
	PingOnStart       bool
	PingTimeout       time.Duration
}

// OptionsFromConfig maps the engine config section to Options.
func OptionsFromConfig(cfg config.EngineConfig) Options {
	return Options{
		ChunkSize:         cfg.ChunkSize,
		ChunkOverlap:      cfg.ChunkOverlap,
		MaxDocumentLength: cfg.MaxDocumentLength,
		TopK:              cfg.TopK,
		PingOnStart:       cfg.PingOnStart,
	}
}

// FinancialQA answers questions about one symbol from a document corpus.
// It holds no per-query state and is safe for concurrent use.
type FinancialQA struct {
	model    llm.LLMProvider
	splitter *Splitter
	opts     Options
	now      func() time.Time
	logger   *zap.Logger
}

// New builds the engine. With PingOnStart the model must answer a ping, so
// a missing local model server fails startup instead of every query.
func New(ctx context.Context, model llm.LLMProvider, opts Options, logger *zap.Logger) (*FinancialQA, error) {
	if model == nil {
		return nil, ErrNoModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxDocumentLength <= 0 {
		opts.MaxDocumentLength = 8000
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 10 * time.Second
	}

	if opts.PingOnStart {
		pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
		defer cancel()
		if err := model.Ping(pingCtx); err != nil {
			return nil, fmt.Errorf("engine: model %s unreachable: %w", model.Name(), err)
		}
	}

	return &FinancialQA{
		model:    model,
		splitter: NewSplitter(opts.ChunkSize, opts.ChunkOverlap),
		opts:     opts,
		now:      time.Now,
		logger:   logger,
	}, nil
}

// ProcessQuery answers question from docs. context_used is the number of
// excerpts given to the model.
func (e *FinancialQA) ProcessQuery(ctx context.Context, question, symbol string, docs []models.Document) (models.QueryResult, error) {
	chunks := e.chunk(docs)
	if len(chunks) == 0 {
		return models.QueryResult{}, fmt.Errorf("engine: corpus for %s has no text", symbol)
	}
	top := rankChunks(question, symbol, chunks, e.opts.TopK)

	start := time.Now()
	resp, err := e.model.Chat(ctx, buildMessages(question, symbol, top), nil)
	if err != nil {
		return models.QueryResult{}, fmt.Errorf("engine: generate answer: %w", err)
	}
	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		return models.QueryResult{}, llm.ErrEmptyAnswer
	}
	e.logger.Debug("answer generated",
		zap.String("symbol", symbol),
		zap.String("provider", resp.Provider),
		zap.Int("chunks", len(top)),
		zap.Int("tokens", resp.Usage.TotalTokens),
		zap.Duration("elapsed", time.Since(start)))

	used := usedDocuments(top)
	return models.QueryResult{
		Answer:      answer,
		Sentiment:   sentiment.Analyze(e.now(), answer, docs),
		Confidence:  confidence(top, len(used)),
		Sources:     sourceURLs(used),
		Metrics:     extractMetrics(structuredDocuments(docs)),
		ContextUsed: len(top),
	}, nil
}

func (e *FinancialQA) chunk(docs []models.Document) []Chunk {
	var chunks []Chunk
	for i := range docs {
		d := &docs[i]
		text := truncateRunes(documentText(d), e.opts.MaxDocumentLength)
		for j, part := range e.splitter.Split(text) {
			chunks = append(chunks, Chunk{Doc: d, Order: i, Index: j, Text: part})
		}
	}
	return chunks
}

// usedDocuments returns the distinct documents behind chunks, in rank order.
func usedDocuments(chunks []Chunk) []*models.Document {
	seen := make(map[*models.Document]bool, len(chunks))
	out := make([]*models.Document, 0, len(chunks))
	for _, c := range chunks {
		if !seen[c.Doc] {
			seen[c.Doc] = true
			out = append(out, c.Doc)
		}
	}
	return out
}

func sourceURLs(docs []*models.Document) []string {
	seen := make(map[string]bool, len(docs))
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.URL == "" || seen[d.URL] {
			continue
		}
		seen[d.URL] = true
		out = append(out, d.URL)
	}
	return out
}

func structuredDocuments(docs []models.Document) []*models.Document {
	out := make([]*models.Document, 0, len(docs))
	for i := range docs {
		if docs[i].Type.Structured() {
			out = append(out, &docs[i])
		}
	}
	return out
}

// confidence blends the mean retrieval score of the excerpts with how many
// distinct documents back them. Result is in [0,1], two decimals.
func confidence(chunks []Chunk, distinctDocs int) float64 {
	if len(chunks) == 0 {
		return 0
	}
	var sum float64
	for _, c := range chunks {
		sum += c.Score
	}
	mean := sum / float64(len(chunks))
	breadth := math.Min(float64(distinctDocs)/3, 1)
	c := 0.2 + 0.5*math.Min(mean, 1) + 0.3*breadth
	return math.Round(math.Min(c, 1)*100) / 100
}
