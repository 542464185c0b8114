package qa

import (
	"context"
	"fmt"

	"github.com/seenimoa/stockqa/pkg/models"
)

// Engine synthesizes an answer from a corpus.
type Engine interface {
	ProcessQuery(ctx context.Context, question, symbol string, docs []models.Document) (models.QueryResult, error)
}

// Path names the branch Orchestrate took.
type Path string

const (
	PathUnavailable Path = "unavailable"
	PathEmptyCorpus Path = "empty_corpus"
	PathEngine      Path = "engine"
	PathFallback    Path = "fallback"
)

// fallbackSourceLimit caps the citations of a fallback result.
const fallbackSourceLimit = 5

const unavailableAnswer = "The AI system is not available. Please check the logs and ensure all dependencies are properly installed."

// Orchestrate produces the QueryResult for a validated question. A nil
// engine means the engine never initialized. Engine errors and panics are
// turned into a fallback result; Orchestrate itself never fails.
func Orchestrate(ctx context.Context, engine Engine, question, symbol string, corpus models.Corpus) (models.QueryResult, Path) {
	if engine == nil {
		return degraded(unavailableAnswer, ErrEngineUnavailable.Error()), PathUnavailable
	}

	if corpus.Empty() {
		return degraded(fmt.Sprintf(
			"I couldn't find any relevant financial data for %s. Please verify the stock symbol is correct.",
			symbol), ""), PathEmptyCorpus
	}

	result, err := invoke(ctx, engine, question, symbol, corpus.Documents)
	if err != nil {
		return fallback(symbol, corpus, err), PathFallback
	}
	if result.Sources == nil {
		result.Sources = []string{}
	}
	if result.Metrics == nil {
		result.Metrics = map[string]any{}
	}
	return result, PathEngine
}

// invoke is the engine fault boundary.
func invoke(ctx context.Context, engine Engine, question, symbol string, docs []models.Document) (result models.QueryResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return engine.ProcessQuery(ctx, question, symbol, docs)
}

func fallback(symbol string, corpus models.Corpus, err error) models.QueryResult {
	msg := err.Error()
	if msg == "" {
		msg = "unknown error"
	}

	sources := make([]string, 0, fallbackSourceLimit)
	for i, d := range corpus.Documents {
		if i >= fallbackSourceLimit {
			break
		}
		if d.URL != "" {
			sources = append(sources, d.URL)
		}
	}

	return models.QueryResult{
		Answer: fmt.Sprintf("I found %d relevant documents for %s, but encountered an error processing your question "+
			"with the AI system. Error: %s. Please try rephrasing your question or try again later.",
			corpus.Count, symbol, msg),
		Sentiment:   models.NeutralSentiment(),
		Confidence:  0,
		Sources:     sources,
		Metrics:     map[string]any{},
		ContextUsed: corpus.Count,
		Error:       msg,
	}
}

func degraded(answer, errMsg string) models.QueryResult {
	return models.QueryResult{
		Answer:     answer,
		Sentiment:  models.NeutralSentiment(),
		Confidence: 0,
		Sources:    []string{},
		Metrics:    map[string]any{},
		Error:      errMsg,
	}
}
