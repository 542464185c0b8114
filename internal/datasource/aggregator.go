package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stockqa/internal/document"
	"github.com/seenimoa/stockqa/pkg/models"
)

// Source status keys, one per provider slot.
const (
	SourceNews     = "news"
	SourceEarnings = "earnings"
	SourceStock    = "stock"
)

// Recorder observes the outcome of each provider call.
type Recorder interface {
	ObserveFetch(source string, docs int, err error, elapsed time.Duration)
}

// Collection is the evidence gathered for one query.
type Collection struct {
	Corpus  models.Corpus
	Sources map[string]models.SourceStatus
}

// AggregatorConfig holds the per-query fetch parameters.
type AggregatorConfig struct {
	DaysBack    int
	StockPeriod string
}

// Aggregator fetches from the news, earnings and stock providers
// concurrently. Every provider call is its own fault boundary: an error or
// panic in one is recorded in its status entry and never affects the others.
type Aggregator struct {
	news       NewsProvider
	earnings   EarningsProvider
	stock      PriceProvider
	normalizer *document.Normalizer
	cfg        AggregatorConfig
	recorder   Recorder
	logger     *zap.Logger
}

// NewAggregator creates an aggregator. Nil providers are reported as not
// configured on every query.
func NewAggregator(news NewsProvider, earnings EarningsProvider, stock PriceProvider,
	normalizer *document.Normalizer, cfg AggregatorConfig, logger *zap.Logger) *Aggregator {
	if normalizer == nil {
		normalizer = document.NewNormalizer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DaysBack <= 0 {
		cfg.DaysBack = 30
	}
	if cfg.StockPeriod == "" {
		cfg.StockPeriod = DefaultStockPeriod
	}
	return &Aggregator{
		news:       news,
		earnings:   earnings,
		stock:      stock,
		normalizer: normalizer,
		cfg:        cfg,
		logger:     logger,
	}
}

// Configured reports which provider slots have an implementation.
func (a *Aggregator) Configured() map[string]bool {
	return map[string]bool{
		SourceNews:     a.news != nil,
		SourceEarnings: a.earnings != nil,
		SourceStock:    a.stock != nil,
	}
}

// SetRecorder attaches a fetch observer.
func (a *Aggregator) SetRecorder(r Recorder) { a.recorder = r }

// Collect invokes each provider exactly once and returns the corpus in
// fixed provider order (news, earnings, stock) with one status per provider.
// symbol must already be normalized.
func (a *Aggregator) Collect(ctx context.Context, symbol, companyName string) Collection {
	type slot struct {
		name  string
		fetch func(context.Context) ([]models.Document, error)
	}
	slots := []slot{
		{SourceNews, func(ctx context.Context) ([]models.Document, error) {
			if a.news == nil {
				return nil, ErrNotConfigured
			}
			items, err := a.news.FetchCompanyNews(ctx, symbol, companyName, a.cfg.DaysBack)
			if err != nil {
				return nil, err
			}
			return a.normalizer.News(symbol, items), nil
		}},
		{SourceEarnings, func(ctx context.Context) ([]models.Document, error) {
			if a.earnings == nil {
				return nil, ErrNotConfigured
			}
			data, err := a.earnings.FetchEarningsData(ctx, symbol)
			if err != nil {
				return nil, err
			}
			return a.normalizer.Earnings(symbol, data), nil
		}},
		{SourceStock, func(ctx context.Context) ([]models.Document, error) {
			if a.stock == nil {
				return nil, ErrNotConfigured
			}
			data, err := a.stock.FetchStockData(ctx, symbol, a.cfg.StockPeriod)
			if err != nil {
				return nil, err
			}
			return a.normalizer.Stock(symbol, data), nil
		}},
	}

	batches := make([][]models.Document, len(slots))
	statuses := make(map[string]models.SourceStatus, len(slots))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range slots {
		g.Go(func() error {
			start := time.Now()
			docs, err := guard(gctx, s.fetch)
			elapsed := time.Since(start)

			if a.recorder != nil {
				a.recorder.ObserveFetch(s.name, len(docs), err, elapsed)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.logger.Warn("provider fetch failed",
					zap.String("source", s.name),
					zap.String("symbol", symbol),
					zap.Duration("elapsed", elapsed),
					zap.Error(err))
				statuses[s.name] = models.StatusError(err)
				return nil // non-fatal
			}
			a.logger.Debug("provider fetch succeeded",
				zap.String("source", s.name),
				zap.String("symbol", symbol),
				zap.Int("documents", len(docs)),
				zap.Duration("elapsed", elapsed))
			batches[i] = docs
			statuses[s.name] = models.StatusCount(len(docs))
			return nil
		})
	}
	_ = g.Wait()

	return Collection{
		Corpus:  document.BuildCorpus(batches...),
		Sources: statuses,
	}
}

// guard runs fetch and converts a panic into an error.
func guard(ctx context.Context, fetch func(context.Context) ([]models.Document, error)) (docs []models.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			docs, err = nil, fmt.Errorf("provider panic: %v", r)
		}
	}()
	return fetch(ctx)
}
