package datasource

import (
	"go.uber.org/zap"

	"github.com/seenimoa/stockqa/internal/config"
	"github.com/seenimoa/stockqa/internal/document"
)

// Providers bundles the concrete provider implementations built at startup.
type Providers struct {
	News     *News
	Earnings *Earnings
	Stock    *Stock
}

// NewProviders builds the Yahoo/RSS providers from configuration. Each gets
// its own HTTP client so rate limits, caches and breakers are per provider.
func NewProviders(cfg *config.Config, logger *zap.Logger) *Providers {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := cfg.Providers
	clientCfg := func(name string) ClientConfig {
		return ClientConfig{
			Name:               name,
			UserAgent:          p.UserAgent,
			Timeout:            p.HTTPTimeout,
			CacheTTL:           p.CacheTTL,
			CacheSize:          p.CacheSize,
			RateLimit:          p.RateLimit,
			RateBurst:          p.RateBurst,
			BreakerMaxFailures: p.BreakerMaxFailures,
			BreakerTimeout:     p.BreakerTimeout,
		}
	}

	return &Providers{
		News: NewNews(NewClient(clientCfg(SourceNews), logger), logger.Named("news"),
			WithFeeds(cfg.News.Feeds),
			WithMaxArticles(cfg.News.MaxArticles)),
		Earnings: NewEarnings(NewClient(clientCfg(SourceEarnings), logger), p.YahooBaseURL, logger.Named("earnings")),
		Stock:    NewStock(NewClient(clientCfg(SourceStock), logger), p.YahooBaseURL, logger.Named("stock")),
	}
}

// Aggregator wires the providers into an Aggregator.
func (p *Providers) Aggregator(cfg *config.Config, logger *zap.Logger) *Aggregator {
	return NewAggregator(p.News, p.Earnings, p.Stock,
		document.NewNormalizer(document.WithQuotePageURL(cfg.Providers.QuotePageURL)),
		AggregatorConfig{DaysBack: cfg.News.DaysBack, StockPeriod: cfg.Providers.StockPeriod},
		logger)
}
