// Package qa is the query pipeline: it validates a question, gathers
// evidence from the providers, decides how to answer under partial or total
// unavailability, and composes the response envelope.
package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/stockqa/internal/datasource"
	"github.com/seenimoa/stockqa/pkg/models"
	"github.com/seenimoa/stockqa/pkg/utils"
)

// maxDescriptionRunes bounds the company summary description.
const maxDescriptionRunes = 500

// Collector gathers the evidence corpus for a symbol.
type Collector interface {
	Collect(ctx context.Context, symbol, companyName string) datasource.Collection
	// Configured reports which provider slots have an implementation.
	Configured() map[string]bool
}

// Observer records orchestration outcomes.
type Observer interface {
	ObserveQuery(path string, corpusSize int)
}

// Service answers questions. Its collaborators are built once and shared
// across concurrent requests.
type Service struct {
	collector Collector
	company   datasource.CompanyProvider
	engine    Engine
	observer  Observer
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithEngine sets the answer engine. Without one every query takes the
// unavailable path.
func WithEngine(e Engine) Option {
	return func(s *Service) { s.engine = e }
}

// WithCompanyProvider sets the company profile lookup.
func WithCompanyProvider(p datasource.CompanyProvider) Option {
	return func(s *Service) { s.company = p }
}

// WithObserver sets the orchestration observer.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service around collector.
func NewService(collector Collector, opts ...Option) *Service {
	s := &Service{
		collector: collector,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EngineAvailable reports whether the answer engine initialized.
func (s *Service) EngineAvailable() bool { return s.engine != nil }

// Submit answers a query. Invalid requests fail with *ValidationError before
// any provider is called. When the engine is unavailable the complete
// degraded Response is returned together with ErrEngineUnavailable.
func (s *Service) Submit(ctx context.Context, req models.QueryRequest) (models.Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return models.Response{}, invalid("question", "question is required")
	}
	symbol := utils.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		return models.Response{}, invalid("symbol", "stock symbol is required")
	}
	companyName := strings.TrimSpace(req.CompanyName)

	start := s.now()
	collection := s.collector.Collect(ctx, symbol, companyName)
	result, path := Orchestrate(ctx, s.engine, question, symbol, collection.Corpus)

	if s.observer != nil {
		s.observer.ObserveQuery(string(path), collection.Corpus.Count)
	}
	s.logger.Info("query answered",
		zap.String("symbol", symbol),
		zap.String("path", string(path)),
		zap.Int("documents", collection.Corpus.Count),
		zap.Float64("confidence", result.Confidence),
		zap.Duration("elapsed", s.now().Sub(start)))
	if path == PathFallback {
		s.logger.Error("answer engine failed", zap.String("symbol", symbol), zap.String("error", result.Error))
	}

	resp := Compose(result, symbol, companyName, collection.Sources, collection.Corpus.Count, s.now())
	if path == PathUnavailable {
		return resp, ErrEngineUnavailable
	}
	return resp, nil
}

// CompanySummary returns the profile of symbol. Descriptions longer than
// 500 characters are cut and end in "...".
func (s *Service) CompanySummary(ctx context.Context, symbol string) (models.CompanySummary, error) {
	symbol = utils.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.CompanySummary{}, invalid("symbol", "stock symbol is required")
	}
	if s.company == nil {
		return models.CompanySummary{}, fmt.Errorf("company lookup: %w", datasource.ErrNotConfigured)
	}

	info, err := s.company.FetchCompanyInfo(ctx, symbol)
	if err != nil {
		s.logger.Error("company info failed", zap.String("symbol", symbol), zap.Error(err))
		return models.CompanySummary{}, err
	}
	if info == nil {
		return models.CompanySummary{}, fmt.Errorf("company info %s: %w", symbol, datasource.ErrNoData)
	}

	out := models.CompanySummary{
		Symbol:    symbol,
		Name:      info.Name,
		MarketCap: info.MarketCap,
	}
	if out.Name == "" {
		out.Name = symbol
	}
	if info.Sector != "" {
		out.Sector = &info.Sector
	}
	if info.Industry != "" {
		out.Industry = &info.Industry
	}
	if info.BusinessSummary != "" {
		desc := utils.Truncate(info.BusinessSummary, maxDescriptionRunes)
		out.Description = &desc
	}
	return out, nil
}

// Health reports the static availability of the providers and the engine.
func (s *Service) Health() models.HealthReport {
	providers := s.collector.Configured()
	return Health(map[string]bool{
		ComponentNews:     providers[datasource.SourceNews],
		ComponentEarnings: providers[datasource.SourceEarnings],
		ComponentStock:    providers[datasource.SourceStock],
		ComponentEngine:   s.EngineAvailable(),
	}, s.now())
}

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
