package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/seenimoa/stockqa/internal/config"
	"github.com/seenimoa/stockqa/internal/datasource"
	"github.com/seenimoa/stockqa/internal/engine"
	"github.com/seenimoa/stockqa/internal/llm"
	"github.com/seenimoa/stockqa/internal/metrics"
	"github.com/seenimoa/stockqa/internal/qa"
)

// app holds the process-lifetime collaborators.
type app struct {
	metrics *metrics.Metrics
	service *qa.Service
}

// newApp builds providers, the engine and the query service once. A failed
// engine leaves the service running in degraded mode.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) *app {
	m := metrics.New()

	providers := datasource.NewProviders(cfg, logger)
	agg := providers.Aggregator(cfg, logger.Named("aggregator"))
	agg.SetRecorder(m)

	opts := []qa.Option{
		qa.WithCompanyProvider(providers.Earnings),
		qa.WithObserver(m),
		qa.WithLogger(logger.Named("qa")),
	}
	if eng := newEngine(ctx, cfg, logger); eng != nil {
		opts = append(opts, qa.WithEngine(eng))
	}

	return &app{
		metrics: m,
		service: qa.NewService(agg, opts...),
	}
}

func newEngine(ctx context.Context, cfg *config.Config, logger *zap.Logger) *engine.FinancialQA {
	if !cfg.Engine.Enabled {
		logger.Warn("answer engine disabled by configuration")
		return nil
	}
	router, err := llm.NewRouterFromConfig(cfg.LLM, logger.Named("llm"))
	if err != nil {
		logger.Error("llm setup failed, answer engine unavailable", zap.Error(err))
		return nil
	}
	eng, err := engine.New(ctx, router, engine.OptionsFromConfig(cfg.Engine), logger.Named("engine"))
	if err != nil {
		logger.Error("answer engine unavailable", zap.Error(err))
		return nil
	}
	logger.Info("answer engine ready",
		zap.String("primary", cfg.LLM.Primary),
		zap.Strings("providers", router.ProviderNames()))
	return eng
}
