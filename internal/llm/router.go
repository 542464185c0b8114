package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/stockqa/internal/config"
)

// Router sends chat requests to the primary provider and falls back to the
// configured chain on failure. It satisfies LLMProvider itself.
type Router struct {
	mu         sync.RWMutex
	providers  map[string]LLMProvider
	primary    string
	fallbacks  []string
	defaults   ChatOptions
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
}

// RouterOption configures the router.
type RouterOption func(*Router)

// WithFallbacks sets the fallback provider chain.
func WithFallbacks(providers ...string) RouterOption {
	return func(r *Router) { r.fallbacks = providers }
}

// WithMaxRetries sets the maximum number of retry attempts per provider.
func WithMaxRetries(n int) RouterOption {
	return func(r *Router) { r.maxRetries = n }
}

// WithRetryDelay sets the base delay between retries.
func WithRetryDelay(d time.Duration) RouterOption {
	return func(r *Router) { r.retryDelay = d }
}

// WithDefaultOptions sets options applied when a request leaves them unset.
func WithDefaultOptions(opts ChatOptions) RouterOption {
	return func(r *Router) { r.defaults = opts }
}

// WithLogger sets the router logger.
func WithLogger(logger *zap.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRouter creates a router with the given primary provider name.
func NewRouter(primary string, opts ...RouterOption) *Router {
	r := &Router{
		providers:  make(map[string]LLMProvider),
		primary:    primary,
		maxRetries: 2,
		retryDelay: time.Second,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterProvider adds a provider to the router.
func (r *Router) RegisterProvider(provider LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// GetProvider returns a registered provider by name.
func (r *Router) GetProvider(name string) (LLMProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Primary returns the primary provider.
func (r *Router) Primary() (LLMProvider, error) {
	p, ok := r.GetProvider(r.primary)
	if !ok {
		return nil, fmt.Errorf("%w: primary provider %q not registered", ErrNoProviders, r.primary)
	}
	return p, nil
}

// Chat tries the primary provider, then each fallback in order. Auth,
// model and context-length errors stop the chain.
func (r *Router) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	chain := r.providerChain()
	opts = r.withDefaults(opts)

	var lastErr error
	tried := 0
	for _, name := range chain {
		provider, ok := r.GetProvider(name)
		if !ok {
			continue
		}
		tried++

		resp, err := r.chatWithRetry(ctx, provider, messages, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		r.logger.Warn("llm provider failed", zap.String("provider", name), zap.Error(err))

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if isNonRetryable(err) {
			return nil, err
		}
	}

	if tried == 0 {
		return nil, ErrNoProviders
	}
	return nil, fmt.Errorf("llm/router: all providers failed, last error: %w", lastErr)
}

// HealthCheck pings all registered providers concurrently.
func (r *Router) HealthCheck(ctx context.Context) map[string]error {
	r.mu.RLock()
	providers := make(map[string]LLMProvider, len(r.providers))
	for k, v := range r.providers {
		providers[k] = v
	}
	r.mu.RUnlock()

	results := make(map[string]error, len(providers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, provider := range providers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			err := provider.Ping(pingCtx)
			mu.Lock()
			results[name] = err
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// Name returns "router/<primary>".
func (r *Router) Name() string {
	return "router/" + r.primary
}

// Ping succeeds if any provider in the chain answers.
func (r *Router) Ping(ctx context.Context) error {
	var errs []error
	for _, name := range r.providerChain() {
		p, ok := r.GetProvider(name)
		if !ok {
			continue
		}
		err := p.Ping(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	if len(errs) == 0 {
		return ErrNoProviders
	}
	return errors.Join(errs...)
}

// ProviderNames returns the names of all registered providers, sorted.
func (r *Router) ProviderNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Router) providerChain() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chain := []string{r.primary}
	for _, fb := range r.fallbacks {
		if fb != r.primary {
			chain = append(chain, fb)
		}
	}
	return chain
}

func (r *Router) withDefaults(opts *ChatOptions) *ChatOptions {
	merged := r.defaults
	if opts != nil {
		if opts.Model != "" {
			merged.Model = opts.Model
		}
		if opts.Temperature > 0 {
			merged.Temperature = opts.Temperature
		}
		if opts.MaxTokens > 0 {
			merged.MaxTokens = opts.MaxTokens
		}
		if opts.TopP > 0 {
			merged.TopP = opts.TopP
		}
		if len(opts.Stop) > 0 {
			merged.Stop = opts.Stop
		}
	}
	return &merged
}

func (r *Router) chatWithRetry(ctx context.Context, provider LLMProvider, messages []Message, opts *ChatOptions) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := r.retryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := provider.Chat(ctx, messages, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if isNonRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func isNonRetryable(err error) bool {
	return errors.Is(err, ErrNoAPIKey) ||
		errors.Is(err, ErrInvalidModel) ||
		errors.Is(err, ErrContextLength)
}

// NewRouterFromConfig registers every provider the configuration enables.
// Ollama is registered whenever a URL is set; OpenAI only with a key. When
// no fallbacks are configured every other registered provider is used.
func NewRouterFromConfig(cfg config.LLMConfig, logger *zap.Logger) (*Router, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var registered []LLMProvider
	if cfg.OllamaURL != "" {
		model := cfg.Model
		if cfg.Primary != ProviderOllama && cfg.Primary != "" {
			model = DefaultOllamaModel
		}
		opts := []OllamaOption{WithOllamaModel(model)}
		if cfg.Timeout > 0 {
			opts = append(opts, WithOllamaHTTPClient(&http.Client{Timeout: cfg.Timeout}))
		}
		registered = append(registered, NewOllamaProvider(cfg.OllamaURL, opts...))
	}
	if cfg.OpenAIKey != "" {
		model := ""
		if cfg.Primary == ProviderOpenAI {
			model = cfg.Model
		}
		opts := []OpenAIOption{WithOpenAIModel(model), WithOpenAIBaseURL(cfg.OpenAIBaseURL)}
		if cfg.Timeout > 0 {
			opts = append(opts, WithOpenAIHTTPClient(&http.Client{Timeout: cfg.Timeout}))
		}
		if p, err := NewOpenAIProvider(cfg.OpenAIKey, opts...); err == nil {
			registered = append(registered, p)
		}
	}
	if len(registered) == 0 {
		return nil, ErrNoProviders
	}

	primary := cfg.Primary
	fallbacks := cfg.Fallbacks
	if len(fallbacks) == 0 {
		for _, p := range registered {
			if p.Name() != primary {
				fallbacks = append(fallbacks, p.Name())
			}
		}
	}

	known := false
	for _, p := range registered {
		if p.Name() == primary {
			known = true
		}
	}
	if !known {
		logger.Warn("primary llm provider not available, using fallback",
			zap.String("primary", primary),
			zap.String("fallback", registered[0].Name()))
		primary = registered[0].Name()
	}

	// Each provider in the chain gets exactly one attempt.
	router := NewRouter(primary,
		WithFallbacks(fallbacks...),
		WithMaxRetries(0),
		WithLogger(logger),
		WithDefaultOptions(ChatOptions{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			TopP:        cfg.TopP,
		}),
	)
	for _, p := range registered {
		router.RegisterProvider(p)
	}
	return router, nil
}
