package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; stockqa/1.0)"

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 8 << 20

// ClientConfig tunes a provider HTTP client.
type ClientConfig struct {
	Name               string
	UserAgent          string
	Timeout            time.Duration
	CacheTTL           time.Duration
	CacheSize          int
	RateLimit          float64 // requests per second, <= 0 means unlimited
	RateBurst          int
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
}

// Client performs rate-limited, cached GET requests behind a circuit
// breaker. Each provider owns one Client so an unhealthy upstream trips only
// its own breaker.
type Client struct {
	name      string
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
	cache     *Cache[[]byte]
	breaker   *gobreaker.CircuitBreaker[[]byte]
	logger    *zap.Logger
}

// NewClient creates a provider HTTP client.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "provider"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = time.Minute
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	log := logger.With(zap.String("provider", cfg.Name))
	maxFailures := cfg.BreakerMaxFailures
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// A missing ticker is the caller's problem, not the upstream's.
			return err == nil || errors.Is(err, ErrTickerNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		name:      cfg.Name,
		http:      &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(limit, burst),
		cache:     NewCache[[]byte](cfg.CacheSize, cfg.CacheTTL),
		breaker:   breaker,
		logger:    log,
	}
}

// Name returns the provider name the client was built for.
func (c *Client) Name() string { return c.name }

// Get fetches url and returns the response body. Successful bodies are
// cached by URL.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	if body, ok := c.cache.Get(url); ok {
		c.logger.Debug("cache hit", zap.String("url", url))
		return body, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limiter: %w", c.name, err)
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, url, headers)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s unavailable: %w", c.name, err)
		}
		return nil, err
	}

	c.cache.Set(url, body)
	return body, nil
}

// GetJSON fetches url and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	body, err := c.Get(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.name, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, application/rss+xml, text/xml, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("upstream response",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, url)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       string(body),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
