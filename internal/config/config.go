// Package config handles configuration loading for stockqa.
// It supports YAML config files, a .env file, and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable the service reads.
const EnvPrefix = "STOCKQA"

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    yaml:"server"`
	News      NewsConfig      `mapstructure:"news"      yaml:"news"`
	Providers ProvidersConfig `mapstructure:"providers" yaml:"providers"`
	LLM       LLMConfig       `mapstructure:"llm"       yaml:"llm"`
	Engine    EngineConfig    `mapstructure:"engine"    yaml:"engine"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"             yaml:"host"`
	Port            int           `mapstructure:"port"             yaml:"port"`
	CORSOrigins     []string      `mapstructure:"cors_origins"     yaml:"cors_origins"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"  yaml:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// NewsConfig holds news feed settings. Feed URLs are templates; {symbol}
// and {query} are substituted per request.
type NewsConfig struct {
	Feeds       []string `mapstructure:"feeds"        yaml:"feeds"`
	DaysBack    int      `mapstructure:"days_back"    yaml:"days_back"`
	MaxArticles int      `mapstructure:"max_articles" yaml:"max_articles"`
}

// ProvidersConfig holds market-data provider settings.
type ProvidersConfig struct {
	YahooBaseURL       string        `mapstructure:"yahoo_base_url"       yaml:"yahoo_base_url"`
	QuotePageURL       string        `mapstructure:"quote_page_url"       yaml:"quote_page_url"`
	StockPeriod        string        `mapstructure:"stock_period"         yaml:"stock_period"`
	UserAgent          string        `mapstructure:"user_agent"           yaml:"user_agent"`
	HTTPTimeout        time.Duration `mapstructure:"http_timeout"         yaml:"http_timeout"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"            yaml:"cache_ttl"`
	CacheSize          int           `mapstructure:"cache_size"           yaml:"cache_size"` // entries per provider
	RateLimit          float64       `mapstructure:"rate_limit"           yaml:"rate_limit"` // requests per second
	RateBurst          int           `mapstructure:"rate_burst"           yaml:"rate_burst"`
	BreakerMaxFailures uint32        `mapstructure:"breaker_max_failures" yaml:"breaker_max_failures"`
	BreakerTimeout     time.Duration `mapstructure:"breaker_timeout"      yaml:"breaker_timeout"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Primary       string        `mapstructure:"primary"         yaml:"primary"` // "ollama" or "openai"
	Fallbacks     []string      `mapstructure:"fallbacks"       yaml:"fallbacks"`
	OllamaURL     string        `mapstructure:"ollama_url"      yaml:"ollama_url"`
	OpenAIKey     string        `mapstructure:"openai_key"      yaml:"openai_key"`
	OpenAIBaseURL string        `mapstructure:"openai_base_url" yaml:"openai_base_url"`
	Model         string        `mapstructure:"model"           yaml:"model"`
	Temperature   float64       `mapstructure:"temperature"     yaml:"temperature"`
	MaxTokens     int           `mapstructure:"max_tokens"      yaml:"max_tokens"`
	TopP          float64       `mapstructure:"top_p"           yaml:"top_p"`
	Timeout       time.Duration `mapstructure:"timeout"         yaml:"timeout"`
}

// EngineConfig holds answer-synthesis settings.
type EngineConfig struct {
	Enabled           bool `mapstructure:"enabled"             yaml:"enabled"`
	ChunkSize         int  `mapstructure:"chunk_size"          yaml:"chunk_size"`
	ChunkOverlap      int  `mapstructure:"chunk_overlap"       yaml:"chunk_overlap"`
	MaxDocumentLength int  `mapstructure:"max_document_length" yaml:"max_document_length"`
	TopK              int  `mapstructure:"top_k"               yaml:"top_k"`
	PingOnStart       bool `mapstructure:"ping_on_start"       yaml:"ping_on_start"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// A .env file in the working directory is loaded first; variables already
// present in the environment win.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.stockqa/config.yaml (home directory)
//  3. /etc/stockqa/config.yaml (system)
//
// Environment variables override config file values.
// Format: STOCKQA_<SECTION>_<KEY>, e.g., STOCKQA_SERVER_PORT
func Load() (*Config, error) {
	loadEnvFile(".env")

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".stockqa"))
	v.AddConfigPath("/etc/stockqa")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile(".env")

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8888)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.request_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// News defaults
	v.SetDefault("news.feeds", []string{
		"https://feeds.finance.yahoo.com/rss/2.0/headline?s={symbol}&region=US&lang=en-US",
		"https://news.google.com/rss/search?q={query}&hl=en-US&gl=US&ceid=US:en",
	})
	v.SetDefault("news.days_back", 30)
	v.SetDefault("news.max_articles", 20)

	// Provider defaults
	v.SetDefault("providers.yahoo_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("providers.quote_page_url", "https://finance.yahoo.com/quote")
	v.SetDefault("providers.stock_period", "1y")
	v.SetDefault("providers.user_agent", "Mozilla/5.0 (compatible; stockqa/1.0)")
	v.SetDefault("providers.http_timeout", "15s")
	v.SetDefault("providers.cache_ttl", "6h")
	v.SetDefault("providers.cache_size", 512)
	v.SetDefault("providers.rate_limit", 2.0)
	v.SetDefault("providers.rate_burst", 4)
	v.SetDefault("providers.breaker_max_failures", 5)
	v.SetDefault("providers.breaker_timeout", "60s")

	// LLM defaults
	v.SetDefault("llm.primary", "ollama")
	v.SetDefault("llm.fallbacks", []string{})
	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.openai_base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "llama3.1")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.top_p", 0.9)
	v.SetDefault("llm.timeout", "120s")

	// Engine defaults
	v.SetDefault("engine.enabled", true)
	v.SetDefault("engine.chunk_size", 1000)
	v.SetDefault("engine.chunk_overlap", 200)
	v.SetDefault("engine.max_document_length", 8000)
	v.SetDefault("engine.top_k", 5)
	v.SetDefault("engine.ping_on_start", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks cross-field constraints that defaults alone cannot enforce.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Engine.ChunkSize <= 0 {
		return fmt.Errorf("engine.chunk_size must be positive, got %d", c.Engine.ChunkSize)
	}
	if c.Engine.ChunkOverlap < 0 || c.Engine.ChunkOverlap >= c.Engine.ChunkSize {
		return fmt.Errorf("engine.chunk_overlap must be in [0, %d), got %d", c.Engine.ChunkSize, c.Engine.ChunkOverlap)
	}
	if c.Engine.TopK <= 0 {
		return fmt.Errorf("engine.top_k must be positive, got %d", c.Engine.TopK)
	}
	if c.News.MaxArticles <= 0 {
		return fmt.Errorf("news.max_articles must be positive, got %d", c.News.MaxArticles)
	}
	return nil
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// The conventional OPENAI_API_KEY is honored when the prefixed one is unset.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("STOCKQA_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.LLM.OpenAIKey == "" {
		cfg.LLM.OpenAIKey = key
	}
}

// loadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func loadEnvFile(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	return godotenv.Load(path) == nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
