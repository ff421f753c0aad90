package model

import "time"

// Config is the complete service configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Brave      BraveConfig      `yaml:"brave"`
	Tavily     TavilyConfig     `yaml:"tavily"`
	HTTP       HTTPConfig       `yaml:"http"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Cache      CacheConfig      `yaml:"cache"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Port          int    `yaml:"port"`
	Env           string `yaml:"env"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// IsProduction reports whether the server runs in production mode
func (s ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

// OpenRouterConfig configures the LLM completion provider
type OpenRouterConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
	AppTitle     string `yaml:"app_title"`
}

// BraveConfig configures search provider A
type BraveConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// TavilyConfig configures search provider B
type TavilyConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// HTTPConfig controls outbound fetching
type HTTPConfig struct {
	UserAgent     string        `yaml:"user_agent"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	SearchTimeout time.Duration `yaml:"search_timeout"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes"`
	HTTPProxy     string        `yaml:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy"`
}

// RateLimitConfig controls the inbound per-IP fixed window
type RateLimitConfig struct {
	Window time.Duration `yaml:"window"`
	Max    int           `yaml:"max"`
}

// CacheConfig controls the ask response cache
type CacheConfig struct {
	TTL      time.Duration `yaml:"ttl"`
	Capacity int           `yaml:"capacity"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the built-in defaults. Env vars and config files
// override these in the CLI layer.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 5000,
			Env:  "development",
		},
		OpenRouter: OpenRouterConfig{
			BaseURL:  "https://openrouter.ai/api/v1",
			AppTitle: "Nolia",
		},
		Brave: BraveConfig{
			BaseURL: "https://api.search.brave.com/res/v1/web/search",
		},
		Tavily: TavilyConfig{
			BaseURL: "https://api.tavily.com",
		},
		HTTP: HTTPConfig{
			UserAgent:     "Nolia/1.0 (+https://github.com/nolia/nolia)",
			FetchTimeout:  10 * time.Second,
			SearchTimeout: 10 * time.Second,
			MaxBodyBytes:  1_000_000,
		},
		RateLimit: RateLimitConfig{
			Window: time.Minute,
			Max:    10,
		},
		Cache: CacheConfig{
			TTL:      30 * time.Second,
			Capacity: 500,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Redacted returns a copy safe for display: API keys are masked
func (c *Config) Redacted() *Config {
	out := *c
	out.OpenRouter.APIKey = redact(c.OpenRouter.APIKey)
	out.Brave.APIKey = redact(c.Brave.APIKey)
	out.Tavily.APIKey = redact(c.Tavily.APIKey)
	return &out
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
