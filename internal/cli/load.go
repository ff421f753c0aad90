package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/nolia/nolia/internal/model"
	"github.com/spf13/viper"
)

// loadConfig layers the config file and well-known environment variables on
// top of the defaults
func loadConfig() (model.Config, error) {
	cfg := *model.DefaultConfig()

	if viper.ConfigFileUsed() != "" {
		if err := viper.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv binds the provider-conventional variable names that do not carry
// the NOLIA_ prefix
func applyEnv(cfg *model.Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.OpenRouter.APIKey, "OPENROUTER_API_KEY")
	setString(&cfg.OpenRouter.BaseURL, "OPENROUTER_BASE_URL")
	setString(&cfg.OpenRouter.DefaultModel, "OPENROUTER_DEFAULT_MODEL")
	setString(&cfg.Brave.APIKey, "BRAVE_SEARCH_API_KEY")
	setString(&cfg.Brave.BaseURL, "BRAVE_SEARCH_BASE_URL")
	setString(&cfg.Tavily.APIKey, "TAVILY_API_KEY")
	setString(&cfg.Tavily.BaseURL, "TAVILY_BASE_URL")
	setString(&cfg.Server.Env, "NODE_ENV")
	setString(&cfg.Server.PublicBaseURL, "PUBLIC_BASE_URL")

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
}
