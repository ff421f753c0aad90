package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/nolia/nolia/internal/apperr"
	"github.com/nolia/nolia/internal/model"
	gocache "github.com/patrickmn/go-cache"
)

const (
	catalogCacheKey = "free-models"
	catalogCacheTTL = 10 * time.Minute
	maxFreeModels   = 100
)

// Catalog enumerates free-tier completion models. Results are cached in
// process memory for 10 minutes.
//
// go-openai's Model type does not carry OpenRouter's pricing metadata, so
// the /models call is made directly.
type Catalog struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      *gocache.Cache
}

// NewCatalog creates a Catalog for the configured provider
func NewCatalog(cfg model.OpenRouterConfig) *Catalog {
	return &Catalog{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{},
		cache:      gocache.New(catalogCacheTTL, catalogCacheTTL),
	}
}

type modelsResponse struct {
	Data []struct {
		ID      string `json:"id"`
		Pricing struct {
			Prompt     string `json:"prompt"`
			Completion string `json:"completion"`
			Request    string `json:"request"`
		} `json:"pricing"`
	} `json:"data"`
}

// ListFreeModels returns model IDs whose prompt, completion, and request
// prices are all zero or lower. Returns an empty list when no API key is
// configured.
func (c *Catalog) ListFreeModels(ctx context.Context, timeout time.Duration) ([]string, error) {
	if c.apiKey == "" {
		return []string{}, nil
	}
	if cached, found := c.cache.Get(catalogCacheKey); found {
		return cached.([]string), nil
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.UpstreamLLM(fmt.Errorf("list models: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.UpstreamLLM(fmt.Errorf("list models: unexpected status %d", resp.StatusCode))
	}

	var parsed modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperr.UpstreamLLM(fmt.Errorf("list models: decode response: %w", err))
	}

	ids := make([]string, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		if !isFree(m.Pricing.Prompt) || !isFree(m.Pricing.Completion) || !isFree(m.Pricing.Request) {
			continue
		}
		ids = append(ids, m.ID)
		if len(ids) >= maxFreeModels {
			break
		}
	}

	c.cache.Set(catalogCacheKey, ids, catalogCacheTTL)
	return ids, nil
}

func isFree(price string) bool {
	v, err := strconv.ParseFloat(price, 64)
	return err == nil && v <= 0
}
