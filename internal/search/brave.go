package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nolia/nolia/internal/apperr"
	"github.com/nolia/nolia/internal/model"
)

// BraveProvider queries the Brave web-search API (header-auth GET)
type BraveProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewBraveProvider creates the provider. An empty API key disables it.
func NewBraveProvider(cfg model.BraveConfig, timeout time.Duration) *BraveProvider {
	return &BraveProvider{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

func (p *BraveProvider) Name() string { return "brave" }

func (p *BraveProvider) Enabled() bool { return p.apiKey != "" }

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search issues a single web-search query. Options are accepted for
// interface symmetry; Brave's endpoint takes only q and count.
func (p *BraveProvider) Search(ctx context.Context, query string, max int, _ Options) (*Result, error) {
	if !p.Enabled() {
		return &Result{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(max))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Subscription-Token", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, apperr.UpstreamSearch(fmt.Errorf("brave: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.UpstreamSearch(fmt.Errorf("brave: unexpected status %d", resp.StatusCode))
	}

	var parsed braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperr.UpstreamSearch(fmt.Errorf("brave: decode response: %w", err))
	}

	out := &Result{}
	for _, r := range parsed.Web.Results {
		if r.URL == "" {
			continue
		}
		out.Results = append(out.Results, model.WebSearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Description,
		})
	}
	return out, nil
}
