package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nolia/nolia/internal/apperr"
	"github.com/nolia/nolia/internal/model"
)

// TavilyProvider queries the Tavily search API (bearer-auth POST).
// It can return raw page content alongside snippets.
type TavilyProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewTavilyProvider creates the provider. An empty API key disables it.
func NewTavilyProvider(cfg model.TavilyConfig, timeout time.Duration) *TavilyProvider {
	return &TavilyProvider{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

func (p *TavilyProvider) Name() string { return "tavily" }

func (p *TavilyProvider) Enabled() bool { return p.apiKey != "" }

type tavilyRequest struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	Topic             string `json:"topic"`
	TimeRange         string `json:"time_range,omitempty"`
	SearchDepth       string `json:"search_depth"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent any    `json:"include_raw_content"`
}

type tavilyResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Content       string `json:"content"`
		RawContent    string `json:"raw_content"`
		RawContentAlt string `json:"rawContent"`
		PublishedDate string `json:"published_date"`
	} `json:"results"`
}

// Search issues one query with the full option set
func (p *TavilyProvider) Search(ctx context.Context, query string, max int, opts Options) (*Result, error) {
	if !p.Enabled() {
		return &Result{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	topic := string(opts.Topic)
	if topic == "" {
		topic = string(model.TopicGeneral)
	}
	var rawContent any = false
	if opts.IncludeRawContent {
		rawContent = "text"
	}
	body, err := json.Marshal(tavilyRequest{
		Query:             query,
		MaxResults:        max,
		Topic:             topic,
		TimeRange:         normalizeTimeRange(opts.TimeRange),
		SearchDepth:       string(opts.Depth),
		IncludeAnswer:     false,
		IncludeRawContent: rawContent,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, apperr.UpstreamSearch(fmt.Errorf("tavily: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.UpstreamSearch(fmt.Errorf("tavily: unexpected status %d", resp.StatusCode))
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperr.UpstreamSearch(fmt.Errorf("tavily: decode response: %w", err))
	}

	out := &Result{RawContent: make(map[string]string)}
	for _, r := range parsed.Results {
		if r.URL == "" {
			continue
		}
		snippet := r.Content
		if r.PublishedDate != "" {
			snippet += "\nPublished: " + r.PublishedDate
		}
		out.Results = append(out.Results, model.WebSearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: snippet,
		})
		raw := r.RawContent
		if raw == "" {
			raw = r.RawContentAlt
		}
		if raw != "" {
			out.RawContent[r.URL] = raw
		}
	}
	return out, nil
}

// normalizeTimeRange maps the short forms to Tavily's long forms
func normalizeTimeRange(tr string) string {
	switch tr {
	case "d":
		return "day"
	case "w":
		return "week"
	case "m":
		return "month"
	case "y":
		return "year"
	default:
		return tr
	}
}
