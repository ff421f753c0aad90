// Package search adapts external web-search providers to one result shape.
package search

import (
	"context"

	"github.com/nolia/nolia/internal/model"
)

// Depth selects how thorough a provider search should be
type Depth string

const (
	DepthFast     Depth = "fast"
	DepthBasic    Depth = "basic"
	DepthAdvanced Depth = "advanced"
)

// Options tune a single provider call
type Options struct {
	Topic             model.WebTopic
	TimeRange         string
	Depth             Depth
	IncludeRawContent bool
}

// Result is the outcome of one provider query. RawContent maps source URLs
// to provider-supplied page text, when available.
type Result struct {
	Results    []model.WebSearchResult
	RawContent map[string]string
}

// Provider is a single web-search backend. A provider without an API key is
// disabled: Search returns an empty result and no error.
type Provider interface {
	Name() string
	Enabled() bool
	Search(ctx context.Context, query string, max int, opts Options) (*Result, error)
}
