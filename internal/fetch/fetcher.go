// Package fetch retrieves and extracts text from evidence pages with
// SSRF validation, robots.txt compliance, size caps, and per-host pacing.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nolia/nolia/internal/apperr"
	"github.com/nolia/nolia/internal/model"
	"go.uber.org/zap"
)

const maxRedirects = 3

// URLValidator approves outbound URLs before any request is made
type URLValidator interface {
	Validate(ctx context.Context, raw string) (*url.URL, error)
}

// Fetcher fetches page text from approved URLs
type Fetcher struct {
	httpClient *http.Client
	guard      URLValidator
	robots     *RobotsChecker
	pacer      *HostPacer
	userAgent  string
	maxBytes   int64
	log        *zap.Logger
}

// NewFetcher creates a Fetcher. Every redirect hop is re-validated against
// the SSRF guard before it is followed.
func NewFetcher(cfg model.HTTPConfig, g URLValidator, log *zap.Logger) *Fetcher {
	f := &Fetcher{
		guard:     g,
		robots:    NewRobotsChecker(cfg.UserAgent, cfg.FetchTimeout),
		pacer:     NewHostPacer(2, 4),
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
		log:       log,
	}
	f.httpClient = &http.Client{
		Transport: &http.Transport{
			Proxy: newProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			if _, err := g.Validate(req.Context(), req.URL.String()); err != nil {
				return fmt.Errorf("redirect target rejected: %w", err)
			}
			return nil
		},
	}
	return f
}

// PageText fetches the URL and returns its plain text, bounded by timeout
// and maxBytes. A zero maxBytes falls back to the configured limit; a zero
// timeout adds no deadline beyond the one ctx already carries.
func (f *Fetcher) PageText(ctx context.Context, rawURL string, timeout time.Duration, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = f.maxBytes
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	u, err := f.guard.Validate(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if allowed, _ := f.robots.CanFetch(ctx, u.String()); !allowed {
		return "", apperr.UpstreamFetch(fmt.Errorf("disallowed by robots.txt: %s", u.Host))
	}

	if err := f.pacer.Wait(ctx, u.Host); err != nil {
		return "", fmt.Errorf("host pacing: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", apperr.UpstreamFetch(fmt.Errorf("fetch %s: %w", u.Host, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperr.UpstreamFetch(fmt.Errorf("unexpected status %d from %s", resp.StatusCode, u.Host))
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContentType(contentType) {
		return "", apperr.UnsupportedMediaType(contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return "", apperr.UpstreamFetch(fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > maxBytes {
		return "", apperr.PayloadTooLarge(fmt.Sprintf("response exceeds %d bytes", maxBytes))
	}

	return HTMLToText(string(body)), nil
}

func isHTMLContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// newProxyFunc builds the transport proxy selector. Without explicit proxy
// settings it falls back to the standard environment variables.
func newProxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}
	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}
