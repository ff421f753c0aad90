package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/nolia/nolia/internal/apperr"
	"github.com/nolia/nolia/internal/model"
	"go.uber.org/zap"
)

// openValidator admits every parseable URL so tests can hit loopback
type openValidator struct{}

func (openValidator) Validate(_ context.Context, raw string) (*url.URL, error) {
	return url.Parse(raw)
}

// denyValidator rejects everything
type denyValidator struct{}

func (denyValidator) Validate(_ context.Context, _ string) (*url.URL, error) {
	return nil, apperr.InvalidURL("host is a private or loopback address")
}

func newTestFetcher(t *testing.T, v URLValidator, maxBytes int64) *Fetcher {
	t.Helper()
	return NewFetcher(model.HTTPConfig{
		UserAgent:    "nolia-test",
		FetchTimeout: 5 * time.Second,
		MaxBodyBytes: maxBytes,
	}, v, zap.NewNop())
}

func TestPageText_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><head><script>bad()</script></head><body><p>Hello &amp; welcome</p></body></html>")
	}))
	defer server.Close()

	f := newTestFetcher(t, openValidator{}, 1<<20)
	text, err := f.PageText(context.Background(), server.URL+"/page", 5*time.Second, 0)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !strings.Contains(text, "Hello & welcome") {
		t.Errorf("unexpected text: %q", text)
	}
	if strings.Contains(text, "bad()") {
		t.Error("script content must be stripped")
	}
}

func TestPageText_GuardRejection(t *testing.T) {
	f := newTestFetcher(t, denyValidator{}, 1<<20)
	_, err := f.PageText(context.Background(), "http://10.0.0.5/x", time.Second, 0)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindInvalidURL {
		t.Errorf("expected InvalidURL before any request, got %v", err)
	}
}

func TestPageText_RejectsNonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"not":"html"}`)
	}))
	defer server.Close()

	f := newTestFetcher(t, openValidator{}, 1<<20)
	_, err := f.PageText(context.Background(), server.URL, 5*time.Second, 0)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindUnsupportedMedia {
		t.Errorf("expected UnsupportedMediaType, got %v", err)
	}
}

func TestPageText_SizeBoundary(t *testing.T) {
	const limit = 1000
	body := strings.Repeat("a", limit)
	oversize := body + "b"

	serve := func(payload string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/robots.txt" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/html")
			_, _ = fmt.Fprint(w, payload)
		}))
	}

	exact := serve(body)
	defer exact.Close()
	f := newTestFetcher(t, openValidator{}, limit)
	if _, err := f.PageText(context.Background(), exact.URL, 5*time.Second, limit); err != nil {
		t.Errorf("body at exactly maxBytes must succeed, got %v", err)
	}

	over := serve(oversize)
	defer over.Close()
	_, err := f.PageText(context.Background(), over.URL, 5*time.Second, limit)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindPayloadTooLarge {
		t.Errorf("expected PayloadTooLarge for maxBytes+1, got %v", err)
	}
}

func TestPageText_RobotsDisallow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html>secret</html>")
	}))
	defer server.Close()

	f := newTestFetcher(t, openValidator{}, 1<<20)
	_, err := f.PageText(context.Background(), server.URL+"/private/page", 5*time.Second, 0)
	if err == nil {
		t.Fatal("expected robots.txt to block the fetch")
	}

	if _, err := f.PageText(context.Background(), server.URL+"/public/page", 5*time.Second, 0); err != nil {
		t.Errorf("allowed path should fetch, got %v", err)
	}
}

func TestPageText_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := newTestFetcher(t, openValidator{}, 1<<20)
	_, err := f.PageText(context.Background(), server.URL, 5*time.Second, 0)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindUpstreamFetch {
		t.Errorf("expected UpstreamFetch, got %v", err)
	}
}
