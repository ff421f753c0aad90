package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nolia/nolia/internal/apperr"
	"github.com/nolia/nolia/internal/model"
)

func TestBrave_DisabledWithoutKey(t *testing.T) {
	p := NewBraveProvider(model.BraveConfig{BaseURL: "http://unused"}, time.Second)
	if p.Enabled() {
		t.Error("empty API key should disable the provider")
	}
	res, err := p.Search(context.Background(), "q", 4, Options{})
	if err != nil || len(res.Results) != 0 {
		t.Errorf("disabled provider must return empty result, got %v / %v", res, err)
	}
}

func TestBrave_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Subscription-Token"); got != "brave-key" {
			t.Errorf("missing subscription token, got %q", got)
		}
		if q := r.URL.Query().Get("q"); q != "go generics" {
			t.Errorf("unexpected query %q", q)
		}
		if count := r.URL.Query().Get("count"); count != "4" {
			t.Errorf("unexpected count %q", count)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"web":{"results":[
			{"title":"Go Blog","url":"https://go.dev/blog","description":"generics intro"},
			{"title":"no url","url":"","description":"dropped"}
		]}}`)
	}))
	defer server.Close()

	p := NewBraveProvider(model.BraveConfig{APIKey: "brave-key", BaseURL: server.URL}, 5*time.Second)
	res, err := p.Search(context.Background(), "go generics", 4, Options{})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(res.Results) != 1 {
		t.Fatalf("expected 1 result (empty URL dropped), got %d", len(res.Results))
	}
	r := res.Results[0]
	if r.Title != "Go Blog" || r.URL != "https://go.dev/blog" || r.Snippet != "generics intro" {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestBrave_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewBraveProvider(model.BraveConfig{APIKey: "k", BaseURL: server.URL}, 5*time.Second)
	_, err := p.Search(context.Background(), "q", 4, Options{})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindUpstreamSearch {
		t.Errorf("expected UpstreamSearch, got %v", err)
	}
}
