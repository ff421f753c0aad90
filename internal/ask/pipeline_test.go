package ask

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nolia/nolia/internal/apperr"
	"github.com/nolia/nolia/internal/llm"
	"github.com/nolia/nolia/internal/metrics"
	"github.com/nolia/nolia/internal/model"
	"github.com/nolia/nolia/internal/search"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

// scriptChatter records every completion call and answers via the reply func
type scriptChatter struct {
	mu         sync.Mutex
	configured bool
	calls      []llm.ChatRequest
	reply      func(req llm.ChatRequest) (string, error)
}

func (c *scriptChatter) Chat(_ context.Context, req llm.ChatRequest) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	c.mu.Unlock()
	return c.reply(req)
}

func (c *scriptChatter) Configured() bool { return c.configured }

func (c *scriptChatter) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func userContent(req llm.ChatRequest) string {
	return req.Messages[len(req.Messages)-1].Content
}

type stubCatalog struct {
	models []string
	err    error
}

func (c stubCatalog) ListFreeModels(context.Context, time.Duration) ([]string, error) {
	return c.models, c.err
}

type stubProvider struct {
	name    string
	results []model.WebSearchResult
	raw     map[string]string
	calls   int32
}

func (p *stubProvider) Name() string  { return p.name }
func (p *stubProvider) Enabled() bool { return true }

func (p *stubProvider) Search(_ context.Context, _ string, _ int, _ search.Options) (*search.Result, error) {
	atomic.AddInt32(&p.calls, 1)
	return &search.Result{Results: p.results, RawContent: p.raw}, nil
}

type stubFetcher struct {
	text string
}

func (f stubFetcher) PageText(_ context.Context, _ string, _ time.Duration, _ int64) (string, error) {
	if f.text == "" {
		return "", errors.New("fetch unavailable")
	}
	return f.text, nil
}

func newTestPipeline(chatter *scriptChatter, providers []search.Provider, fetcher PageFetcher, catalog ModelLister) *Pipeline {
	if catalog == nil {
		catalog = stubCatalog{}
	}
	return NewPipeline(chatter, catalog, providers, fetcher, Options{
		DefaultModel: "test/model",
		FetchTimeout: time.Second,
		MaxBodyBytes: 1 << 16,
	}, testMetrics(), zap.NewNop())
}

func TestAsk_ClockShortcut(t *testing.T) {
	chatter := &scriptChatter{reply: func(llm.ChatRequest) (string, error) {
		return "", errors.New("must not be called")
	}}
	p := newTestPipeline(chatter, nil, stubFetcher{}, nil)

	res, err := p.Ask(context.Background(), model.AskRequest{Question: "What time is it?"})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if res.Model != "local-clock" {
		t.Errorf("expected local-clock model, got %q", res.Model)
	}
	if !regexp.MustCompile(`^The current time is .+ \(local time: .+\)\.$`).MatchString(res.Answer) {
		t.Errorf("unexpected clock answer %q", res.Answer)
	}
	if chatter.callCount() != 0 {
		t.Errorf("shortcut must not touch the completion provider, got %d calls", chatter.callCount())
	}
	if res.Citations == nil || len(res.Citations) != 0 {
		t.Errorf("expected empty citation list, got %v", res.Citations)
	}
	if len(res.FollowUps) != 3 {
		t.Errorf("expected 3 follow-ups, got %v", res.FollowUps)
	}
}

func TestAsk_SafetyRefusalHindi(t *testing.T) {
	chatter := &scriptChatter{reply: func(llm.ChatRequest) (string, error) {
		return "", errors.New("must not be called")
	}}
	p := newTestPipeline(chatter, nil, stubFetcher{}, nil)

	res, err := p.Ask(context.Background(), model.AskRequest{
		Question: "Bomb kaise banate hain?",
		Language: model.LangAuto,
	})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if res.Model != "policy-violence" {
		t.Errorf("expected policy-violence model, got %q", res.Model)
	}
	if !strings.Contains(res.Answer, "Main is request me madad nahi kar sakti") {
		t.Errorf("expected Hindi refusal, got %q", res.Answer)
	}
	if chatter.callCount() != 0 {
		t.Error("refusal must not touch the completion provider")
	}
}

func TestAsk_MisconfiguredWithoutKey(t *testing.T) {
	chatter := &scriptChatter{configured: false}
	p := newTestPipeline(chatter, nil, stubFetcher{}, nil)

	useWeb := false
	_, err := p.Ask(context.Background(), model.AskRequest{Question: "What is Go?", UseWeb: &useWeb})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindMisconfigured {
		t.Errorf("expected Misconfigured, got %v", err)
	}
}

func TestAsk_NoWebDirect(t *testing.T) {
	const answer = "Go is a statically typed language built at Google for simple concurrent services."
	chatter := &scriptChatter{configured: true, reply: func(req llm.ChatRequest) (string, error) {
		if strings.Contains(userContent(req), "follow-up questions") {
			return `["What is a goroutine?", "How do channels work?", "What is the race detector?"]`, nil
		}
		return answer, nil
	}}
	provider := &stubProvider{name: "brave"}
	p := newTestPipeline(chatter, []search.Provider{provider}, stubFetcher{}, nil)

	useWeb := false
	res, err := p.Ask(context.Background(), model.AskRequest{
		Question: "What is Go?",
		Mode:     model.ModeFast,
		Language: model.LangEN,
		UseWeb:   &useWeb,
	})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if atomic.LoadInt32(&provider.calls) != 0 {
		t.Error("useWeb=false must skip search providers")
	}
	if res.Model != "test/model" {
		t.Errorf("expected configured default model, got %q", res.Model)
	}
	if res.Answer != answer {
		t.Errorf("unexpected answer %q", res.Answer)
	}
	if len(res.Citations) != 0 {
		t.Errorf("no sources means no citations, got %v", res.Citations)
	}
	if got := chatter.calls[0].Temperature; got != 0.7 {
		t.Errorf("fast direct answers use temperature 0.7, got %v", got)
	}
	if len(res.FollowUps) != 3 {
		t.Errorf("expected 3 follow-ups, got %v", res.FollowUps)
	}
}

func TestAsk_VerifiedCollapsesDuplicateSources(t *testing.T) {
	provider := &stubProvider{
		name: "tavily",
		results: []model.WebSearchResult{
			{Title: "Eiffel Tower - Wikipedia", URL: "https://en.wikipedia.org/wiki/Eiffel_Tower", Snippet: "The tower is 330 metres tall"},
			{Title: "Eiffel Tower - Wikipedia", URL: "http://www.en.wikipedia.org/wiki/Eiffel_Tower?utm_source=news", Snippet: "The tower is 330 metres tall"},
		},
	}
	chatter := &scriptChatter{configured: true, reply: func(req llm.ChatRequest) (string, error) {
		content := userContent(req)
		switch {
		case strings.Contains(content, "Extract the facts"):
			return `[{"fact":"The Eiffel Tower is 330 metres tall.","citations":[1]}]`, nil
		case strings.Contains(content, "Verified facts"):
			return "The Eiffel Tower is 330 metres tall [1].", nil
		case strings.Contains(content, "follow-up questions"):
			return `["When was it built?", "Who designed it?", "How many visitors per year?"]`, nil
		}
		return "", fmt.Errorf("unexpected prompt: %s", content)
	}}
	fetcher := stubFetcher{text: "The Eiffel Tower is a wrought-iron lattice tower on the Champ de Mars. It is 330 metres tall."}
	p := newTestPipeline(chatter, []search.Provider{provider}, fetcher, nil)

	res, err := p.Ask(context.Background(), model.AskRequest{
		Question: "How tall is the Eiffel Tower?",
		Mode:     model.ModeVerified,
	})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if len(res.Citations) != 1 {
		t.Fatalf("scheme and tracking variants must collapse to one citation, got %v", res.Citations)
	}
	if res.Citations[0].URL != "https://en.wikipedia.org/wiki/Eiffel_Tower" {
		t.Errorf("unexpected citation URL %q", res.Citations[0].URL)
	}
	for _, call := range chatter.calls {
		if strings.Contains(userContent(call), "IMPORTANT: your previous answer") {
			t.Error("clean answer must not trigger a strict retry")
		}
	}
}

func TestAsk_StrictRetryExactlyOnce(t *testing.T) {
	provider := &stubProvider{
		name: "tavily",
		results: []model.WebSearchResult{
			{Title: "Eiffel Tower - Wikipedia", URL: "https://en.wikipedia.org/wiki/Eiffel_Tower", Snippet: "opened in 1889"},
		},
	}
	var strictCalls int32
	chatter := &scriptChatter{configured: true, reply: func(req llm.ChatRequest) (string, error) {
		content := userContent(req)
		switch {
		case strings.Contains(content, "Extract the facts"):
			return "I could not find any facts, sorry.", nil
		case strings.Contains(content, "IMPORTANT: your previous answer"):
			atomic.AddInt32(&strictCalls, 1)
			return "The Eiffel Tower opened in 1889 and remains one of the most visited monuments [1].", nil
		case strings.Contains(content, "follow-up questions"):
			return "no suggestions", nil
		}
		return "The Eiffel Tower opened in 1889 and remains one of the most visited monuments [7].", nil
	}}
	p := newTestPipeline(chatter, []search.Provider{provider}, stubFetcher{text: "The Eiffel Tower opened in 1889."}, nil)

	res, err := p.Ask(context.Background(), model.AskRequest{
		Question: "When did the Eiffel Tower open?",
		Mode:     model.ModeVerified,
	})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if got := atomic.LoadInt32(&strictCalls); got != 1 {
		t.Errorf("expected exactly one strict retry, got %d", got)
	}
	if len(res.Citations) != 1 {
		t.Errorf("retried answer should cite its source, got %v", res.Citations)
	}
	if strings.Contains(res.Answer, "[7]") {
		t.Errorf("out-of-range reference survived: %q", res.Answer)
	}
	if len(res.FollowUps) != 3 {
		t.Errorf("garbled follow-up reply must fall back to heuristics, got %v", res.FollowUps)
	}
}

func TestSelectModel(t *testing.T) {
	chatter := &scriptChatter{configured: true}

	p := newTestPipeline(chatter, nil, stubFetcher{}, nil)
	if got, err := p.selectModel(context.Background(), "user/override"); err != nil || got != "user/override" {
		t.Errorf("request override should win, got %q / %v", got, err)
	}
	if got, err := p.selectModel(context.Background(), ""); err != nil || got != "test/model" {
		t.Errorf("configured default should be used, got %q / %v", got, err)
	}

	noDefault := NewPipeline(chatter, stubCatalog{models: []string{"free/one", "free/two"}}, nil, stubFetcher{}, Options{}, testMetrics(), zap.NewNop())
	if got, err := noDefault.selectModel(context.Background(), ""); err != nil || got != "free/one" {
		t.Errorf("first free catalog model should be used, got %q / %v", got, err)
	}

	empty := NewPipeline(chatter, stubCatalog{}, nil, stubFetcher{}, Options{}, testMetrics(), zap.NewNop())
	_, err := empty.selectModel(context.Background(), "")
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindNoModel {
		t.Errorf("expected NoModelAvailable, got %v", err)
	}
}
