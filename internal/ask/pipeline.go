package ask

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nolia/nolia/internal/apperr"
	"github.com/nolia/nolia/internal/excerpt"
	"github.com/nolia/nolia/internal/llm"
	"github.com/nolia/nolia/internal/metrics"
	"github.com/nolia/nolia/internal/model"
	"github.com/nolia/nolia/internal/plan"
	"github.com/nolia/nolia/internal/rank"
	"github.com/nolia/nolia/internal/search"
	"go.uber.org/zap"
)

const (
	providerName = "openrouter"

	factsTimeout     = 25 * time.Second
	composeTimeout   = 30 * time.Second
	followUpsTimeout = 12 * time.Second
	catalogTimeout   = 8 * time.Second

	factsMaxTokens     = 520
	composeMaxTokens   = 900
	followUpsMaxTokens = 140

	rawExcerptChunks    = 3
	rawExcerptMaxChars  = 1200
	pageExcerptChunks   = 3
	pageExcerptMaxChars = 2500

	braveMaxQueries = 2
)

// Chatter is the completion surface the pipeline needs from the LLM client
type Chatter interface {
	Chat(ctx context.Context, req llm.ChatRequest) (string, error)
	Configured() bool
}

// ModelLister enumerates usable completion models
type ModelLister interface {
	ListFreeModels(ctx context.Context, timeout time.Duration) ([]string, error)
}

// PageFetcher retrieves bounded plain text for one URL
type PageFetcher interface {
	PageText(ctx context.Context, rawURL string, timeout time.Duration, maxBytes int64) (string, error)
}

// Options bound the pipeline's outbound work
type Options struct {
	DefaultModel string
	FetchTimeout time.Duration
	MaxBodyBytes int64
}

// Pipeline turns one validated question into a grounded answer
type Pipeline struct {
	chatter   Chatter
	catalog   ModelLister
	providers []search.Provider
	fetcher   PageFetcher
	opts      Options
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// NewPipeline wires the pipeline's collaborators
func NewPipeline(chatter Chatter, catalog ModelLister, providers []search.Provider, fetcher PageFetcher, opts Options, m *metrics.Metrics, log *zap.Logger) *Pipeline {
	return &Pipeline{
		chatter:   chatter,
		catalog:   catalog,
		providers: providers,
		fetcher:   fetcher,
		opts:      opts,
		metrics:   m,
		log:       log,
	}
}

// Ask runs the full question-to-answer flow. Shortcut answers return before
// any outbound call is made.
func (p *Pipeline) Ask(ctx context.Context, req model.AskRequest) (*model.AskResponse, error) {
	start := nowFunc()
	question := strings.TrimSpace(req.Question)
	hindi := req.Language == model.LangHindi ||
		(req.Language == model.LangAuto && DetectHindi(question))

	if IsClockQuestion(question) {
		return p.finish(start, "local-clock", ClockAnswer(hindi), nil, clockFollowUps(hindi)), nil
	}
	if reason := SafetyReason(question); reason != "" {
		return p.finish(start, "policy-"+reason, RefusalAnswer(reason, hindi), nil, refusalFollowUps(hindi)), nil
	}

	modelID, err := p.selectModel(ctx, req.Model)
	if err != nil {
		return nil, err
	}

	searchPlan := plan.Build(question, req.Mode)

	var sources []model.SourceCandidate
	if req.WantsWeb() {
		sources = p.gatherEvidence(ctx, question, req, searchPlan)
	}

	answer, err := p.compose(ctx, modelID, question, req, sources)
	if err != nil {
		return nil, err
	}
	answer = SanitizeCitations(answer, len(sources))

	if req.Mode == model.ModeVerified && len(sources) > 0 && NeedsStrictRetry(answer, len(sources)) {
		if retried, retryErr := p.strictRetry(ctx, modelID, question, req, sources); retryErr == nil {
			answer = SanitizeCitations(retried, len(sources))
		}
	}

	citations := MapCitations(answer, sources)
	followUps := p.followUps(ctx, modelID, question, answer, searchPlan.Intent.Core, hindi)

	return p.finish(start, modelID, answer, citations, followUps), nil
}

func (p *Pipeline) finish(start time.Time, modelID, answer string, citations []model.Citation, followUps []string) *model.AskResponse {
	if citations == nil {
		citations = []model.Citation{}
	}
	return &model.AskResponse{
		Provider:  providerName,
		Model:     modelID,
		Answer:    answer,
		Citations: citations,
		FollowUps: followUps,
		LatencyMs: nowFunc().Sub(start).Milliseconds(),
	}
}

// selectModel resolves the completion model: request override, configured
// default, then the first free catalog entry
func (p *Pipeline) selectModel(ctx context.Context, requested string) (string, error) {
	if !p.chatter.Configured() {
		return "", apperr.Misconfigured("completion provider API key not configured")
	}
	if requested != "" {
		return requested, nil
	}
	if p.opts.DefaultModel != "" {
		return p.opts.DefaultModel, nil
	}
	models, err := p.catalog.ListFreeModels(ctx, catalogTimeout)
	if err != nil || len(models) == 0 {
		return "", apperr.NoModelAvailable("no completion model available")
	}
	return models[0], nil
}

// gatherEvidence fans out both search providers, merges by canonical URL,
// ranks, and fills extracted text for the top sources. Provider and fetch
// failures degrade the evidence set instead of failing the request.
func (p *Pipeline) gatherEvidence(ctx context.Context, question string, req model.AskRequest, searchPlan plan.Plan) []model.SourceCandidate {
	fresh := searchPlan.Intent.WantsFresh
	verified := req.Mode == model.ModeVerified

	maxResults := 4
	if fresh {
		maxResults = 6
	}
	depth := search.DepthFast
	if verified {
		depth = search.DepthBasic
		if fresh {
			depth = search.DepthAdvanced
		}
	}
	opts := search.Options{
		Topic:             req.WebTopic,
		TimeRange:         req.WebTimeRange,
		Depth:             depth,
		IncludeRawContent: verified,
	}

	type settled struct {
		order    int
		provider string
		result   *search.Result
	}
	var (
		mu       sync.Mutex
		merged   []settled
		pending  sync.WaitGroup
		launched int
	)
	launch := func(provider search.Provider, query string) {
		order := launched
		launched++
		pending.Add(1)
		go func() {
			defer pending.Done()
			res, err := provider.Search(ctx, query, maxResults, opts)
			if err != nil {
				p.metrics.SearchFailures.WithLabelValues(provider.Name()).Inc()
				p.log.Warn("search provider failed",
					zap.String("provider", provider.Name()),
					zap.String("query", query),
					zap.Error(err))
				return
			}
			mu.Lock()
			merged = append(merged, settled{order: order, provider: provider.Name(), result: res})
			mu.Unlock()
		}()
	}
	for _, provider := range p.providers {
		if !provider.Enabled() {
			continue
		}
		queries := searchPlan.Queries
		if provider.Name() == "brave" && len(queries) > braveMaxQueries {
			queries = queries[:braveMaxQueries]
		}
		for _, q := range queries {
			launch(provider, q)
		}
	}
	pending.Wait()
	sort.Slice(merged, func(i, j int) bool { return merged[i].order < merged[j].order })

	rawContent := make(map[string]string)
	var candidates []model.EvidenceSource
	for _, s := range merged {
		for _, r := range s.result.Results {
			candidates = append(candidates, model.EvidenceSource{
				Title:   r.Title,
				URL:     r.URL,
				Snippet: r.Snippet,
			})
		}
		for u, raw := range s.result.RawContent {
			if _, have := rawContent[u]; !have {
				rawContent[u] = raw
			}
		}
	}
	for i := range candidates {
		if raw, ok := rawContent[candidates[i].URL]; ok {
			candidates[i].ExtractedText = excerpt.Build(raw, question, rawExcerptChunks, rawExcerptMaxChars)
		}
	}

	sources := rank.Select(question, candidates, fresh)
	p.fetchMissingText(ctx, question, sources, maxFetchCount(verified, fresh))
	return sources
}

func maxFetchCount(verified, fresh bool) int {
	switch {
	case verified && fresh:
		return 5
	case verified:
		return 4
	case fresh:
		return 4
	default:
		return 3
	}
}

// fetchMissingText pulls page text for the top sources that have none.
// Failed fetches leave the snippet as the only evidence for that source.
func (p *Pipeline) fetchMissingText(ctx context.Context, question string, sources []model.SourceCandidate, maxFetch int) {
	var pending sync.WaitGroup
	fetched := 0
	for i := range sources {
		if fetched >= maxFetch {
			break
		}
		if sources[i].ExtractedText != "" {
			continue
		}
		fetched++
		pending.Add(1)
		go func(src *model.SourceCandidate) {
			defer pending.Done()
			text, err := p.fetcher.PageText(ctx, src.URL, p.opts.FetchTimeout, p.opts.MaxBodyBytes)
			if err != nil {
				p.metrics.PageFetchErrors.Inc()
				p.log.Debug("page fetch failed", zap.String("url", src.URL), zap.Error(err))
				return
			}
			src.ExtractedText = excerpt.Build(text, question, pageExcerptChunks, pageExcerptMaxChars)
		}(&sources[i])
	}
	pending.Wait()
}

// compose produces the answer text. Verified mode with sources runs the
// grounded two-pass strategy; everything else is a single direct call.
func (p *Pipeline) compose(ctx context.Context, modelID, question string, req model.AskRequest, sources []model.SourceCandidate) (string, error) {
	evidenceBlock := buildEvidenceBlock(sources)
	utcDate := nowFunc().UTC().Format("2006-01-02")
	baseOpts := promptOptions{sourcesCount: len(sources)}

	if req.Mode == model.ModeVerified && len(sources) > 0 {
		facts := p.extractFacts(ctx, modelID, question, req, evidenceBlock, len(sources), utcDate)
		if len(facts) > 0 {
			return p.chatter.Chat(ctx, llm.ChatRequest{
				Model: modelID,
				Messages: []llm.Message{
					{Role: "system", Content: buildSystemPrompt(req.Style, req.Mode, req.Language, utcDate, baseOpts)},
					{Role: "user", Content: buildComposeFromFactsPrompt(question, facts)},
				},
				Timeout:     composeTimeout,
				Temperature: 0.2,
				MaxTokens:   composeMaxTokens,
			})
		}
		return p.chatter.Chat(ctx, llm.ChatRequest{
			Model: modelID,
			Messages: []llm.Message{
				{Role: "system", Content: buildSystemPrompt(req.Style, req.Mode, req.Language, utcDate, baseOpts)},
				{Role: "user", Content: buildDirectPrompt(question, evidenceBlock)},
			},
			Timeout:     composeTimeout,
			Temperature: 0.3,
			MaxTokens:   composeMaxTokens,
		})
	}

	temp := float32(0.3)
	if req.Mode == model.ModeFast {
		temp = 0.7
	}
	return p.chatter.Chat(ctx, llm.ChatRequest{
		Model: modelID,
		Messages: []llm.Message{
			{Role: "system", Content: buildSystemPrompt(req.Style, req.Mode, req.Language, utcDate, baseOpts)},
			{Role: "user", Content: buildDirectPrompt(question, evidenceBlock)},
		},
		Timeout:     composeTimeout,
		Temperature: temp,
		MaxTokens:   composeMaxTokens,
	})
}

// extractFacts runs the first grounded pass. A malformed reply yields no
// facts, pushing composition onto the direct fallback.
func (p *Pipeline) extractFacts(ctx context.Context, modelID, question string, req model.AskRequest, evidenceBlock string, sourceCount int, utcDate string) []model.GroundedFact {
	reply, err := p.chatter.Chat(ctx, llm.ChatRequest{
		Model: modelID,
		Messages: []llm.Message{
			{Role: "system", Content: buildSystemPrompt(req.Style, req.Mode, req.Language, utcDate, promptOptions{sourcesCount: sourceCount})},
			{Role: "user", Content: buildFactsPrompt(question, evidenceBlock, sourceCount)},
		},
		Timeout:     factsTimeout,
		Temperature: 0.1,
		MaxTokens:   factsMaxTokens,
	})
	if err != nil {
		p.log.Debug("fact extraction failed", zap.Error(err))
		return nil
	}
	return parseGroundedFacts(reply, sourceCount)
}

// parseGroundedFacts decodes the fact-extraction reply and sanitizes each
// fact's citations to the valid source range
func parseGroundedFacts(reply string, sourceCount int) []model.GroundedFact {
	reply = strings.TrimSpace(reply)
	if m := fencedBlock.FindStringSubmatch(reply); m != nil {
		reply = strings.TrimSpace(m[1])
	}
	if start, end := strings.Index(reply, "["), strings.LastIndex(reply, "]"); start >= 0 && end > start {
		reply = reply[start : end+1]
	}

	var raw []model.GroundedFact
	if err := json.Unmarshal([]byte(reply), &raw); err != nil {
		return nil
	}

	var facts []model.GroundedFact
	for _, f := range raw {
		f.Fact = strings.TrimSpace(f.Fact)
		if f.Fact == "" || len(f.Fact) > 500 {
			continue
		}
		var cites []int
		for _, n := range f.Citations {
			if n >= 1 && n <= sourceCount {
				cites = append(cites, n)
			}
			if len(cites) >= 3 {
				break
			}
		}
		if len(cites) == 0 {
			continue
		}
		facts = append(facts, model.GroundedFact{Fact: f.Fact, Citations: cites})
	}
	return facts
}

// strictRetry re-composes once with the strict-citation directive. The
// retried answer is final regardless of remaining defects.
func (p *Pipeline) strictRetry(ctx context.Context, modelID, question string, req model.AskRequest, sources []model.SourceCandidate) (string, error) {
	utcDate := nowFunc().UTC().Format("2006-01-02")
	return p.chatter.Chat(ctx, llm.ChatRequest{
		Model: modelID,
		Messages: []llm.Message{
			{Role: "system", Content: buildSystemPrompt(req.Style, req.Mode, req.Language, utcDate, promptOptions{
				sourcesCount:    len(sources),
				strictCitations: true,
			})},
			{Role: "user", Content: buildDirectPrompt(question, buildEvidenceBlock(sources)) + strictRetryDirective},
		},
		Timeout:     composeTimeout,
		Temperature: 0.2,
		MaxTokens:   composeMaxTokens,
	})
}

// followUps asks the model for next questions and falls back to heuristic
// templates on any failure
func (p *Pipeline) followUps(ctx context.Context, modelID, question, answer, core string, hindi bool) []string {
	reply, err := p.chatter.Chat(ctx, llm.ChatRequest{
		Model: modelID,
		Messages: []llm.Message{
			{Role: "user", Content: buildFollowUpsPrompt(question, answer, hindi)},
		},
		Timeout:     followUpsTimeout,
		Temperature: 0.5,
		MaxTokens:   followUpsMaxTokens,
	})
	if err == nil {
		if parsed, parseErr := parseFollowUps(reply); parseErr == nil {
			return parsed
		}
	}
	return heuristicFollowUps(core, hindi)
}
