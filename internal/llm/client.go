// Package llm talks to the OpenRouter chat-completion API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nolia/nolia/internal/apperr"
	"github.com/nolia/nolia/internal/model"
	openai "github.com/sashabaranov/go-openai"
)

const (
	maxAttempts       = 2
	transientBackoff  = 350 * time.Millisecond
	shapeRetryBackoff = 200 * time.Millisecond
	maxRetryAfter     = 10 * time.Second
)

// sleepFunc is the sleep used between retries (injectable for tests)
var sleepFunc = time.Sleep

// Message is one chat turn
type Message struct {
	Role    string
	Content string
}

// ChatRequest describes a single completion call
type ChatRequest struct {
	Model       string
	Messages    []Message
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
}

// Client wraps the OpenRouter API. OpenRouter speaks the OpenAI wire
// protocol, so the underlying client is go-openai with a swapped base URL.
type Client struct {
	api    *openai.Client
	apiKey string
}

// NewClient creates a Client. Completion calls fail with Misconfigured when
// the API key is absent; construction always succeeds so the catalog and
// health surfaces keep working.
func NewClient(cfg model.OpenRouterConfig) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: &retryTransport{
			base:  http.DefaultTransport,
			title: cfg.AppTitle,
		},
	}
	return &Client{
		api:    openai.NewClientWithConfig(clientConfig),
		apiKey: cfg.APIKey,
	}
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool { return c.apiKey != "" }

// Chat performs one completion call and returns the assistant content.
// Transport-level retries cover transient network and status failures; a
// malformed success body gets exactly one extra attempt here.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if !c.Configured() {
		return "", apperr.Misconfigured("completion provider API key not configured")
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	chatReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	content, err := c.completeOnce(ctx, chatReq)
	if err == nil {
		return content, nil
	}
	if isShapeError(err) {
		sleepFunc(shapeRetryBackoff)
		if content, retryErr := c.completeOnce(ctx, chatReq); retryErr == nil {
			return content, nil
		}
	}
	return "", classify(err)
}

func (c *Client) completeOnce(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errShape
	}
	return resp.Choices[0].Message.Content, nil
}

var errShape = errors.New("unexpected response shape")

func isShapeError(err error) bool {
	if errors.Is(err, errShape) {
		return true
	}
	var apiErr *openai.APIError
	// go-openai surfaces undecodable bodies as APIError without a status
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 0
}

// classify maps an exhausted error to the apperr taxonomy
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperr.UpstreamAuth(err)
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return apperr.UpstreamAuth(err)
		}
	}
	return apperr.UpstreamLLM(err)
}

// retryTransport retries transient failures and identifies the app to
// OpenRouter. Retry-After hints from the server bound the backoff.
type retryTransport struct {
	base  http.RoundTripper
	title string
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.title != "" {
		req.Header.Set("X-Title", t.title)
	}

	var resp *http.Response
	var err error
	for attempt := 1; ; attempt++ {
		resp, err = t.base.RoundTrip(req)

		if err != nil {
			if attempt >= maxAttempts || !isTransientNetErr(err) || !rewindable(req) {
				return nil, err
			}
			sleepFunc(transientBackoff)
			if req, err = rewind(req); err != nil {
				return nil, err
			}
			continue
		}

		if !retryableStatus(resp.StatusCode) || attempt >= maxAttempts || !rewindable(req) {
			return resp, nil
		}

		wait := transientBackoff
		if ra := retryAfter(resp); ra > 0 {
			wait = ra
		}
		_ = resp.Body.Close()
		sleepFunc(wait)
		if req, err = rewind(req); err != nil {
			return nil, err
		}
	}
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func retryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}

func isTransientNetErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	for _, errno := range []syscall.Errno{syscall.ETIMEDOUT, syscall.ECONNRESET, syscall.ECONNREFUSED} {
		if errors.Is(err, errno) {
			return true
		}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsNotFound
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded) ||
		strings.Contains(err.Error(), "connection reset")
}

func rewindable(req *http.Request) bool {
	return req.Body == nil || req.GetBody != nil
}

func rewind(req *http.Request) (*http.Request, error) {
	if req.Body == nil {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}
