package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nolia/nolia/internal/apperr"
	"github.com/nolia/nolia/internal/cache"
	"github.com/nolia/nolia/internal/model"
	"github.com/nolia/nolia/internal/profile"
	"github.com/nolia/nolia/internal/ratelimit"
)

const (
	maxBodyBytes       = 1 << 20
	anonIDHeader       = "X-Nolia-Anon-Id"
	modelsListTimeout  = 8 * time.Second
	rateLimitKeyPrefix = "ask:"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"requestId": GetRequestID(c),
		"uptimeSec": int64(time.Since(s.started).Seconds()),
		"env":       s.cfg.Server.Env,
	})
}

func (s *Server) handleModels(c *gin.Context) {
	models, err := s.catalog.ListFreeModels(c.Request.Context(), modelsListTimeout)
	if err != nil {
		s.abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"provider":       "openrouter",
		"models":         models,
		"requiresApiKey": !s.llmReady,
	})
}

func (s *Server) handleAsk(c *gin.Context) {
	decision := s.limiter.Hit(rateLimitKeyPrefix + c.ClientIP())
	writeRateHeaders(c, decision)
	if !decision.Allowed {
		s.metrics.RateLimited.Inc()
		c.Header("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
		s.abortError(c, apperr.RateLimited("too many requests"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		s.abortError(c, apperr.Validation("unreadable request body"))
		return
	}
	if len(body) > maxBodyBytes {
		s.abortError(c, apperr.PayloadTooLarge("request body exceeds 1MB"))
		return
	}

	var req model.AskRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.abortError(c, apperr.Validation("request body must be valid JSON"))
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		s.abortError(c, apperr.Validation(err.Error()))
		return
	}

	partition := c.ClientIP()
	anonID := c.GetHeader(anonIDHeader)
	if profile.ValidAnonID(anonID) {
		partition = anonID
	}
	key := cache.Key(partition, body)
	if cached, ok := s.answers.Get(key); ok {
		s.metrics.CacheHits.Inc()
		s.metrics.AsksTotal.WithLabelValues("ok").Inc()
		c.JSON(http.StatusOK, cached)
		return
	}

	start := time.Now()
	resp, err := s.answers.Do(key, func() (*model.AskResponse, error) {
		return s.pipeline.Ask(c.Request.Context(), req)
	})
	if err != nil {
		s.metrics.AsksTotal.WithLabelValues("error").Inc()
		s.abortError(c, err)
		return
	}
	s.metrics.AsksTotal.WithLabelValues("ok").Inc()
	s.metrics.AskDuration.Observe(time.Since(start).Seconds())

	if profile.ValidAnonID(anonID) {
		s.profiles.Record(anonID, req.Question, req.Language, req.Style)
	}

	c.JSON(http.StatusOK, resp)
}

func writeRateHeaders(c *gin.Context, d ratelimit.Decision) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	reset := d.ResetAt.Unix()
	if d.ResetAt.Nanosecond() > 0 {
		reset++
	}
	c.Header("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
}
