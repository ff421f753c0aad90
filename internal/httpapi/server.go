package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nolia/nolia/internal/ask"
	"github.com/nolia/nolia/internal/cache"
	"github.com/nolia/nolia/internal/metrics"
	"github.com/nolia/nolia/internal/model"
	"github.com/nolia/nolia/internal/profile"
	"github.com/nolia/nolia/internal/ratelimit"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const shutdownGrace = 10 * time.Second

// Asker is the pipeline surface the handlers depend on
type Asker interface {
	Ask(ctx context.Context, req model.AskRequest) (*model.AskResponse, error)
}

// ModelLister enumerates usable completion models
type ModelLister interface {
	ListFreeModels(ctx context.Context, timeout time.Duration) ([]string, error)
}

// Server wires the gin router and its shared state
type Server struct {
	cfg      model.Config
	pipeline Asker
	catalog  ModelLister
	limiter  *ratelimit.Limiter
	answers  *cache.AskCache
	profiles *profile.Store
	metrics  *metrics.Metrics
	log      *zap.Logger
	started  time.Time
	llmReady bool
}

// NewServer builds the HTTP shell around its collaborators. The metrics
// bundle is shared with the pipeline so both register on one registry.
func NewServer(cfg model.Config, pipeline Asker, catalog ModelLister, llmReady bool, m *metrics.Metrics, log *zap.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		catalog:  catalog,
		limiter:  ratelimit.New(cfg.RateLimit.Window, cfg.RateLimit.Max),
		answers:  cache.New(cfg.Cache.TTL, cfg.Cache.Capacity),
		profiles: profile.NewStore(),
		metrics:  m,
		log:      log,
		started:  time.Now(),
		llmReady: llmReady,
	}
	return s
}

// Router assembles the route table
func (s *Server) Router() *gin.Engine {
	if s.cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())

	api := r.Group("/api")
	api.Use(AccessLog(s.log))
	api.GET("/health", s.handleHealth)
	api.GET("/models", s.handleModels)
	api.POST("/ask", s.handleAsk)

	r.GET("/robots.txt", s.handleRobots)
	r.GET("/sitemap.xml", s.handleSitemap)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	return r
}

// Run serves until ctx is cancelled, then drains with a grace period
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	s.log.Info("server listening", zap.Int("port", s.cfg.Server.Port), zap.String("env", s.cfg.Server.Env))

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}
