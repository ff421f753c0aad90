package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/nolia/nolia/internal/ask"
	"github.com/nolia/nolia/internal/fetch"
	"github.com/nolia/nolia/internal/guard"
	"github.com/nolia/nolia/internal/httpapi"
	"github.com/nolia/nolia/internal/llm"
	"github.com/nolia/nolia/internal/logger"
	"github.com/nolia/nolia/internal/metrics"
	"github.com/nolia/nolia/internal/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd starts the answer server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP answer server",
	Long: `Start the Nolia HTTP server. Provider API keys come from the
environment (OPENROUTER_API_KEY, BRAVE_SEARCH_API_KEY, TAVILY_API_KEY);
a missing search key disables that provider, a missing LLM key makes
/api/ask respond 503 while the rest of the API keeps working.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		log := logger.New(cfg.Log.Level, cfg.Log.Format)
		defer func() { _ = log.Sync() }()
		log.Info("starting noliad",
			zap.Int("port", cfg.Server.Port),
			zap.Bool("llmConfigured", cfg.OpenRouter.APIKey != ""),
			zap.Bool("braveEnabled", cfg.Brave.APIKey != ""),
			zap.Bool("tavilyEnabled", cfg.Tavily.APIKey != ""))

		m := metrics.New(prometheus.NewRegistry())
		chatter := llm.NewClient(cfg.OpenRouter)
		catalog := llm.NewCatalog(cfg.OpenRouter)
		fetcher := fetch.NewFetcher(cfg.HTTP, guard.New(), log)
		providers := []search.Provider{
			search.NewBraveProvider(cfg.Brave, cfg.HTTP.SearchTimeout),
			search.NewTavilyProvider(cfg.Tavily, cfg.HTTP.SearchTimeout),
		}

		pipeline := ask.NewPipeline(chatter, catalog, providers, fetcher, ask.Options{
			DefaultModel: cfg.OpenRouter.DefaultModel,
			FetchTimeout: cfg.HTTP.FetchTimeout,
			MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		}, m, log)

		server := httpapi.NewServer(cfg, pipeline, catalog, chatter.Configured(), m, log)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return server.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
