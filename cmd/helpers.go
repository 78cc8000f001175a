package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ziadkadry99/qnagen/internal/config"
	"github.com/ziadkadry99/qnagen/internal/db"
	"github.com/ziadkadry99/qnagen/internal/llm"
	"github.com/ziadkadry99/qnagen/internal/logging"
	"github.com/ziadkadry99/qnagen/internal/pipeline"
	"github.com/ziadkadry99/qnagen/internal/prompt"
	"github.com/ziadkadry99/qnagen/internal/search"
	"github.com/ziadkadry99/qnagen/internal/usagelog"
)

// loadConfig loads and validates the config, providing a user-friendly error.
// It also reconfigures logging from the config unless --verbose was given.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `qnagen init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logging.Init(os.Stderr, level, cfg.Log.Format)
	return cfg, nil
}

// createLLMProviderFromConfig creates the rate-limited LLM provider.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Models.Lite)
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimitedProvider(provider, cfg.RequestsPerMinute), nil
}

// createGateway wraps the provider with tier fallback.
func createGateway(cfg *config.Config, provider llm.Provider) *llm.Gateway {
	return llm.NewGateway(provider, llm.GatewayConfig{
		Models:      cfg.ModelMap(),
		CallTimeout: cfg.CallTimeout(),
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Policy:      llm.DefaultFallbackPolicy(cfg.FallbackDelay()),
	})
}

// createSearcher returns the search augmenter, or nil when search is
// disabled or the Naver credentials are missing.
func createSearcher(cfg *config.Config) pipeline.ContextSearcher {
	if !cfg.Search.Enabled {
		return nil
	}
	client, err := search.NewNaverClientFromEnv()
	if err != nil {
		slog.Warn("search augmentation disabled", "error", err)
		return nil
	}
	return search.NewAugmenter(client, cfg.Search.MaxResults, cfg.SearchInterval())
}

// app bundles the collaborators shared by the generate, server and mcp
// commands.
type app struct {
	cfg          *config.Config
	db           *db.DB
	store        *usagelog.Store
	writer       *usagelog.Writer
	orchestrator *pipeline.Orchestrator
}

// newApp wires the provider, gateway, search, usage log and orchestrator.
func newApp(cfg *config.Config) (*app, error) {
	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	database, err := db.Open(cfg.UsageDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening usage log: %w", err)
	}
	store := usagelog.NewStore(database)
	writer := usagelog.NewWriter(store, cfg.UsageQueueSize, usagelog.DefaultWriteTimeout)

	orch := pipeline.NewOrchestrator(createGateway(cfg, provider), prompt.New(), pipeline.Options{
		Search:   createSearcher(cfg),
		Sink:     writer,
		Pricing:  cfg.PricingTable(),
		Provider: provider.Name(),
	})

	return &app{
		cfg:          cfg,
		db:           database,
		store:        store,
		writer:       writer,
		orchestrator: orch,
	}, nil
}

// Close drains pending usage entries and closes the database.
func (a *app) Close() {
	a.writer.Close()
	if n := a.writer.Dropped(); n > 0 {
		slog.Warn("usage entries dropped", "count", n)
	}
	a.db.Close()
}
