package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/adalundhe/sibyl/agents"
	"github.com/adalundhe/sibyl/core/config"
	"github.com/adalundhe/sibyl/core/embedding"
	"github.com/adalundhe/sibyl/core/orchestrator"
	"github.com/adalundhe/sibyl/core/providers"
	"github.com/adalundhe/sibyl/core/retrieval"
	"github.com/adalundhe/sibyl/core/session"
	"github.com/adalundhe/sibyl/core/vectorindex"
	"github.com/adalundhe/sibyl/core/websearch"

	"github.com/adalundhe/sibyl/core/chunking"
)

// app is the composition root: every collaborator is constructed once here
// and passed by reference into the commands. No package-level singletons.
type app struct {
	config       *config.Config
	logger       *slog.Logger
	retrieval    *retrieval.Service
	queue        *retrieval.Queue
	orchestrator *orchestrator.Orchestrator
	cache        *embedding.Cache
	indexStore   *vectorindex.Store
	sessions     session.Store
}

func buildApp(configPath string) (*app, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	manager := config.NewManager()
	if err := manager.Load(configPath); err != nil {
		return nil, err
	}
	cfg := manager.Get()
	keys := config.KeysFromEnv()

	cache, err := embedding.NewCache(&embedding.CacheConfig{
		MaxCost: cfg.Embedding.CacheMaxCost,
		TTL:     cfg.Embedding.CacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("build embedding cache: %w", err)
	}

	embedder, err := buildEmbedder(cfg, keys, logger)
	if err != nil {
		return nil, err
	}
	cached := embedding.NewCachedEmbedder(embedder, cache, cfg.Embedding.Model)

	splitter, err := chunking.NewSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}

	index := vectorindex.New(embedder.Dimension())
	var indexStore *vectorindex.Store
	if cfg.Retrieval.IndexPath != "" {
		indexStore, err = vectorindex.OpenStore(cfg.Retrieval.IndexPath)
		if err != nil {
			return nil, err
		}
		if err := indexStore.LoadInto(index); err != nil {
			return nil, err
		}
	}

	svc := retrieval.NewService(splitter, cached, index, indexStore, retrieval.Config{
		RelevanceThreshold: cfg.Retrieval.RelevanceThreshold,
		TopK:               cfg.Retrieval.TopK,
		Logger:             logger,
	})

	searcher := buildSearcher(cfg, keys, logger)
	provider, err := buildProvider(cfg, keys)
	if err != nil {
		return nil, err
	}

	sessions, err := buildSessionStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := agents.NewRegistry()
	agentCfg := agents.AgentConfig{
		Provider: provider,
		Deps: agents.Deps{
			Retriever: svc,
			Searcher:  searcher,
			TopK:      cfg.Retrieval.TopK,
		},
		Logger:          logger,
		BufferStreaming: cfg.Orchestrator.BufferStreaming,
	}
	for _, agent := range []agents.Agent{
		agents.NewDocumentGroundedAgent(agentCfg),
		agents.NewWorkflowAgent(agentCfg),
		agents.NewStructuredAgent(agentCfg),
		agents.NewHybridAgent(agentCfg),
	} {
		if err := registry.Register(agent); err != nil {
			return nil, err
		}
	}

	orch := orchestrator.New(registry, sessions, orchestrator.Config{
		AgentTimeout:     cfg.Orchestrator.AgentTimeout,
		RequestDeadline:  cfg.Orchestrator.RequestDeadline,
		FallbackOverride: fallbackOverride(cfg.Orchestrator.FallbackOrder),
		MaxHistoryTurns:  cfg.Session.MaxTurns,
		Logger:           logger,
	})

	return &app{
		config:       cfg,
		logger:       logger,
		retrieval:    svc,
		queue:        retrieval.NewQueue(svc, logger),
		orchestrator: orch,
		cache:        cache,
		indexStore:   indexStore,
		sessions:     sessions,
	}, nil
}

func (a *app) close() {
	a.queue.Close()
	a.cache.Close()
	if a.indexStore != nil {
		a.indexStore.Close()
	}
	if closer, ok := a.sessions.(*session.SQLiteStore); ok {
		closer.Close()
	}
}

// buildEmbedder prefers the hosted embedding model and falls back to a
// deterministic local embedder when no key is configured, so ingestion and
// retrieval stay usable offline.
func buildEmbedder(cfg *config.Config, keys config.APIKeys, logger *slog.Logger) (embedding.Embedder, error) {
	if keys.OpenAI != "" {
		return embedding.NewOpenAIEmbedder(keys.OpenAI, embedding.Config{
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
		})
	}

	logger.Warn("OPENAI_API_KEY not set, using local hashing embedder")
	return embedding.NewHashingEmbedder(cfg.Embedding.Dimension), nil
}

func buildSearcher(cfg *config.Config, keys config.APIKeys, logger *slog.Logger) websearch.Searcher {
	if keys.Tavily == "" {
		logger.Warn("TAVILY_API_KEY not set, web search disabled")
		return nil
	}

	client, err := websearch.NewTavilyClient(websearch.TavilyConfig{
		APIKey:      keys.Tavily,
		SearchDepth: cfg.WebSearch.SearchDepth,
		MaxResults:  cfg.WebSearch.MaxResults,
	})
	if err != nil {
		logger.Warn("web search disabled", "error", err)
		return nil
	}

	return websearch.NewCachedSearcher(client, websearch.CacheConfig{
		Size:   cfg.WebSearch.CacheSize,
		TTL:    cfg.WebSearch.CacheTTL,
		Logger: logger,
	})
}

func buildProvider(cfg *config.Config, keys config.APIKeys) (providers.Provider, error) {
	switch cfg.Providers.Default {
	case "openai":
		if keys.OpenAI == "" {
			return nil, fmt.Errorf("providers.default is openai but OPENAI_API_KEY is not set")
		}
		pc := providers.DefaultOpenAIConfig()
		pc.APIKey = keys.OpenAI
		applyProviderOverrides(&pc.BaseConfig, cfg)
		return providers.NewOpenAIProvider(pc)

	default:
		if keys.Anthropic == "" {
			return nil, fmt.Errorf("providers.default is anthropic but ANTHROPIC_API_KEY is not set")
		}
		pc := providers.DefaultAnthropicConfig()
		pc.APIKey = keys.Anthropic
		applyProviderOverrides(&pc.BaseConfig, cfg)
		return providers.NewAnthropicProvider(pc)
	}
}

func applyProviderOverrides(base *providers.BaseConfig, cfg *config.Config) {
	if cfg.Providers.Model != "" {
		base.Model = cfg.Providers.Model
	}
	if cfg.Providers.MaxTokens > 0 {
		base.MaxTokens = cfg.Providers.MaxTokens
	}
	if cfg.Providers.Temperature > 0 {
		base.Temperature = cfg.Providers.Temperature
	}
	if cfg.Orchestrator.AgentTimeout > 0 {
		base.Timeout = cfg.Orchestrator.AgentTimeout
	}
}

func buildSessionStore(cfg *config.Config, logger *slog.Logger) (session.Store, error) {
	if cfg.Session.StorePath != "" {
		return session.NewSQLiteStore(session.SQLiteConfig{
			Path:   cfg.Session.StorePath,
			TTL:    cfg.Session.TTL,
			Logger: logger,
		})
	}
	return session.NewMemoryStore(session.MemoryConfig{
		TTL:    cfg.Session.TTL,
		Logger: logger,
	}), nil
}

func fallbackOverride(names []string) []agents.Kind {
	kinds := make([]agents.Kind, 0, len(names))
	for _, name := range names {
		k := agents.Kind(name)
		if k.Valid() {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// waitForJob polls the ingestion queue until the job reaches a terminal
// state or the timeout elapses.
func waitForJob(queue *retrieval.Queue, jobID string, timeout time.Duration) (retrieval.JobStatus, error) {
	deadline := time.Now().Add(timeout)
	for {
		status, ok := queue.Status(jobID)
		if !ok {
			return retrieval.JobStatus{}, fmt.Errorf("unknown job %s", jobID)
		}
		if status.State == retrieval.JobDone || status.State == retrieval.JobFailed {
			return status, nil
		}
		if time.Now().After(deadline) {
			return status, fmt.Errorf("job %s still %s after %s", jobID, status.State, timeout)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
