package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration surface recognized by the core.
type Config struct {
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Chunking     ChunkingConfig     `yaml:"chunking"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	WebSearch    WebSearchConfig    `yaml:"websearch"`
	Session      SessionConfig      `yaml:"session"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Providers    ProvidersConfig    `yaml:"providers"`
}

type EmbeddingConfig struct {
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`

	// CacheMaxCost bounds the embedding cache size in bytes.
	CacheMaxCost int64         `yaml:"cache_max_cost"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

type ChunkingConfig struct {
	// Size is the target chunk size in words.
	Size int `yaml:"size"`

	// Overlap is the number of words shared between adjacent chunks.
	Overlap int `yaml:"overlap"`
}

type RetrievalConfig struct {
	// RelevanceThreshold separates strong matches from weak ones and gates
	// the web-search merge.
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
	TopK               int     `yaml:"top_k"`

	// IndexPath, when set, persists the vector index to sqlite.
	IndexPath string `yaml:"index_path"`
}

type WebSearchConfig struct {
	MaxResults  int           `yaml:"max_results"`
	SearchDepth string        `yaml:"search_depth"`
	CacheSize   int           `yaml:"cache_size"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`

	// StorePath, when set, persists sessions to sqlite instead of memory.
	StorePath string `yaml:"store_path"`

	// MaxTurns bounds how much history is replayed into an agent.
	MaxTurns int `yaml:"max_turns"`
}

type OrchestratorConfig struct {
	// AgentTimeout bounds a single agent invocation.
	AgentTimeout time.Duration `yaml:"agent_timeout"`

	// RequestDeadline bounds the whole fallback chain.
	RequestDeadline time.Duration `yaml:"request_deadline"`

	// FallbackOrder overrides the static preference ranking when non-empty.
	FallbackOrder []string `yaml:"fallback_order"`

	// BufferStreaming buffers provider streams fully before an answer is
	// returned, keeping mid-stream failures retryable. When false the final
	// locked-in agent may forward fragments as they arrive.
	BufferStreaming bool `yaml:"buffer_streaming"`
}

type ProvidersConfig struct {
	// Default selects the text-generation provider: "anthropic" or "openai".
	Default string `yaml:"default"`

	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Model:        "text-embedding-3-small",
			Dimension:    1536,
			CacheMaxCost: 1e8,
			CacheTTL:     0, // entries live until evicted by size
		},
		Chunking: ChunkingConfig{
			Size:    800,
			Overlap: 100,
		},
		Retrieval: RetrievalConfig{
			RelevanceThreshold: 0.7,
			TopK:               4,
		},
		WebSearch: WebSearchConfig{
			MaxResults:  3,
			SearchDepth: "basic",
			CacheSize:   256,
			CacheTTL:    5 * time.Minute,
		},
		Session: SessionConfig{
			TTL:      24 * time.Hour,
			MaxTurns: 6,
		},
		Orchestrator: OrchestratorConfig{
			AgentTimeout:    30 * time.Second,
			RequestDeadline: 2 * time.Minute,
			BufferStreaming: true,
		},
		Providers: ProvidersConfig{
			Default:     "anthropic",
			MaxTokens:   1024,
			Temperature: 0.2,
		},
	}
}

// Validate checks cross-field invariants that would otherwise surface as
// subtle runtime misbehavior.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be in [0, size)")
	}
	if c.Retrieval.RelevanceThreshold < 0 || c.Retrieval.RelevanceThreshold > 1 {
		return fmt.Errorf("retrieval.relevance_threshold must be in [0, 1]")
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.Orchestrator.AgentTimeout <= 0 || c.Orchestrator.RequestDeadline <= 0 {
		return fmt.Errorf("orchestrator timeouts must be positive")
	}
	if c.Orchestrator.AgentTimeout > c.Orchestrator.RequestDeadline {
		return fmt.Errorf("orchestrator.agent_timeout exceeds request_deadline")
	}
	return nil
}

// APIKeys are read from the environment, never from config files.
type APIKeys struct {
	Anthropic string
	OpenAI    string
	Tavily    string
}

// KeysFromEnv loads provider credentials from the process environment.
func KeysFromEnv() APIKeys {
	return APIKeys{
		Anthropic: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAI:    os.Getenv("OPENAI_API_KEY"),
		Tavily:    os.Getenv("TAVILY_API_KEY"),
	}
}

func parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
