package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 800, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, 0.7, cfg.Retrieval.RelevanceThreshold)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.True(t, cfg.Orchestrator.BufferStreaming)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap >= size", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }},
		{"threshold above 1", func(c *Config) { c.Retrieval.RelevanceThreshold = 1.5 }},
		{"zero top_k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"agent timeout past deadline", func(c *Config) {
			c.Orchestrator.AgentTimeout = 3 * time.Minute
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestManager_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sibyl.yaml")
	payload := []byte("chunking:\n  size: 400\n  overlap: 50\nretrieval:\n  relevance_threshold: 0.6\n")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	m := NewManager()

	var reloaded *Config
	m.Watch(func(c *Config) { reloaded = c })

	require.NoError(t, m.Load(path))

	cfg := m.Get()
	assert.Equal(t, 400, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, 0.6, cfg.Retrieval.RelevanceThreshold)
	// untouched sections keep defaults
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Same(t, cfg, reloaded)
}

func TestManager_LoadMissingFileKeepsDefaults(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Load(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.Equal(t, 800, m.Get().Chunking.Size)
}
