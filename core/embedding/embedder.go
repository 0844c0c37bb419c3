// Package embedding provides the text-to-vector capability used by the
// retrieval pipeline, with a memoizing cache in front of the external model.
package embedding

import (
	"context"
	"time"
)

// Embedder converts text into vectors. Deterministic within a model version.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Config holds embedder settings.
type Config struct {
	Model     string
	Dimension int
	BatchSize int
	Timeout   time.Duration
}

// DefaultConfig returns the default embedding configuration.
func DefaultConfig() Config {
	return Config{
		Model:     "text-embedding-3-small",
		Dimension: 1536,
		BatchSize: 100,
		Timeout:   30 * time.Second,
	}
}
