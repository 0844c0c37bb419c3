package embedding

import (
	"context"
)

// CachedEmbedder composes an Embedder with a Cache. Every lookup checks the
// cache by normalized-text hash first; the external model is invoked only on
// a miss.
type CachedEmbedder struct {
	inner Embedder
	cache *Cache
	model string
}

// NewCachedEmbedder wraps an embedder with a memoization cache.
func NewCachedEmbedder(inner Embedder, cache *Cache, model string) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache, model: model}
}

// Embed returns the cached vector when present, otherwise embeds and stores.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := Key(e.model, text)
	if vec, ok := e.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(key, vec)
	// Ristretto buffers writes; flush so a repeat of the same text on the
	// next call reads the entry instead of re-invoking the model.
	e.cache.Wait()
	return vec, nil
}

// EmbedBatch embeds only the texts missing from the cache, preserving input
// order in the result.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if vec, ok := e.cache.Get(Key(e.model, text)); ok {
			result[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return result, nil
	}

	vectors, err := e.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}

	for j, vec := range vectors {
		i := missingIdx[j]
		result[i] = vec
		e.cache.Set(Key(e.model, texts[i]), vec)
	}
	e.cache.Wait()
	return result, nil
}

// Dimension returns the wrapped embedder's dimension.
func (e *CachedEmbedder) Dimension() int {
	return e.inner.Dimension()
}
