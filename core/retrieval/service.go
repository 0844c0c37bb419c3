// Package retrieval composes the chunking engine, embedding cache, and
// vector index into the ingest/retrieve pipeline, and runs document
// ingestion as background jobs.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adalundhe/sibyl/core/chunking"
	"github.com/adalundhe/sibyl/core/document"
	"github.com/adalundhe/sibyl/core/embedding"
	coreerrors "github.com/adalundhe/sibyl/core/errors"
	"github.com/adalundhe/sibyl/core/vectorindex"
)

const (
	// DefaultRelevanceThreshold separates strong matches from weak ones.
	DefaultRelevanceThreshold = 0.7

	// DefaultTopK is the number of matches returned when the caller does
	// not specify k.
	DefaultTopK = 4

	embedBatchSize = 64
)

// Match is a retrieved chunk with its similarity score.
type Match struct {
	Chunk  chunking.Chunk
	Score  float64
	Strong bool
}

// Result is an ordered, deduplicated sequence of matches. Strong reports
// whether at least one match clears the relevance threshold, which gates the
// web-search merge downstream.
type Result struct {
	Matches []Match
	Strong  bool
}

// Empty reports whether the result carries no matches.
func (r *Result) Empty() bool {
	return r == nil || len(r.Matches) == 0
}

// Config holds retrieval policy knobs.
type Config struct {
	RelevanceThreshold float64
	TopK               int
	Logger             *slog.Logger
}

// Service implements ingest and retrieve over the pipeline components.
type Service struct {
	splitter  *chunking.Splitter
	embedder  embedding.Embedder
	index     *vectorindex.Index
	store     *vectorindex.Store
	threshold float64
	topK      int
	logger    *slog.Logger
}

// NewService builds a Service. store may be nil for a purely in-memory
// index.
func NewService(
	splitter *chunking.Splitter,
	embedder embedding.Embedder,
	index *vectorindex.Index,
	store *vectorindex.Store,
	cfg Config,
) *Service {
	if cfg.RelevanceThreshold == 0 {
		cfg.RelevanceThreshold = DefaultRelevanceThreshold
	}
	if cfg.TopK == 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		splitter:  splitter,
		embedder:  embedder,
		index:     index,
		store:     store,
		threshold: cfg.RelevanceThreshold,
		topK:      cfg.TopK,
		logger:    cfg.Logger,
	}
}

// Ingest chunks a document, embeds each chunk through the cache, and upserts
// the results into the vector index. Re-ingesting an already-indexed
// document is a no-op beyond refreshing metadata. Returns the number of
// chunks written.
func (s *Service) Ingest(ctx context.Context, doc document.Document) (int, error) {
	if doc.Empty() {
		return 0, fmt.Errorf("ingest %s: %w", doc.ID, coreerrors.ErrMalformedDocument)
	}

	if s.index.HasDocument(doc.ID) {
		s.logger.Debug("document already indexed, refreshing metadata only",
			"document_id", doc.ID)
		return 0, nil
	}

	chunks := s.splitter.Split(doc)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return start, coreerrors.Unavailable("embedding", err)
		}

		for i, c := range batch {
			if err := s.index.Upsert(c, vectors[i]); err != nil {
				return start + i, fmt.Errorf("index chunk %s: %w", c.ChunkID, err)
			}
			if s.store != nil {
				if err := s.store.Save(c, vectors[i]); err != nil {
					return start + i, fmt.Errorf("persist chunk %s: %w", c.ChunkID, err)
				}
			}
		}
	}

	s.logger.Info("document ingested",
		"document_id", doc.ID, "source", doc.SourceLabel, "chunks", len(chunks))
	return len(chunks), nil
}

// Retrieve embeds the query (cache-checked) and returns the top-k matches.
// When the embedding capability is unavailable it fails closed: an empty
// Result and a nil error, so callers can fall back to web search.
func (s *Service) Retrieve(ctx context.Context, query string, k int) (*Result, error) {
	if k <= 0 {
		k = s.topK
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("embedding unavailable, retrieval failing closed", "error", err)
		return &Result{}, nil
	}

	scored := s.index.Search(vector, k)

	result := &Result{Matches: make([]Match, 0, len(scored))}
	for _, sc := range scored {
		strong := sc.Score >= s.threshold
		result.Matches = append(result.Matches, Match{
			Chunk:  sc.Chunk,
			Score:  sc.Score,
			Strong: strong,
		})
		if strong {
			result.Strong = true
		}
	}
	return result, nil
}

// Threshold returns the configured relevance threshold.
func (s *Service) Threshold() float64 {
	return s.threshold
}
