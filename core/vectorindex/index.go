package vectorindex

import (
	"fmt"
	"sort"
	"sync"

	"github.com/adalundhe/sibyl/core/chunking"
)

// Scored pairs a chunk with its similarity score in [0, 1].
type Scored struct {
	Chunk chunking.Chunk
	Score float64
}

type entry struct {
	chunk  chunking.Chunk
	vector []float32
	mag    float64
}

// Index is an in-memory vector index with cosine top-k search. Upserts are
// keyed by chunk ID, so re-indexing a chunk replaces its previous vector.
type Index struct {
	mu        sync.RWMutex
	dim       int
	entries   map[string]*entry
	order     []string
	docChunks map[string]int
}

// New creates an Index for vectors of the given dimension.
func New(dim int) *Index {
	return &Index{
		dim:       dim,
		entries:   make(map[string]*entry),
		docChunks: make(map[string]int),
	}
}

// Upsert inserts or replaces the vector for a chunk.
func (ix *Index) Upsert(chunk chunking.Chunk, vector []float32) error {
	if len(vector) != ix.dim {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vector), ix.dim)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, exists := ix.entries[chunk.ChunkID]; !exists {
		ix.order = append(ix.order, chunk.ChunkID)
		ix.docChunks[chunk.DocumentID]++
	}
	ix.entries[chunk.ChunkID] = &entry{
		chunk:  chunk,
		vector: vector,
		mag:    Magnitude(vector),
	}
	return nil
}

// Search returns the top-k chunks by cosine similarity, scores descending.
// A result set never contains duplicate chunk IDs.
func (ix *Index) Search(query []float32, k int) []Scored {
	if len(query) != ix.dim || k <= 0 {
		return nil
	}
	queryMag := Magnitude(query)

	ix.mu.RLock()
	results := make([]Scored, 0, len(ix.order))
	for _, id := range ix.order {
		e := ix.entries[id]
		cos := CosineSimilarity(query, e.vector, queryMag, e.mag)
		results = append(results, Scored{Chunk: e.chunk, Score: NormalizeScore(cos)})
	}
	ix.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k < len(results) {
		results = results[:k]
	}
	return results
}

// HasDocument reports whether any chunks of a document are indexed.
func (ix *Index) HasDocument(documentID string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.docChunks[documentID] > 0
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Dimension returns the index's vector dimension.
func (ix *Index) Dimension() int {
	return ix.dim
}
