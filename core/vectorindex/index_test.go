package vectorindex

import (
	"path/filepath"
	"testing"

	"github.com/adalundhe/sibyl/core/chunking"
)

func mkChunk(docID string, ordinal int, text string) chunking.Chunk {
	return chunking.Chunk{
		ChunkID:    chunking.ChunkID(docID, ordinal),
		DocumentID: docID,
		Text:       text,
		Ordinal:    ordinal,
	}
}

func TestIndex_SearchOrdering(t *testing.T) {
	ix := New(3)

	ix.Upsert(mkChunk("d1", 0, "exact"), []float32{1, 0, 0})
	ix.Upsert(mkChunk("d1", 1, "close"), []float32{0.9, 0.1, 0})
	ix.Upsert(mkChunk("d2", 0, "orthogonal"), []float32{0, 1, 0})
	ix.Upsert(mkChunk("d2", 1, "opposite"), []float32{-1, 0, 0})

	results := ix.Search([]float32{1, 0, 0}, 4)
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}

	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not descending at %d: %f > %f", i, results[i].Score, results[i-1].Score)
		}
	}
	if results[0].Chunk.Text != "exact" {
		t.Errorf("top result = %q, want exact match", results[0].Chunk.Text)
	}

	// Scores stay in [0, 1] even for opposed vectors.
	for _, r := range results {
		if r.Score < 0 || r.Score > 1 {
			t.Errorf("score %f outside [0, 1]", r.Score)
		}
	}
}

func TestIndex_NoDuplicateChunkIDs(t *testing.T) {
	ix := New(2)
	c := mkChunk("d1", 0, "v1")

	ix.Upsert(c, []float32{1, 0})
	c.Text = "v2"
	ix.Upsert(c, []float32{0, 1}) // same chunk ID: replace

	if ix.Len() != 1 {
		t.Fatalf("upsert of same chunk ID should replace, index has %d entries", ix.Len())
	}

	results := ix.Search([]float32{0, 1}, 10)
	seen := map[string]bool{}
	for _, r := range results {
		if seen[r.Chunk.ChunkID] {
			t.Errorf("duplicate chunk ID %s in result set", r.Chunk.ChunkID)
		}
		seen[r.Chunk.ChunkID] = true
	}
	if results[0].Chunk.Text != "v2" {
		t.Errorf("stale chunk text %q after upsert", results[0].Chunk.Text)
	}
}

func TestIndex_DimensionMismatch(t *testing.T) {
	ix := New(4)
	if err := ix.Upsert(mkChunk("d1", 0, "bad"), []float32{1, 2}); err == nil {
		t.Error("dimension mismatch should be rejected")
	}
	if got := ix.Search([]float32{1, 2}, 3); got != nil {
		t.Error("mismatched query should return nil")
	}
}

func TestIndex_HasDocument(t *testing.T) {
	ix := New(2)
	ix.Upsert(mkChunk("doc-a", 0, "text"), []float32{1, 0})

	if !ix.HasDocument("doc-a") {
		t.Error("doc-a should be indexed")
	}
	if ix.HasDocument("doc-b") {
		t.Error("doc-b should not be indexed")
	}
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.db")

	store, err := OpenStore(path)
	if err != nil {
		t.Fatal(err)
	}

	chunk := mkChunk("doc-p", 0, "persisted text")
	chunk.StartOffset = 3
	chunk.EndOffset = 17
	if err := store.Save(chunk, []float32{0.25, -1.5, 3}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = OpenStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ix := New(3)
	if err := store.LoadInto(ix); err != nil {
		t.Fatal(err)
	}

	if ix.Len() != 1 {
		t.Fatalf("index has %d entries after reload, want 1", ix.Len())
	}
	results := ix.Search([]float32{0.25, -1.5, 3}, 1)
	if len(results) != 1 || results[0].Chunk.Text != "persisted text" {
		t.Fatalf("reloaded chunk not searchable: %+v", results)
	}
	if results[0].Chunk.StartOffset != 3 || results[0].Chunk.EndOffset != 17 {
		t.Error("offsets lost in persistence round-trip")
	}
	if results[0].Score < 0.999 {
		t.Errorf("self-similarity score = %f, want ~1", results[0].Score)
	}
}
