// Package chunking splits documents into overlapping, citation-bearing
// segments. Splitting is deterministic: no randomness, no external calls.
package chunking

import (
	"fmt"
	"strings"

	"github.com/adalundhe/sibyl/core/document"
)

const (
	// DefaultSize is the target chunk size in words.
	DefaultSize = 800

	// DefaultOverlap is the number of words shared between adjacent chunks.
	DefaultOverlap = 100

	// boundarySearchDivisor bounds how far a chunk end may snap back to land
	// on a sentence boundary: at most size/boundarySearchDivisor words.
	boundarySearchDivisor = 8
)

// Chunk is a bounded, overlap-aware segment of a document. Offsets are byte
// positions in the original text so citations can map back to the source.
type Chunk struct {
	ChunkID         string `json:"chunk_id"`
	DocumentID      string `json:"document_id"`
	Text            string `json:"text"`
	Ordinal         int    `json:"ordinal"`
	OverlapWithPrev int    `json:"overlap_with_prev"`
	StartOffset     int    `json:"start_offset"`
	EndOffset       int    `json:"end_offset"`
}

// Splitter divides documents into chunks of a target word count with a fixed
// overlap, preferring sentence and paragraph boundaries.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter validates the size/overlap pair and returns a Splitter.
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, size), got %d", overlap)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// NewDefaultSplitter returns a Splitter with the default size and overlap.
func NewDefaultSplitter() *Splitter {
	s, _ := NewSplitter(DefaultSize, DefaultOverlap)
	return s
}

// span records a word's byte extent in the source text.
type span struct {
	start int
	end   int
}

// Split divides the document into chunks. Identical input always yields an
// identical chunk sequence, and no chunk is ever empty.
func (s *Splitter) Split(doc document.Document) []Chunk {
	words := scanWords(doc.RawText)
	if len(words) == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	prevEnd := 0

	for start < len(words) {
		end := start + s.size
		if end >= len(words) {
			end = len(words)
		} else {
			end = s.snapToBoundary(doc.RawText, words, start, end)
		}

		overlap := 0
		if len(chunks) > 0 {
			overlap = prevEnd - start
		}

		chunks = append(chunks, Chunk{
			ChunkID:         ChunkID(doc.ID, len(chunks)),
			DocumentID:      doc.ID,
			Text:            doc.RawText[words[start].start:words[end-1].end],
			Ordinal:         len(chunks),
			OverlapWithPrev: overlap,
			StartOffset:     words[start].start,
			EndOffset:       words[end-1].end,
		})

		if end == len(words) {
			break
		}
		prevEnd = end
		start = end - s.overlap
	}

	return chunks
}

// ChunkID derives the stable identifier for a document's nth chunk.
func ChunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s:%04d", documentID, ordinal)
}

// snapToBoundary moves a tentative chunk end backwards to the nearest
// sentence or paragraph boundary. The snap never reaches into the overlap
// window: the returned end always exceeds start+overlap, so the next chunk
// makes progress and boundaries never split inside the overlap region.
func (s *Splitter) snapToBoundary(text string, words []span, start, end int) int {
	floor := end - s.size/boundarySearchDivisor
	if min := start + s.overlap + 1; floor < min {
		floor = min
	}

	for i := end; i > floor; i-- {
		if isBoundaryAfter(text, words, i-1) {
			return i
		}
	}
	return end
}

// isBoundaryAfter reports whether a sentence or paragraph break follows the
// word at index i.
func isBoundaryAfter(text string, words []span, i int) bool {
	w := text[words[i].start:words[i].end]
	switch w[len(w)-1] {
	case '.', '!', '?', ':', ';':
		return true
	}
	if i+1 < len(words) {
		gap := text[words[i].end:words[i+1].start]
		return strings.Count(gap, "\n") >= 2
	}
	return false
}

// scanWords returns the byte extents of whitespace-separated words.
func scanWords(text string) []span {
	var words []span
	inWord := false
	start := 0
	for i, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if inWord {
				words = append(words, span{start: start, end: i})
				inWord = false
			}
			continue
		}
		if !inWord {
			start = i
			inWord = true
		}
	}
	if inWord {
		words = append(words, span{start: start, end: len(text)})
	}
	return words
}
