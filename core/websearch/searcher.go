// Package websearch augments document retrieval with live web results.
// Web content never overrides grounded document matches; it is merged in
// only when local retrieval is weak or the question demands recency.
package websearch

import "context"

// SearchResult is a single web hit.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Response carries web results plus an optional synthesized answer from the
// search backend.
type Response struct {
	Results []SearchResult `json:"results"`
	Answer  string         `json:"answer,omitempty"`
}

// Searcher is the web search capability. Implementations return an empty
// Response rather than fabricating results when the backend has nothing.
type Searcher interface {
	Search(ctx context.Context, query string) (*Response, error)
}
