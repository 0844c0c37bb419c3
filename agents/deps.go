package agents

import (
	"context"

	"github.com/adalundhe/sibyl/core/retrieval"
	"github.com/adalundhe/sibyl/core/websearch"
)

// Retriever is the slice of the retrieval service agents depend on.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) (*retrieval.Result, error)
	Threshold() float64
}

// Searcher mirrors websearch.Searcher so agents can run without a web
// backend configured.
type Searcher = websearch.Searcher

// Deps bundles the shared collaborators injected into every agent.
type Deps struct {
	Retriever Retriever
	Searcher  Searcher // nil disables the web merge
	TopK      int
}

// internalCitations converts retrieval matches into internal-origin
// citations.
func internalCitations(result *retrieval.Result) []Citation {
	if result.Empty() {
		return nil
	}
	citations := make([]Citation, 0, len(result.Matches))
	for _, m := range result.Matches {
		citations = append(citations, Citation{
			Origin:  OriginInternal,
			ChunkID: m.Chunk.ChunkID,
			Snippet: m.Chunk.Text,
			Score:   m.Score,
		})
	}
	return citations
}

// webCitations converts web results into web-origin citations.
func webCitations(resp *websearch.Response) []Citation {
	if resp == nil {
		return nil
	}
	citations := make([]Citation, 0, len(resp.Results))
	for _, r := range resp.Results {
		citations = append(citations, Citation{
			Origin:  OriginWeb,
			URL:     r.URL,
			Title:   r.Title,
			Snippet: r.Snippet,
			Score:   r.Score,
		})
	}
	return citations
}
