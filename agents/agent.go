// Package agents defines the closed set of reasoning strategies and the
// uniform interface the orchestrator invokes them through.
package agents

import (
	"context"

	"github.com/adalundhe/sibyl/core/providers"
)

// Kind identifies one reasoning strategy.
type Kind string

const (
	// KindDocumentGrounded answers from retrieved document chunks,
	// merging web results when internal matches are weak.
	KindDocumentGrounded Kind = "document_grounded"

	// KindWorkflow decomposes the question into staged steps.
	KindWorkflow Kind = "workflow"

	// KindStructured produces schema-validated JSON output.
	KindStructured Kind = "structured"

	// KindHybrid combines staged execution with validated output.
	KindHybrid Kind = "hybrid"
)

// Kinds returns the full agent set.
func Kinds() []Kind {
	return []Kind{KindDocumentGrounded, KindWorkflow, KindStructured, KindHybrid}
}

// Valid reports whether k names a known strategy.
func (k Kind) Valid() bool {
	switch k {
	case KindDocumentGrounded, KindWorkflow, KindStructured, KindHybrid:
		return true
	}
	return false
}

// Ranking is the static preference order used to build fallback chains.
var Ranking = []Kind{KindWorkflow, KindHybrid, KindStructured, KindDocumentGrounded}

// FallbackOrder returns the full agent set minus chosen, in Ranking order.
// Every request therefore has a deterministic, total fallback path.
func FallbackOrder(chosen Kind) []Kind {
	order := make([]Kind, 0, len(Ranking)-1)
	for _, k := range Ranking {
		if k != chosen {
			order = append(order, k)
		}
	}
	return order
}

// Origin marks where a citation came from.
type Origin string

const (
	OriginInternal Origin = "internal"
	OriginWeb      Origin = "web"
)

// Citation points an answer back at its evidence.
type Citation struct {
	Origin  Origin  `json:"origin"`
	ChunkID string  `json:"chunk_id,omitempty"`
	URL     string  `json:"url,omitempty"`
	Title   string  `json:"title,omitempty"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// Answer is the result of one agent invocation. It is owned by the request
// that produced it and never shared.
type Answer struct {
	Text      string     `json:"text"`
	Sources   []Citation `json:"sources,omitempty"`
	AgentUsed Kind       `json:"agent_used"`
	LatencyMs int64      `json:"latency_ms"`
	Steps     []string   `json:"steps,omitempty"`
}

// Request carries everything an agent needs to answer.
type Request struct {
	Question string
	History  []providers.Message
	NeedsWeb bool
}

// Agent is one reasoning strategy.
type Agent interface {
	Kind() Kind
	Respond(ctx context.Context, req *Request) (*Answer, error)
}
