// Package analyzer classifies a question into category, complexity, and a
// proposed agent. Analysis is pure: no I/O, no randomness, so routing
// decisions are testable without invoking any agent.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/adalundhe/sibyl/agents"
	coreerrors "github.com/adalundhe/sibyl/core/errors"
)

// Category labels what the question asks for.
type Category string

const (
	CategoryQA               Category = "question_answering"
	CategorySearch           Category = "search"
	CategoryAnalysis         Category = "analysis"
	CategoryWorkflow         Category = "workflow"
	CategoryStructuredOutput Category = "structured_output"
)

// Complexity is an ordinal difficulty estimate.
type Complexity int

const (
	Simple Complexity = iota
	Moderate
	Complex
)

func (c Complexity) String() string {
	switch c {
	case Complex:
		return "complex"
	case Moderate:
		return "moderate"
	default:
		return "simple"
	}
}

// Context carries request-scoped signals that shape the decision.
type Context struct {
	// MultiTurn is set when the session already has prior turns.
	MultiTurn bool

	// RequiresValidation biases toward the validated-output strategies.
	RequiresValidation bool

	// PreferStructured is an explicit caller preference.
	PreferStructured bool
}

// Decision is the immutable routing verdict for one question.
type Decision struct {
	ChosenAgent   agents.Kind
	Category      Category
	Complexity    Complexity
	Confidence    float64
	Reasoning     string
	FallbackOrder []agents.Kind
	NeedsWeb      bool
}

// Signal keyword sets. Single words match whole tokens; phrases match as
// substrings of the lowercased question.
var (
	structuredWords   = []string{"json", "format", "structure", "schema", "fields", "extract", "parse"}
	workflowWords     = []string{"process", "workflow", "sequence", "pipeline", "multiple"}
	workflowPhrases   = []string{"step by step", "multi-step"}
	analysisWords     = []string{"analyze", "compare", "evaluate", "assess", "review", "summary"}
	searchWords       = []string{"find", "search", "lookup", "latest", "current", "recent", "news"}
	recencyWords      = []string{"latest", "current", "today", "recent", "news"}
	multiPartWords    = []string{"and", "then", "after", "also", "additionally"}
	complexityWords   = []string{"complex", "detailed", "comprehensive", "thorough"}
	complexityPhrases = []string{"multi-step"}
)

// Analyze scores a question and proposes an agent. An empty question is
// rejected before any classification runs.
func Analyze(question string, reqCtx Context) (*Decision, error) {
	if strings.TrimSpace(question) == "" {
		return nil, coreerrors.ErrEmptyQuestion
	}

	lower := strings.ToLower(question)
	tokens := tokenSet(lower)

	category := categorize(lower, tokens)
	complexity := assessComplexity(lower, tokens, reqCtx)

	// Workflow signals imply stateful multi-step reasoning regardless of
	// the surface complexity score.
	if category == CategoryWorkflow {
		complexity = Complex
	}

	chosen, confidence, reasoning := selectAgent(category, complexity, reqCtx)

	return &Decision{
		ChosenAgent:   chosen,
		Category:      category,
		Complexity:    complexity,
		Confidence:    confidence,
		Reasoning:     reasoning,
		FallbackOrder: agents.FallbackOrder(chosen),
		NeedsWeb:      containsAny(tokens, lower, recencyWords, nil),
	}, nil
}

// categorize picks the highest-priority matching category:
// structured > workflow > analysis > search > default Q&A.
func categorize(lower string, tokens map[string]bool) Category {
	switch {
	case containsAny(tokens, lower, structuredWords, nil):
		return CategoryStructuredOutput
	case containsAny(tokens, lower, workflowWords, workflowPhrases):
		return CategoryWorkflow
	case containsAny(tokens, lower, analysisWords, nil):
		return CategoryAnalysis
	case containsAny(tokens, lower, searchWords, nil):
		return CategorySearch
	default:
		return CategoryQA
	}
}

func assessComplexity(lower string, tokens map[string]bool, reqCtx Context) Complexity {
	score := 0

	wordCount := len(strings.Fields(lower))
	switch {
	case wordCount > 20:
		score += 2
	case wordCount > 10:
		score++
	}

	if containsAny(tokens, lower, multiPartWords, nil) {
		score += 2
	}
	if containsAny(tokens, lower, complexityWords, complexityPhrases) {
		score += 3
	}
	if reqCtx.MultiTurn {
		score++
	}
	if reqCtx.RequiresValidation {
		score++
	}

	switch {
	case score >= 5:
		return Complex
	case score >= 2:
		return Moderate
	default:
		return Simple
	}
}

// selectAgent applies the category/complexity matrix.
func selectAgent(category Category, complexity Complexity, reqCtx Context) (agents.Kind, float64, string) {
	switch category {
	case CategoryStructuredOutput:
		if complexity == Simple {
			return agents.KindStructured, 0.9,
				"simple structured output handled by the type-safe agent"
		}
		return agents.KindHybrid, 0.85,
			"complex structured output needs staged execution with validated output"

	case CategoryWorkflow:
		return agents.KindWorkflow, 0.9,
			"multi-step work routed to the workflow agent"

	case CategoryAnalysis:
		return agents.KindHybrid, 0.85,
			"analysis benefits from staged reasoning with validated output"

	case CategorySearch:
		return agents.KindDocumentGrounded, 0.8,
			"search tasks routed to the retrieval-first agent"
	}

	if reqCtx.PreferStructured {
		return agents.KindStructured, 0.7, "caller preference for structured output"
	}

	if complexity == Simple {
		return agents.KindStructured, 0.8,
			"simple Q&A benefits from structured output"
	}
	return agents.KindDocumentGrounded, 0.6,
		"balanced retrieval-first approach for unclear requirements"
}

func tokenSet(lower string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-')
	}) {
		set[tok] = true
	}
	return set
}

func containsAny(tokens map[string]bool, lower string, words, phrases []string) bool {
	for _, w := range words {
		if tokens[w] {
			return true
		}
	}
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Describe renders the decision for trace logs.
func (d *Decision) Describe() string {
	return fmt.Sprintf("agent=%s category=%s complexity=%s confidence=%.2f",
		d.ChosenAgent, d.Category, d.Complexity, d.Confidence)
}
