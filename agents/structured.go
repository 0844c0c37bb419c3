package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coreerrors "github.com/adalundhe/sibyl/core/errors"
	"github.com/adalundhe/sibyl/core/providers"
)

// StructuredAgent forces the model into a fixed JSON shape and validates the
// output before returning it. Malformed output is an agent failure, which
// lets the orchestrator fall back to a freer strategy.
type StructuredAgent struct {
	provider        providers.Provider
	deps            Deps
	logger          *slog.Logger
	bufferStreaming bool
}

// structuredPayload is the schema the model must produce.
type structuredPayload struct {
	Answer    string   `json:"answer"`
	KeyPoints []string `json:"key_points"`
}

func NewStructuredAgent(cfg AgentConfig) *StructuredAgent {
	cfg.normalize()
	return &StructuredAgent{
		provider:        cfg.Provider,
		deps:            cfg.Deps,
		logger:          cfg.Logger,
		bufferStreaming: cfg.BufferStreaming,
	}
}

func (a *StructuredAgent) Kind() Kind {
	return KindStructured
}

func (a *StructuredAgent) Respond(ctx context.Context, req *Request) (*Answer, error) {
	started := time.Now()

	result, err := a.deps.Retriever.Retrieve(ctx, req.Question, a.deps.TopK)
	if err != nil {
		return nil, err
	}
	citations := internalCitations(result)

	// A recency signal overrides the agent choice's usual document-only
	// sourcing: fresh facts have to come from the web.
	if req.NeedsWeb && a.deps.Searcher != nil {
		webResp, searchErr := a.deps.Searcher.Search(ctx, req.Question)
		if searchErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.Warn("web search unavailable, continuing with documents", "error", searchErr)
		} else {
			citations = append(citations, webCitations(webResp)...)
		}
	}

	raw, err := generate(ctx, a.provider, &providers.Request{
		Messages:     buildMessages(req, citations),
		SystemPrompt: structuredSystemPrompt,
	}, a.bufferStreaming)
	if err != nil {
		return nil, coreerrors.Unavailable("llm", err)
	}

	payload, err := parseStructured(raw)
	if err != nil {
		a.logger.Warn("structured output validation failed", "error", err)
		return nil, fmt.Errorf("structured agent: %w", err)
	}

	text := payload.Answer
	if len(payload.KeyPoints) > 0 {
		text = text + "\n\n- " + strings.Join(payload.KeyPoints, "\n- ")
	}

	return &Answer{
		Text:      text,
		Sources:   citations,
		AgentUsed: KindStructured,
		LatencyMs: time.Since(started).Milliseconds(),
	}, nil
}

// parseStructured extracts and validates the JSON object from raw model
// output, tolerating surrounding prose or code fences.
func parseStructured(raw string) (*structuredPayload, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in output")
	}

	var payload structuredPayload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON output: %w", err)
	}
	if payload.Answer == "" {
		return nil, fmt.Errorf("JSON output missing answer field")
	}
	return &payload, nil
}
