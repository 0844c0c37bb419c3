package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	coreerrors "github.com/adalundhe/sibyl/core/errors"
	"github.com/adalundhe/sibyl/core/providers"
)

// HybridAgent combines the workflow agent's staged gathering with the
// structured agent's validated output. It is the middle ground preferred
// for analysis tasks and for moderate structured work.
type HybridAgent struct {
	provider        providers.Provider
	deps            Deps
	logger          *slog.Logger
	bufferStreaming bool
}

func NewHybridAgent(cfg AgentConfig) *HybridAgent {
	cfg.normalize()
	return &HybridAgent{
		provider:        cfg.Provider,
		deps:            cfg.Deps,
		logger:          cfg.Logger,
		bufferStreaming: cfg.BufferStreaming,
	}
}

func (a *HybridAgent) Kind() Kind {
	return KindHybrid
}

func (a *HybridAgent) Respond(ctx context.Context, req *Request) (*Answer, error) {
	started := time.Now()
	steps := make([]string, 0, 2)

	// Gather evidence like the workflow agent, web included on demand.
	result, err := a.deps.Retriever.Retrieve(ctx, req.Question, a.deps.TopK)
	if err != nil {
		return nil, err
	}
	citations := internalCitations(result)

	if (!result.Strong || req.NeedsWeb) && a.deps.Searcher != nil {
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
	steps = append(steps, "gather")

	// Produce validated structured output like the structured agent.
	raw, err := generate(ctx, a.provider, &providers.Request{
		Messages:     buildMessages(req, citations),
		SystemPrompt: structuredSystemPrompt,
	}, a.bufferStreaming)
	if err != nil {
		return nil, coreerrors.Unavailable("llm", err)
	}

	payload, err := parseStructured(raw)
	if err != nil {
		a.logger.Warn("hybrid output validation failed", "error", err)
		return nil, fmt.Errorf("hybrid agent: %w", err)
	}
	steps = append(steps, "validate")

	text := payload.Answer
	if len(payload.KeyPoints) > 0 {
		text = text + "\n\n- " + strings.Join(payload.KeyPoints, "\n- ")
	}

	return &Answer{
		Text:      text,
		Sources:   citations,
		AgentUsed: KindHybrid,
		LatencyMs: time.Since(started).Milliseconds(),
		Steps:     steps,
	}, nil
}
