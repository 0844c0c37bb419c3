package agents

import (
	"context"
	"log/slog"
	"time"

	coreerrors "github.com/adalundhe/sibyl/core/errors"
	"github.com/adalundhe/sibyl/core/providers"
)

// DocumentGroundedAgent answers from retrieved chunks. When retrieval lacks
// a strong match, or the question demands recency, it merges web results and
// annotates every citation with its origin. The merge, not agent identity,
// determines final citation content.
type DocumentGroundedAgent struct {
	provider        providers.Provider
	deps            Deps
	logger          *slog.Logger
	bufferStreaming bool
}

// AgentConfig carries the knobs shared by all agent constructors.
type AgentConfig struct {
	Provider providers.Provider
	Deps     Deps
	Logger   *slog.Logger

	// BufferStreaming buffers streamed generation fully before returning,
	// keeping a mid-stream failure retryable by the fallback chain.
	BufferStreaming bool
}

func (c *AgentConfig) normalize() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func NewDocumentGroundedAgent(cfg AgentConfig) *DocumentGroundedAgent {
	cfg.normalize()
	return &DocumentGroundedAgent{
		provider:        cfg.Provider,
		deps:            cfg.Deps,
		logger:          cfg.Logger,
		bufferStreaming: cfg.BufferStreaming,
	}
}

func (a *DocumentGroundedAgent) Kind() Kind {
	return KindDocumentGrounded
}

func (a *DocumentGroundedAgent) Respond(ctx context.Context, req *Request) (*Answer, error) {
	started := time.Now()

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
			a.logger.Warn("web search unavailable, answering from documents only",
				"error", searchErr)
		} else {
			citations = append(citations, webCitations(webResp)...)
		}
	}

	text, err := generate(ctx, a.provider, &providers.Request{
		Messages:     buildMessages(req, citations),
		SystemPrompt: answerSystemPrompt,
	}, a.bufferStreaming)
	if err != nil {
		return nil, coreerrors.Unavailable("llm", err)
	}

	return &Answer{
		Text:      text,
		Sources:   citations,
		AgentUsed: KindDocumentGrounded,
		LatencyMs: time.Since(started).Milliseconds(),
	}, nil
}

// generate runs one provider call, either buffered-streaming or blocking.
func generate(
	ctx context.Context,
	provider providers.Provider,
	req *providers.Request,
	buffered bool,
) (string, error) {
	if buffered {
		resp, err := providers.StreamWithCallback(ctx, provider, req, nil)
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	}

	resp, err := provider.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
