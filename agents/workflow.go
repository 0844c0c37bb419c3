package agents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	coreerrors "github.com/adalundhe/sibyl/core/errors"
	"github.com/adalundhe/sibyl/core/providers"
)

const planSystemPrompt = `You are a planner. Break the question into a short numbered list of
concrete steps, one per line. Output only the steps.`

// WorkflowAgent executes in stages: plan the work, gather evidence, then
// synthesize an answer from the plan and the evidence. Each stage is
// recorded in the answer's step trace.
type WorkflowAgent struct {
	provider        providers.Provider
	deps            Deps
	logger          *slog.Logger
	bufferStreaming bool
}

func NewWorkflowAgent(cfg AgentConfig) *WorkflowAgent {
	cfg.normalize()
	return &WorkflowAgent{
		provider:        cfg.Provider,
		deps:            cfg.Deps,
		logger:          cfg.Logger,
		bufferStreaming: cfg.BufferStreaming,
	}
}

func (a *WorkflowAgent) Kind() Kind {
	return KindWorkflow
}

func (a *WorkflowAgent) Respond(ctx context.Context, req *Request) (*Answer, error) {
	started := time.Now()
	steps := make([]string, 0, 3)

	// Stage 1: plan.
	plan, err := generate(ctx, a.provider, &providers.Request{
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: req.Question},
		},
		SystemPrompt: planSystemPrompt,
	}, a.bufferStreaming)
	if err != nil {
		return nil, coreerrors.Unavailable("llm", err)
	}
	steps = append(steps, "plan")

	// Stage 2: gather evidence.
	result, err := a.deps.Retriever.Retrieve(ctx, req.Question, a.deps.TopK)
	if err != nil {
		return nil, err
	}
	citations := internalCitations(result)

	if req.NeedsWeb && a.deps.Searcher != nil {
		webResp, searchErr := a.deps.Searcher.Search(ctx, req.Question)
		if searchErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.Warn("web search unavailable during gather stage", "error", searchErr)
		} else {
			citations = append(citations, webCitations(webResp)...)
		}
	}
	steps = append(steps, "gather")

	// Stage 3: synthesize.
	synthesisReq := &Request{
		Question: fmt.Sprintf("Plan:\n%s\n\nFollow the plan to answer: %s", plan, req.Question),
		History:  req.History,
	}
	text, err := generate(ctx, a.provider, &providers.Request{
		Messages:     buildMessages(synthesisReq, citations),
		SystemPrompt: answerSystemPrompt,
	}, a.bufferStreaming)
	if err != nil {
		return nil, coreerrors.Unavailable("llm", err)
	}
	steps = append(steps, "synthesize")

	return &Answer{
		Text:      text,
		Sources:   citations,
		AgentUsed: KindWorkflow,
		LatencyMs: time.Since(started).Milliseconds(),
		Steps:     steps,
	}, nil
}
