// Package orchestrator drives the analyze → execute → fallback state
// machine that turns a question into an answer.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adalundhe/sibyl/agents"
	"github.com/adalundhe/sibyl/core/analyzer"
	coreerrors "github.com/adalundhe/sibyl/core/errors"
	"github.com/adalundhe/sibyl/core/providers"
	"github.com/adalundhe/sibyl/core/session"
)

const degradedAnswer = "I'm unable to answer this question right now. Please try again later."

// Orchestrator routes questions through the agent registry with a
// deterministic fallback chain. It holds no per-request state; one instance
// serves all concurrent requests.
type Orchestrator struct {
	registry *agents.Registry
	sessions session.Store
	config   Config
}

func New(registry *agents.Registry, sessions session.Store, config Config) *Orchestrator {
	config.normalize()
	return &Orchestrator{
		registry: registry,
		sessions: sessions,
		config:   config,
	}
}

// Orchestrate answers one question. Empty questions are rejected before
// analysis; every other well-formed request yields a Response, degraded if
// all agents failed. The session write happens only after a terminal state.
func (o *Orchestrator) Orchestrate(ctx context.Context, req *Request) (*Response, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, coreerrors.ErrEmptyQuestion
	}

	ctx, cancel := context.WithTimeout(ctx, o.config.RequestDeadline)
	defer cancel()

	// Session history is read before the first agent invocation.
	history, err := o.loadHistory(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	var trace []string
	trace = append(trace, "state=analyzing")

	decision, err := o.decide(req, history)
	if err != nil {
		return nil, err
	}
	trace = append(trace, decision.Reasoning, decision.Describe())

	chain := o.buildChain(decision)

	agentReq := &agents.Request{
		Question: req.Question,
		History:  history,
		NeedsWeb: decision.NeedsWeb,
	}

	response := o.execute(ctx, chain, agentReq, decision, &trace)
	decision.Reasoning = strings.Join(trace, "; ")

	o.recordTurn(req, response)
	return response, nil
}

// decide produces the routing decision, honoring a forced agent.
func (o *Orchestrator) decide(req *Request, history []providers.Message) (*analyzer.Decision, error) {
	if req.ForcedAgent != "" {
		if !req.ForcedAgent.Valid() {
			return nil, fmt.Errorf("%w: %q", coreerrors.ErrUnknownAgent, req.ForcedAgent)
		}
		return &analyzer.Decision{
			ChosenAgent:   req.ForcedAgent,
			Category:      analyzer.CategoryQA,
			Confidence:    1,
			Reasoning:     fmt.Sprintf("forced selection: %s", req.ForcedAgent),
			FallbackOrder: agents.FallbackOrder(req.ForcedAgent),
		}, nil
	}

	reqCtx := req.Context
	if len(history) > 0 {
		reqCtx.MultiTurn = true
	}
	return analyzer.Analyze(req.Question, reqCtx)
}

// buildChain returns the chosen agent followed by its fallbacks.
func (o *Orchestrator) buildChain(decision *analyzer.Decision) []agents.Kind {
	fallbacks := decision.FallbackOrder
	if len(o.config.FallbackOverride) > 0 {
		fallbacks = nil
		for _, k := range o.config.FallbackOverride {
			if k != decision.ChosenAgent {
				fallbacks = append(fallbacks, k)
			}
		}
	}
	return append([]agents.Kind{decision.ChosenAgent}, fallbacks...)
}

// execute walks the fallback chain until an agent succeeds or the chain is
// exhausted. Each transition appends a trace entry.
func (o *Orchestrator) execute(
	ctx context.Context,
	chain []agents.Kind,
	req *agents.Request,
	decision *analyzer.Decision,
	trace *[]string,
) *Response {
	for _, kind := range chain {
		if ctx.Err() != nil {
			*trace = append(*trace, "state=exhausted reason=request deadline exceeded")
			o.config.Logger.Warn("request deadline exceeded before chain completed",
				"remaining_agent", kind)
			break
		}

		agent, ok := o.registry.Get(kind)
		if !ok {
			*trace = append(*trace, fmt.Sprintf("skip agent=%s reason=not registered", kind))
			continue
		}

		*trace = append(*trace, fmt.Sprintf("state=executing agent=%s", kind))
		started := time.Now()

		answer, err := o.invoke(ctx, agent, req)
		if err != nil {
			*trace = append(*trace, fmt.Sprintf("agent=%s failed: %v", kind, err))
			o.config.Logger.Warn("agent failed, advancing fallback chain",
				"agent", kind,
				"elapsed", time.Since(started),
				"error", err)
			continue
		}

		*trace = append(*trace, fmt.Sprintf("state=succeeded agent=%s", kind))
		o.config.Logger.Info("question answered",
			"agent", kind,
			"latency_ms", answer.LatencyMs,
			"sources", len(answer.Sources))

		return &Response{Answer: answer, Decision: decision, State: StateSucceeded}
	}

	if ctx.Err() == nil {
		*trace = append(*trace, "state=exhausted reason=all agents failed")
	}
	o.config.Logger.Error("fallback chain exhausted", "chain", chain)

	return &Response{
		Answer:   &agents.Answer{Text: degradedAnswer},
		Decision: decision,
		State:    StateExhausted,
	}
}

// invoke runs one agent under the per-agent timeout.
func (o *Orchestrator) invoke(ctx context.Context, agent agents.Agent, req *agents.Request) (*agents.Answer, error) {
	agentCtx, cancel := context.WithTimeout(ctx, o.config.AgentTimeout)
	defer cancel()

	answer, err := agent.Respond(agentCtx, req)
	if err != nil {
		return nil, err
	}
	if answer == nil {
		return nil, fmt.Errorf("agent returned no answer")
	}
	return answer, nil
}

func (o *Orchestrator) loadHistory(ctx context.Context, sessionID string) ([]providers.Message, error) {
	if sessionID == "" || o.sessions == nil {
		return nil, nil
	}

	sess, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	turns := sess.Turns
	if max := o.config.MaxHistoryTurns; max > 0 && len(turns) > max {
		turns = turns[len(turns)-max:]
	}

	history := make([]providers.Message, 0, len(turns))
	for _, turn := range turns {
		role := providers.RoleUser
		if turn.Role == session.RoleAssistant {
			role = providers.RoleAssistant
		}
		history = append(history, providers.Message{Role: role, Content: turn.Text})
	}
	return history, nil
}

// recordTurn writes the exchange to the session store after the terminal
// state. A failed write is logged, not surfaced, since the answer already
// exists.
func (o *Orchestrator) recordTurn(req *Request, response *Response) {
	if req.SessionID == "" || o.sessions == nil {
		return
	}

	// The request context may already be past its deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := o.sessions.Append(ctx, req.SessionID,
		session.NewTurn(session.RoleUser, req.Question),
		session.NewTurn(session.RoleAssistant, response.Answer.Text),
	)
	if err != nil {
		o.config.Logger.Warn("session write failed",
			"session_id", req.SessionID, "error", err)
	}
}
