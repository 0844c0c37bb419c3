package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/sibyl/agents"
	coreerrors "github.com/adalundhe/sibyl/core/errors"
	"github.com/adalundhe/sibyl/core/session"
)

// stubAgent records invocations and answers or fails on demand.
type stubAgent struct {
	kind agents.Kind
	err  error
	slow time.Duration

	mu        sync.Mutex
	questions []string
}

func (a *stubAgent) Kind() agents.Kind { return a.kind }

func (a *stubAgent) Respond(ctx context.Context, req *agents.Request) (*agents.Answer, error) {
	a.mu.Lock()
	a.questions = append(a.questions, req.Question)
	a.mu.Unlock()

	if a.slow > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.slow):
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	return &agents.Answer{
		Text:      "answer from " + string(a.kind),
		AgentUsed: a.kind,
	}, nil
}

func (a *stubAgent) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.questions)
}

func newRegistry(t *testing.T, stubs ...*stubAgent) *agents.Registry {
	t.Helper()
	reg := agents.NewRegistry()
	for _, s := range stubs {
		require.NoError(t, reg.Register(s))
	}
	return reg
}

func allHealthy(t *testing.T) (*agents.Registry, map[agents.Kind]*stubAgent) {
	t.Helper()
	stubs := make(map[agents.Kind]*stubAgent)
	reg := agents.NewRegistry()
	for _, k := range agents.Kinds() {
		s := &stubAgent{kind: k}
		stubs[k] = s
		require.NoError(t, reg.Register(s))
	}
	return reg, stubs
}

func TestOrchestrate_EmptyQuestionRejected(t *testing.T) {
	reg, _ := allHealthy(t)
	o := New(reg, nil, Config{})

	_, err := o.Orchestrate(context.Background(), &Request{Question: "   "})
	require.ErrorIs(t, err, coreerrors.ErrEmptyQuestion)
}

func TestOrchestrate_Succeeds(t *testing.T) {
	reg, stubs := allHealthy(t)
	o := New(reg, nil, Config{})

	resp, err := o.Orchestrate(context.Background(), &Request{
		Question: "Extract user data in JSON format",
	})
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, resp.State)
	assert.Equal(t, agents.KindStructured, resp.Answer.AgentUsed)
	assert.Equal(t, 1, stubs[agents.KindStructured].calls())
	assert.Contains(t, resp.Decision.Reasoning, "state=succeeded")
}

func TestOrchestrate_FallbackOnFailure(t *testing.T) {
	// Structured (chosen for this question) fails; workflow is next in the
	// static ranking and must receive the same question.
	failing := &stubAgent{kind: agents.KindStructured, err: errors.New("boom")}
	next := &stubAgent{kind: agents.KindWorkflow}
	reg := newRegistry(t, failing, next,
		&stubAgent{kind: agents.KindHybrid},
		&stubAgent{kind: agents.KindDocumentGrounded})

	o := New(reg, nil, Config{})

	question := "Extract user data in JSON format"
	resp, err := o.Orchestrate(context.Background(), &Request{Question: question})
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, resp.State)
	assert.Equal(t, agents.KindWorkflow, resp.Answer.AgentUsed)
	assert.Equal(t, []string{question}, failing.questions)
	assert.Equal(t, []string{question}, next.questions)
	assert.Contains(t, resp.Decision.Reasoning, "failed")
}

func TestOrchestrate_ExhaustionReturnsDegraded(t *testing.T) {
	reg := agents.NewRegistry()
	var stubs []*stubAgent
	for _, k := range agents.Kinds() {
		s := &stubAgent{kind: k, err: errors.New("down")}
		stubs = append(stubs, s)
		require.NoError(t, reg.Register(s))
	}

	o := New(reg, nil, Config{})

	resp, err := o.Orchestrate(context.Background(), &Request{Question: "tell me something"})
	require.NoError(t, err, "exhaustion must not surface as an error")

	assert.Equal(t, StateExhausted, resp.State)
	assert.NotEmpty(t, resp.Answer.Text)
	for _, s := range stubs {
		assert.Equal(t, 1, s.calls(), "every agent in the chain must be tried once")
	}
	assert.Contains(t, resp.Decision.Reasoning, "state=exhausted")
}

func TestOrchestrate_ForcedAgent(t *testing.T) {
	reg, stubs := allHealthy(t)
	o := New(reg, nil, Config{})

	resp, err := o.Orchestrate(context.Background(), &Request{
		Question:    "anything at all",
		ForcedAgent: agents.KindHybrid,
	})
	require.NoError(t, err)

	assert.Equal(t, agents.KindHybrid, resp.Answer.AgentUsed)
	assert.Equal(t, 1, stubs[agents.KindHybrid].calls())
	assert.Contains(t, resp.Decision.Reasoning, "forced selection")
}

func TestOrchestrate_ForcedAgentUnknown(t *testing.T) {
	reg, _ := allHealthy(t)
	o := New(reg, nil, Config{})

	_, err := o.Orchestrate(context.Background(), &Request{
		Question:    "anything",
		ForcedAgent: agents.Kind("clairvoyant"),
	})
	require.ErrorIs(t, err, coreerrors.ErrUnknownAgent)
}

func TestOrchestrate_AgentTimeoutTriggersFallback(t *testing.T) {
	slow := &stubAgent{kind: agents.KindStructured, slow: time.Second}
	fast := &stubAgent{kind: agents.KindWorkflow}
	reg := newRegistry(t, slow, fast)

	o := New(reg, nil, Config{AgentTimeout: 50 * time.Millisecond})

	resp, err := o.Orchestrate(context.Background(), &Request{
		Question: "Extract user data in JSON format",
	})
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, resp.State)
	assert.Equal(t, agents.KindWorkflow, resp.Answer.AgentUsed)
}

func TestOrchestrate_RequestDeadlineBoundsChain(t *testing.T) {
	reg := agents.NewRegistry()
	for _, k := range agents.Kinds() {
		require.NoError(t, reg.Register(&stubAgent{kind: k, slow: time.Second}))
	}

	o := New(reg, nil, Config{
		AgentTimeout:    5 * time.Second,
		RequestDeadline: 100 * time.Millisecond,
	})

	started := time.Now()
	resp, err := o.Orchestrate(context.Background(), &Request{Question: "slow everywhere"})
	require.NoError(t, err)

	assert.Equal(t, StateExhausted, resp.State)
	assert.Less(t, time.Since(started), 3*time.Second,
		"global deadline must stop the chain early")
}

func TestOrchestrate_SessionReadAndWrite(t *testing.T) {
	reg, _ := allHealthy(t)
	store := session.NewMemoryStore(session.MemoryConfig{})
	o := New(reg, store, Config{})

	ctx := context.Background()
	_, err := o.Orchestrate(ctx, &Request{
		Question:  "Who is on call?",
		SessionID: "s1",
	})
	require.NoError(t, err)

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, sess.Turns, 2)
	assert.Equal(t, session.RoleUser, sess.Turns[0].Role)
	assert.Equal(t, "Who is on call?", sess.Turns[0].Text)
	assert.Equal(t, session.RoleAssistant, sess.Turns[1].Role)
}

func TestOrchestrate_SkipsUnregisteredAgents(t *testing.T) {
	// Only the last-ranked agent exists; the chain must reach it.
	only := &stubAgent{kind: agents.KindDocumentGrounded}
	reg := newRegistry(t, only)

	o := New(reg, nil, Config{})

	resp, err := o.Orchestrate(context.Background(), &Request{
		Question: "Extract user data in JSON format",
	})
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, resp.State)
	assert.Equal(t, agents.KindDocumentGrounded, resp.Answer.AgentUsed)
	assert.Contains(t, resp.Decision.Reasoning, "not registered")
}

func TestOrchestrate_FallbackOverride(t *testing.T) {
	failing := &stubAgent{kind: agents.KindStructured, err: errors.New("down")}
	preferred := &stubAgent{kind: agents.KindDocumentGrounded}
	skipped := &stubAgent{kind: agents.KindWorkflow}
	reg := newRegistry(t, failing, preferred, skipped)

	o := New(reg, nil, Config{
		FallbackOverride: []agents.Kind{agents.KindDocumentGrounded},
	})

	resp, err := o.Orchestrate(context.Background(), &Request{
		Question: "Extract user data in JSON format",
	})
	require.NoError(t, err)

	assert.Equal(t, agents.KindDocumentGrounded, resp.Answer.AgentUsed)
	assert.Zero(t, skipped.calls())
}
