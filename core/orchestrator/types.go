package orchestrator

import (
	"log/slog"
	"time"

	"github.com/adalundhe/sibyl/agents"
	"github.com/adalundhe/sibyl/core/analyzer"
)

// State is the orchestrator's position in the execution state machine.
type State string

const (
	StateAnalyzing State = "analyzing"
	StateExecuting State = "executing"
	StateSucceeded State = "succeeded"
	StateExhausted State = "exhausted"
)

// Request is one inbound question.
type Request struct {
	Question  string
	SessionID string

	// ForcedAgent bypasses analysis and pins the strategy, used for
	// testing and comparison runs.
	ForcedAgent agents.Kind

	// Context carries caller-supplied routing signals.
	Context analyzer.Context
}

// Response is the terminal result of one orchestration. A well-formed
// request always gets a Response, even when every agent failed.
type Response struct {
	Answer   *agents.Answer
	Decision *analyzer.Decision
	State    State
}

// Config holds the orchestrator's execution policy.
type Config struct {
	// AgentTimeout bounds a single agent invocation.
	AgentTimeout time.Duration

	// RequestDeadline bounds the whole fallback chain.
	RequestDeadline time.Duration

	// FallbackOverride replaces the analyzer's fallback order when set.
	FallbackOverride []agents.Kind

	// MaxHistoryTurns bounds how much session history is replayed into an
	// agent. Zero replays everything.
	MaxHistoryTurns int

	Logger *slog.Logger
}

// DefaultConfig returns the standard execution policy.
func DefaultConfig() Config {
	return Config{
		AgentTimeout:    30 * time.Second,
		RequestDeadline: 2 * time.Minute,
	}
}

func (c *Config) normalize() {
	if c.AgentTimeout <= 0 {
		c.AgentTimeout = 30 * time.Second
	}
	if c.RequestDeadline <= 0 {
		c.RequestDeadline = 2 * time.Minute
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
