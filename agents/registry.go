package agents

import (
	"fmt"
	"sync"
)

// Registry holds the configured agent per Kind. It is populated once at
// startup and read concurrently by request handlers.
type Registry struct {
	mu     sync.RWMutex
	agents map[Kind]Agent
}

func NewRegistry() *Registry {
	return &Registry{agents: make(map[Kind]Agent)}
}

// Register adds an agent, replacing any prior registration for its Kind.
func (r *Registry) Register(agent Agent) error {
	kind := agent.Kind()
	if !kind.Valid() {
		return fmt.Errorf("register agent: unknown kind %q", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[kind] = agent
	return nil
}

// Get returns the agent for a Kind.
func (r *Registry) Get(kind Kind) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[kind]
	return agent, ok
}

// Registered returns the kinds with a registered agent, in Ranking order.
func (r *Registry) Registered() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]Kind, 0, len(r.agents))
	for _, k := range Ranking {
		if _, ok := r.agents[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
