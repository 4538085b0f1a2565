// Package agent holds the named prompt transforms the orchestrator answers
// through.
package agent

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

const (
	Summarization = "summarization"
	Planning      = "planning"
	Retrieval     = "retrieval"
)

var (
	ErrEmptyName     = errors.New("agent name must not be empty")
	ErrDuplicateName = errors.New("agent already registered")
)

// Agent prefixes a query with a fixed instruction.
type Agent struct {
	Name        string
	Prefix      string
	Description string
}

// Prompt returns the effective prompt for query.
func (a Agent) Prompt(query string) string {
	return a.Prefix + " " + query
}

// Builtin returns the default agents.
func Builtin() []Agent {
	return []Agent{
		{Name: Summarization, Prefix: "Summarize this:", Description: "Summarizes long text into key points and main ideas"},
		{Name: Planning, Prefix: "Plan the following task:", Description: "Creates step-by-step plans and strategies for tasks and projects"},
		{Name: Retrieval, Prefix: "Extract key info from this:", Description: "Extracts and highlights the most important information from text"},
	}
}

// Registry is a concurrency-safe set of agents keyed by name.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// NewRegistry creates a registry holding the given agents.
func NewRegistry(agents ...Agent) (*Registry, error) {
	r := &Registry{agents: make(map[string]Agent, len(agents))}
	for _, a := range agents {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewDefaultRegistry creates a registry with the built-in agents.
func NewDefaultRegistry() *Registry {
	r, _ := NewRegistry(Builtin()...)
	return r
}

// Register adds a custom agent.
func (r *Registry) Register(a Agent) error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[a.Name]; ok {
		return ErrDuplicateName
	}
	r.agents[a.Name] = a
	return nil
}

// Get looks an agent up by name.
func (r *Registry) Get(name string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// Descriptions maps each agent name to its description.
func (r *Registry) Descriptions() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.agents))
	for name, a := range r.agents {
		out[name] = a.Description
	}
	return out
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
