// internal/state/agents.go
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/user/agentdeck/internal/types"
)

// ErrNotFound is returned when an agent id does not exist.
var ErrNotFound = errors.New("agent not found")

// AgentStore is a JSON-file-backed store for agent configurations. The full
// index lives in one file; writes are atomic (temp file then rename).
type AgentStore struct {
	path string
	mu   sync.RWMutex
}

// NewAgentStore creates a file-backed AgentStore at the given path.
func NewAgentStore(path string) *AgentStore {
	return &AgentStore{path: path}
}

func (s *AgentStore) load() (map[types.AgentID]*types.Agent, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[types.AgentID]*types.Agent), nil
		}
		return nil, fmt.Errorf("read agent index: %w", err)
	}

	var agents []*types.Agent
	if err := json.Unmarshal(data, &agents); err != nil {
		return nil, fmt.Errorf("unmarshal agent index: %w", err)
	}

	index := make(map[types.AgentID]*types.Agent, len(agents))
	for _, a := range agents {
		index[a.ID] = a
	}
	return index, nil
}

func (s *AgentStore) save(index map[types.AgentID]*types.Agent) error {
	agents := make([]*types.Agent, 0, len(index))
	for _, a := range index {
		agents = append(agents, a)
	}
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].CreatedAt.Before(agents[j].CreatedAt)
	})

	data, err := json.MarshalIndent(agents, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal agent index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create agents dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp index: %w", err)
	}
	return nil
}

// List returns all agents, most recently updated first.
func (s *AgentStore) List() ([]*types.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index, err := s.load()
	if err != nil {
		return nil, err
	}
	agents := make([]*types.Agent, 0, len(index))
	for _, a := range index {
		agents = append(agents, a)
	}
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].UpdatedAt.After(agents[j].UpdatedAt)
	})
	return agents, nil
}

// Get returns the agent with the given id, or ErrNotFound.
func (s *AgentStore) Get(id types.AgentID) (*types.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index, err := s.load()
	if err != nil {
		return nil, err
	}
	agent, ok := index[id]
	if !ok {
		return nil, ErrNotFound
	}
	return agent, nil
}

// Create adds a new agent with empty tool/glossary/guideline/journey sets.
func (s *AgentStore) Create(payload types.AgentCreate) (*types.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.load()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	agent := &types.Agent{
		ID:          types.NewAgentID(),
		Name:        payload.Name,
		Description: payload.Description,
		Constraints: payload.Constraints,
		CreatedAt:   now,
		UpdatedAt:   now,
		Tools:       []types.Tool{},
		Glossary:    []types.Term{},
		Guidelines:  []types.Guideline{},
		Journeys:    []types.Journey{},
	}
	index[agent.ID] = agent

	if err := s.save(index); err != nil {
		return nil, err
	}
	return agent, nil
}

// Update applies a partial update to an agent and bumps its UpdatedAt.
func (s *AgentStore) Update(id types.AgentID, update types.AgentUpdate) (*types.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.load()
	if err != nil {
		return nil, err
	}
	agent, ok := index[id]
	if !ok {
		return nil, ErrNotFound
	}

	if update.Name != nil {
		agent.Name = *update.Name
	}
	if update.Description != nil {
		agent.Description = *update.Description
	}
	if update.Constraints != nil {
		agent.Constraints = *update.Constraints
	}
	if update.SystemPromptDoc != nil {
		agent.SystemPromptDoc = update.SystemPromptDoc
	}
	if update.Tools != nil {
		agent.Tools = *update.Tools
	}
	if update.Glossary != nil {
		agent.Glossary = *update.Glossary
	}
	if update.Guidelines != nil {
		agent.Guidelines = *update.Guidelines
	}
	if update.Journeys != nil {
		agent.Journeys = *update.Journeys
	}
	agent.UpdatedAt = time.Now().UTC()

	if err := s.save(index); err != nil {
		return nil, err
	}
	return agent, nil
}

// Delete removes an agent. Deleting an unknown id returns ErrNotFound.
func (s *AgentStore) Delete(id types.AgentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := index[id]; !ok {
		return ErrNotFound
	}
	delete(index, id)
	return s.save(index)
}
