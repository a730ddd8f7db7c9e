package state

import (
	"path/filepath"
	"testing"

	"github.com/user/agentdeck/internal/types"
)

func newTestStore(t *testing.T) *AgentStore {
	t.Helper()
	return NewAgentStore(filepath.Join(t.TempDir(), "agents.json"))
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)

	agent, err := store.Create(types.AgentCreate{
		Name:        "support-bot",
		Description: "answers support questions",
	})
	if err != nil {
		t.Fatal(err)
	}
	if agent.ID == "" {
		t.Fatal("expected generated id")
	}
	if agent.Tools == nil || agent.Journeys == nil {
		t.Error("expected empty (non-nil) collections")
	}

	got, err := store.Get(agent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "support-bot" {
		t.Errorf("got name %q", got.Name)
	}
}

func TestGetUnknown(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Get("nope"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListEmpty(t *testing.T) {
	store := newTestStore(t)
	agents, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(agents) != 0 {
		t.Errorf("expected empty list, got %d", len(agents))
	}
}

func TestUpdatePartial(t *testing.T) {
	store := newTestStore(t)
	agent, err := store.Create(types.AgentCreate{Name: "original"})
	if err != nil {
		t.Fatal(err)
	}

	name := "renamed"
	tools := []types.Tool{{ID: "t1", Name: "lookup_order"}}
	updated, err := store.Update(agent.ID, types.AgentUpdate{
		Name:  &name,
		Tools: &tools,
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "renamed" {
		t.Errorf("got name %q", updated.Name)
	}
	if len(updated.Tools) != 1 || updated.Tools[0].Name != "lookup_order" {
		t.Errorf("unexpected tools: %+v", updated.Tools)
	}
	if updated.Description != agent.Description {
		t.Error("description should be unchanged")
	}
	if !updated.UpdatedAt.After(agent.UpdatedAt) && !updated.UpdatedAt.Equal(agent.UpdatedAt) {
		t.Error("expected UpdatedAt bumped")
	}
}

func TestUpdateUnknown(t *testing.T) {
	store := newTestStore(t)
	name := "x"
	if _, err := store.Update("missing", types.AgentUpdate{Name: &name}); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	agent, err := store.Create(types.AgentCreate{Name: "doomed"})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(agent.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(agent.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(agent.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.json")
	first := NewAgentStore(path)
	agent, err := first.Create(types.AgentCreate{Name: "durable"})
	if err != nil {
		t.Fatal(err)
	}

	second := NewAgentStore(path)
	got, err := second.Get(agent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "durable" {
		t.Errorf("got name %q", got.Name)
	}
}
