// internal/types/ids.go
package types

import "github.com/google/uuid"

type AgentID string
type EntryID string
type TurnID string

func NewAgentID() AgentID {
	return AgentID(uuid.New().String())
}

func NewEntryID() EntryID {
	return EntryID(uuid.New().String())
}

func NewTurnID() TurnID {
	return TurnID(uuid.New().String())
}
