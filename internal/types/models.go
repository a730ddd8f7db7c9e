// internal/types/models.go
package types

import (
	"encoding/json"
	"time"
)

// Agent is one configured conversational persona: identity plus the tools,
// glossary terms, guidelines, and journeys the debug endpoint simulates.
type Agent struct {
	ID              AgentID         `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Constraints     string          `json:"constraints,omitempty"`
	SystemPromptDoc json.RawMessage `json:"system_prompt_doc,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Tools           []Tool          `json:"tools"`
	Glossary        []Term          `json:"glossary"`
	Guidelines      []Guideline     `json:"guidelines"`
	Journeys        []Journey       `json:"journeys"`
}

// Tool describes one callable capability an agent advertises.
type Tool struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Term is one glossary entry.
type Term struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Synonyms    []string `json:"synonyms,omitempty"`
}

// Guideline is one condition/action rule.
type Guideline struct {
	ID        string   `json:"id"`
	Condition string   `json:"condition"`
	Action    string   `json:"action"`
	ToolIDs   []string `json:"tool_ids,omitempty"`
}

// Journey is a predefined multi-step conversational flow. Logic holds the
// rich-text document produced by the journey editor; the debug side only
// flattens it to plain text.
type Journey struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	TriggerConditions []string        `json:"trigger_conditions,omitempty"`
	Logic             json.RawMessage `json:"logic,omitempty"`
}

// AgentCreate is the payload for creating an agent.
type AgentCreate struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Constraints string `json:"constraints,omitempty"`
}

// AgentUpdate is a partial update; nil fields are left unchanged.
type AgentUpdate struct {
	Name            *string         `json:"name,omitempty"`
	Description     *string         `json:"description,omitempty"`
	Constraints     *string         `json:"constraints,omitempty"`
	SystemPromptDoc json.RawMessage `json:"system_prompt_doc,omitempty"`
	Tools           *[]Tool         `json:"tools,omitempty"`
	Glossary        *[]Term         `json:"glossary,omitempty"`
	Guidelines      *[]Guideline    `json:"guidelines,omitempty"`
	Journeys        *[]Journey      `json:"journeys,omitempty"`
}
