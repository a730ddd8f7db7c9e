package context

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/user/agentdeck/internal/types"
)

// BuildAgentContext flattens an agent configuration into the plain-text
// debugging context sent alongside the conversation: identity, constraints,
// system prompt, tools, glossary, guidelines, and journeys.
func BuildAgentContext(agent *types.Agent) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Agent ID: %s", agent.ID))
	parts = append(parts, fmt.Sprintf("Name: %s", agent.Name))

	if agent.Description != "" {
		parts = append(parts, fmt.Sprintf("Role description: %s", agent.Description))
	}
	if agent.Constraints != "" {
		parts = append(parts, fmt.Sprintf("Constraints: %s", agent.Constraints))
	}
	if len(agent.SystemPromptDoc) > 0 {
		if text := FlattenDoc(agent.SystemPromptDoc); text != "" {
			parts = append(parts, "System prompt:\n"+text)
		}
	}

	if len(agent.Tools) > 0 {
		var lines []string
		for _, tool := range agent.Tools {
			desc := tool.Description
			if desc == "" {
				desc = "no description"
			}
			params := "none"
			if len(tool.Parameters) > 0 {
				if pretty, err := json.MarshalIndent(json.RawMessage(tool.Parameters), "  ", "  "); err == nil {
					params = string(pretty)
				}
			}
			lines = append(lines, fmt.Sprintf("- %s: %s\n  Parameters: %s", tool.Name, desc, params))
		}
		parts = append(parts, "Tools:\n"+strings.Join(lines, "\n"))
	}

	if len(agent.Glossary) > 0 {
		var lines []string
		for _, term := range agent.Glossary {
			synonyms := strings.Join(term.Synonyms, ", ")
			if synonyms == "" {
				synonyms = "none"
			}
			lines = append(lines, fmt.Sprintf("- %s: %s (synonyms: %s)", term.Name, term.Description, synonyms))
		}
		parts = append(parts, "Glossary:\n"+strings.Join(lines, "\n"))
	}

	if len(agent.Guidelines) > 0 {
		var lines []string
		for _, g := range agent.Guidelines {
			tools := strings.Join(g.ToolIDs, ", ")
			if tools == "" {
				tools = "none"
			}
			lines = append(lines, fmt.Sprintf("- Condition: %s\n  Action: %s\n  Suggested tools: %s", g.Condition, g.Action, tools))
		}
		parts = append(parts, "Guidelines:\n"+strings.Join(lines, "\n"))
	}

	if len(agent.Journeys) > 0 {
		var blocks []string
		for i, journey := range agent.Journeys {
			title := journey.Title
			if title == "" {
				title = "untitled journey"
			}
			lines := []string{fmt.Sprintf("%d. %s", i+1, title)}
			if journey.Description != "" {
				lines = append(lines, "   Description: "+journey.Description)
			}
			if len(journey.TriggerConditions) > 0 {
				lines = append(lines, "   Triggers: "+strings.Join(journey.TriggerConditions, ", "))
			}
			if logic := FlattenDoc(journey.Logic); logic != "" {
				lines = append(lines, "   Logic: "+logic)
			}
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
		parts = append(parts, "Journeys:\n"+strings.Join(blocks, "\n"))
	}

	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
