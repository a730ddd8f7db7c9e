package context

import (
	"fmt"
	"strings"

	"github.com/user/agentdeck/internal/types"
)

// guardrails are the ground rules attached to every debug-chat system
// prompt, numbered in order.
var guardrails = []string{
	"Reason strictly from the data in the debugging context; never invent missing information.",
	"Answers must include explicit reasoning and concrete suggested steps.",
	"If the context is insufficient to answer, ask the user to supply more rather than fabricating.",
}

// BuildSystemPrompt assembles the system prompt for one debug request: the
// instruction header, the assembled agent context, and the guardrail rules.
func BuildSystemPrompt(agentID types.AgentID, debugContext string) string {
	var b strings.Builder

	b.WriteString("You are the agent debugging assistant of an agent authoring platform. ")
	b.WriteString("You help the user troubleshoot an agent configuration based on the provided context. ")
	fmt.Fprintf(&b, "Agent ID: %s", agentID)

	b.WriteString("\n\nDebugging context:\n")
	b.WriteString(debugContext)

	b.WriteString("\n\nGround rules:\n")
	for i, rule := range guardrails {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rule)
	}

	return strings.TrimRight(b.String(), "\n")
}
