package context

import (
	"encoding/json"
	"strings"
)

// FlattenDoc extracts plain text from a rich-text editor document (the JSON
// node tree stored for system prompts and journey logic). Unknown node types
// fall back to concatenating their children.
func FlattenDoc(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var node any
	if err := json.Unmarshal(raw, &node); err != nil {
		// Not a document; treat the raw bytes as literal text.
		return strings.TrimSpace(string(raw))
	}
	return strings.TrimSpace(flattenNode(node))
}

func flattenNode(node any) string {
	switch n := node.(type) {
	case nil:
		return ""
	case string:
		return n
	case []any:
		var parts []string
		for _, child := range n {
			if text := flattenNode(child); text != "" {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		return flattenObject(n)
	default:
		return ""
	}
}

func flattenObject(record map[string]any) string {
	nodeType, _ := record["type"].(string)

	if nodeType == "hardBreak" {
		return "\n"
	}
	if text, ok := record["text"].(string); ok {
		return text
	}

	content, ok := record["content"].([]any)
	if !ok {
		return ""
	}

	var children []string
	for _, child := range content {
		if text := flattenNode(child); text != "" {
			children = append(children, text)
		}
	}

	switch nodeType {
	case "bulletList", "orderedList", "table":
		return strings.Join(children, "\n")
	case "tableRow":
		return strings.Join(children, "\t")
	case "tableCell", "tableHeader":
		return strings.Join(children, " ")
	case "paragraph", "heading":
		joined := strings.Join(children, "")
		if joined == "" {
			return ""
		}
		return joined + "\n"
	default:
		return strings.Join(children, "")
	}
}
