package utils

import (
	"strings"

	"google.golang.org/genai"
)

// ExtractContentText concatenates the text parts of content.
func ExtractContentText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// NormalizePromptText substitutes the {{npc}} and {{player}} placeholders used in persona
// text and unescapes newlines and quotes that come from seed data.
func NormalizePromptText(text string, npcName, playerName string) string {
	text = strings.ReplaceAll(text, "{{npc}}", npcName)
	text = strings.ReplaceAll(text, "{{player}}", playerName)
	text = strings.ReplaceAll(text, "\\r\\n", "\n")
	text = strings.ReplaceAll(text, "\\n", "\n")
	text = strings.ReplaceAll(text, "\\\"", "\"")
	return text
}
