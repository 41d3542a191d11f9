package llm

import (
	"strings"

	"github.com/agenthub/agenthub/internal/models"
)

const promptInstruction = `You are a precise assistant. Answer ONLY using the Context below.
If the answer isn't in the Context, say "I don't have enough information."`

// BuildPrompt assembles a grounded prompt from a question and retrieved
// context, one bullet per hit in retrieval order. It is a pure function:
// the same inputs always produce the same string.
func BuildPrompt(question string, contexts []models.SearchResult) string {
	lines := make([]string, len(contexts))
	for i, c := range contexts {
		lines[i] = "- " + c.Text
	}

	var b strings.Builder
	b.WriteString(promptInstruction)
	b.WriteString("\n\nContext:\n")
	b.WriteString(strings.Join(lines, "\n\n"))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}
