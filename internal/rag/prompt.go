package rag

import (
	"strings"
	"time"

	"docchat/internal/llm"
)

const defaultSystemInstruction = "You are a helpful assistant that answers questions about a document the user has uploaded. " +
	"Answer using the provided context when it is relevant. If the context does not contain enough " +
	"information to answer the question, say so instead of guessing."

const (
	contextHeader = "--- Context from the document ---"
	contextFooter = "--- End Context ---"
)

// timeKeywords trigger timestamp injection. Case-insensitive substring match
// against the user message; deliberately a dumb heuristic, not a classifier.
var timeKeywords = []string{"time", "when", "date", "today", "now"}

// PromptBuilder assembles the message sequence sent to the LLM: one system
// message, the full prior history in original order, then the user message.
// History is never truncated here.
type PromptBuilder struct {
	systemInstruction string
	clock             func() time.Time
}

// NewPromptBuilder creates a prompt builder. An empty instruction selects the
// default document-grounded instruction.
func NewPromptBuilder(systemInstruction string) *PromptBuilder {
	if systemInstruction == "" {
		systemInstruction = defaultSystemInstruction
	}
	return &PromptBuilder{
		systemInstruction: systemInstruction,
		clock:             time.Now,
	}
}

// BuildMessages produces the ordered message sequence for one chat turn.
//
// With no passages the system instruction is used verbatim, so the model is
// never told there is grounding when there is none. With passages, a
// delimited context section is appended in retrieval order together with an
// instruction to prefer it over general knowledge. A current-timestamp line
// is prepended when the user message looks time-related.
func (b *PromptBuilder) BuildMessages(passages []Passage, history []llm.Message, userMessage string) []llm.Message {
	system := b.systemInstruction

	if len(passages) > 0 {
		var builder strings.Builder
		builder.WriteString(system)
		builder.WriteString("\n\n")
		builder.WriteString(contextHeader)
		builder.WriteString("\n\n")
		for i, passage := range passages {
			if i > 0 {
				builder.WriteString("\n\n")
			}
			builder.WriteString(passage.Text)
		}
		builder.WriteString("\n\n")
		builder.WriteString(contextFooter)
		builder.WriteString("\n\nPrioritize the information in the context above over general knowledge when answering.")
		system = builder.String()
	}

	if hasTimeIntent(userMessage) {
		system = "Current date and time: " + b.clock().Format("Monday, January 2, 2006 at 3:04 PM") + "\n\n" + system
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})
	return messages
}

// hasTimeIntent reports whether the user message contains a time-related
// keyword.
func hasTimeIntent(userMessage string) bool {
	lower := strings.ToLower(userMessage)
	for _, keyword := range timeKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
