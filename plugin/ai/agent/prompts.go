package agent

import (
	"fmt"
	"strings"

	"github.com/hrygo/docinsight/plugin/ai"
)

// RefusalPhrase is the fixed answer when the documents do not cover a question.
const RefusalPhrase = "I don't know based on the provided documents."

// ContextualizeSystemPrompt instructs the model to rewrite, never answer.
const ContextualizeSystemPrompt = "You are a question reformulation assistant.\n" +
	"Your job is to take the user's latest question and, if necessary, rewrite it to be a standalone question " +
	"that is fully understandable without the chat history. Never answer the question. " +
	"If it's already standalone, return it unchanged."

const qaSystemPromptTemplate = "You are a helpful assistant that answers questions strictly based on the provided context. " +
	"Refer only to the documents. If the answer is not present, say: '%s'\n\n" +
	"Task:\n%s\n\n" +
	"Context:\n%s"

// QASystemPrompt renders the grounded answering prompt.
func QASystemPrompt(task, context string) string {
	return fmt.Sprintf(qaSystemPromptTemplate, RefusalPhrase, task, context)
}

// FormatHistory renders history as "role: text" lines for plain prompts.
func FormatHistory(history []ai.Message) string {
	lines := make([]string, len(history))
	for i, m := range history {
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		lines[i] = role + ": " + m.Content
	}
	return strings.Join(lines, "\n")
}

// PlainContextualizePrompt is the single-string form of the rewrite request.
func PlainContextualizePrompt(history []ai.Message, message string) string {
	return fmt.Sprintf("%s\n\nChat History:\n%s\nHuman: %s\nStandalone Question:",
		ContextualizeSystemPrompt, FormatHistory(history), message)
}

// PlainQAPrompt is the single-string form of the answering request.
func PlainQAPrompt(task, context string, history []ai.Message, message string) string {
	return fmt.Sprintf("%s\n\nChat History:\n%s\nHuman: %s\nAssistant:",
		QASystemPrompt(task, context), FormatHistory(history), message)
}

// refusalMarkers match the refusal however the model punctuates it.
var refusalMarkers = []string{
	"i don't know based on the provided documents",
	"i don’t know based on the provided documents",
	"i do not know based on the provided documents",
}

// normalizeAnswer maps any answer containing the refusal to exactly RefusalPhrase.
func normalizeAnswer(answer string) string {
	lower := strings.ToLower(answer)
	for _, marker := range refusalMarkers {
		if strings.Contains(lower, marker) {
			return RefusalPhrase
		}
	}
	return answer
}

// cleanQuestion drops a label the model may echo from the plain prompt.
func cleanQuestion(q string) string {
	q = strings.TrimSpace(q)
	for _, label := range []string{"Standalone Question:", "Standalone question:"} {
		q = strings.TrimSpace(strings.TrimPrefix(q, label))
	}
	return q
}
