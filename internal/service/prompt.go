package service

import (
	"strings"

	"docqa/internal/domain"
)

const systemPrompt = "You are a helpful assistant answering questions about a document. " +
	"Answer only from the document content provided with each question. " +
	"If that content does not contain the answer, say that the document does not cover it."

const contextSeparator = "\n\n"

// BuildMessages assembles the chat request for one question: the system
// instruction, the last historyTurns turns, then the question with the
// retrieved chunks in rank order.
func BuildMessages(question string, results []domain.SearchResult, history []domain.Turn, historyTurns int) []domain.Message {
	if historyTurns < 0 {
		historyTurns = 0
	}
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}

	messages := make([]domain.Message, 0, 2+2*len(history))
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: systemPrompt})
	for _, turn := range history {
		messages = append(messages,
			domain.Message{Role: domain.RoleUser, Content: turn.Question},
			domain.Message{Role: domain.RoleAssistant, Content: turn.Answer},
		)
	}
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: userPrompt(question, results)})
	return messages
}

func userPrompt(question string, results []domain.SearchResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}
	var b strings.Builder
	b.WriteString("Use the following document content to answer the user's question.\n\n")
	b.WriteString("Content: ")
	b.WriteString(strings.Join(texts, contextSeparator))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}
