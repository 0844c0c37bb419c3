package agents

import (
	"fmt"
	"strings"

	"github.com/adalundhe/sibyl/core/providers"
)

const answerSystemPrompt = `You are a careful assistant that answers questions using the provided context.
Ground every claim in the supplied sources. If the sources do not cover the
question, say so instead of guessing.`

const structuredSystemPrompt = `You are a careful assistant that answers in strict JSON.
Respond with a single JSON object of the form
{"answer": "<the answer>", "key_points": ["<point>", ...]}
and nothing else. No prose outside the JSON object.`

// buildMessages assembles the conversation for a provider call: prior turns,
// then the context-annotated question.
func buildMessages(req *Request, citations []Citation) []providers.Message {
	messages := make([]providers.Message, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	messages = append(messages, providers.Message{
		Role:    providers.RoleUser,
		Content: renderQuestion(req.Question, citations),
	})
	return messages
}

func renderQuestion(question string, citations []Citation) string {
	if len(citations) == 0 {
		return question
	}

	var b strings.Builder
	b.WriteString("Context:\n")
	for i, c := range citations {
		switch c.Origin {
		case OriginWeb:
			fmt.Fprintf(&b, "[%d] (web: %s) %s\n", i+1, c.URL, c.Snippet)
		default:
			fmt.Fprintf(&b, "[%d] (document chunk %s) %s\n", i+1, c.ChunkID, c.Snippet)
		}
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
