package resolve

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/catalogqa/internal/domain"
	"github.com/kailas-cloud/catalogqa/internal/domain/search/result"
)

// DefaultPassageBudget caps each passage in the prompt, in characters.
const DefaultPassageBudget = 1200

const (
	defaultSystemPrompt = "You are a product specialist for the catalog below. " +
		"Answer only from the provided passages. If they do not contain the answer, say so. " +
		"Keep answers short and finish every sentence."
	defaultConversationPrompt = "You are a friendly product assistant. " +
		"Reply briefly and offer to help with questions about the product catalog."
)

// buildPrompt concatenates source-labelled passages, each cut to budget
// characters, followed by the user question.
func buildPrompt(system, query string, results []result.Result, budget int) domain.Prompt {
	var b strings.Builder
	b.WriteString("Passages:\n")
	for i := range results {
		r := &results[i]
		fmt.Fprintf(&b, "\n[%d] Source: %s\n%s\n", i+1, r.Source(), truncate(r.Text(), budget))
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(strings.TrimSpace(query))
	return domain.Prompt{System: system, User: b.String()}
}

func conversationPrompt(system, query string) domain.Prompt {
	return domain.Prompt{System: system, User: strings.TrimSpace(query)}
}

// truncate cuts s to at most budget runes, preferring the last word boundary.
func truncate(s string, budget int) string {
	s = strings.TrimSpace(s)
	if budget <= 0 || utf8.RuneCountInString(s) <= budget {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:budget])
	if i := strings.LastIndexAny(cut, " \n\t"); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "..."
}
