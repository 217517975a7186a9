// Package answer holds the resolved answer type and the sentence finalizer
// applied to every generated text before it is returned or cached.
package answer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minKeptFraction is how far into the text the trailing fragment must start
// before it is discarded instead of closed with a period.
const minKeptFraction = 0.6

// Source is a retrieved passage cited by an answer.
type Source struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// Answer is the outcome of one query resolution. It is never mutated after creation.
type Answer struct {
	Text         string   `json:"text"`
	Sources      []Source `json:"sources"`
	Confidence   float64  `json:"confidence"`
	NoResults    bool     `json:"no_results,omitempty"`
	FallbackUsed bool     `json:"fallback_used,omitempty"`
	Extractive   bool     `json:"extractive,omitempty"`
	Cached       bool     `json:"cached,omitempty"`
}

// EnsureCompleteSentence closes text on a sentence boundary. Text already ending
// in '.', '!' or '?' is returned trimmed. Otherwise a trailing partial sentence is
// dropped when it starts past 60% of the text; failing that a single '.' is appended.
func EnsureCompleteSentence(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text
	}

	last, _ := utf8.DecodeLastRuneInString(trimmed)
	if isTerminator(last) {
		return trimmed
	}

	idx := strings.LastIndexAny(trimmed, ".!?")
	if idx >= 0 {
		fragment := strings.TrimLeftFunc(trimmed[idx+1:], unicode.IsSpace)
		fragmentStart := utf8.RuneCountInString(trimmed) - utf8.RuneCountInString(fragment)
		if float64(fragmentStart) > minKeptFraction*float64(utf8.RuneCountInString(trimmed)) {
			return trimmed[:idx+1]
		}
	}

	return trimmed + "."
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
