package domain

import "context"

// TokenFunc receives incremental completion text.
type TokenFunc func(token string)

// Completer generates answer text from an assembled prompt.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
	Stream(ctx context.Context, prompt Prompt, onToken TokenFunc) (string, error)
}

// Prompt is the system instruction plus the user message sent to the completion provider.
type Prompt struct {
	System string
	User   string
}
