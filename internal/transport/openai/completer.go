package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogqa/internal/domain"
	"github.com/kailas-cloud/catalogqa/internal/metrics"
)

// Completion defaults.
const (
	DefaultMaxTokens   = 300
	DefaultTemperature = 0.2
)

// CompleterConfig holds chat completion settings.
type CompleterConfig struct {
	Config
	MaxTokens   int
	Temperature float32
}

// Completer generates answers through an OpenAI-compatible chat completion API.
type Completer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	user        string
	provider    string
	logger      *zap.Logger
}

// NewCompleter creates an OpenAI-compatible completion provider.
func NewCompleter(cfg *CompleterConfig) *Completer {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	return &Completer{
		client:      newClient(&cfg.Config),
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: temperature,
		user:        cfg.User,
		provider:    cfg.Provider,
		logger:      loggerOrNop(cfg.Logger),
	}
}

func (c *Completer) request(prompt domain.Prompt, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: prompt.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt.User})

	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		User:        c.user,
		Stream:      stream,
	}
}

// Complete returns the full completion text in one call.
func (c *Completer) Complete(ctx context.Context, prompt domain.Prompt) (string, error) {
	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, c.request(prompt, false))
	if err != nil {
		c.observe("batch", "error", start)
		return "", parseAPIError("completion", err, domain.ErrCompletionFailed)
	}
	if len(resp.Choices) == 0 {
		c.observe("batch", "error", start)
		return "", fmt.Errorf("empty completion response: %w", domain.ErrCompletionFailed)
	}
	c.observe("batch", "success", start)

	domain.UsageFromContext(ctx).AddCompletionTokens(resp.Usage.TotalTokens)
	return resp.Choices[0].Message.Content, nil
}

// Stream forwards each content delta to onToken and returns the accumulated text.
// On a mid-stream failure the partial text is returned alongside the error.
func (c *Completer) Stream(ctx context.Context, prompt domain.Prompt, onToken domain.TokenFunc) (string, error) {
	start := time.Now()
	stream, err := c.client.CreateChatCompletionStream(ctx, c.request(prompt, true))
	if err != nil {
		c.observe("stream", "error", start)
		return "", parseAPIError("completion", err, domain.ErrCompletionFailed)
	}
	defer stream.Close()

	var b strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.observe("stream", "error", start)
			c.logger.Warn("Completion stream interrupted", zap.Int("received", b.Len()), zap.Error(err))
			return b.String(), parseAPIError("completion", err, domain.ErrCompletionFailed)
		}
		if resp.Usage != nil {
			domain.UsageFromContext(ctx).AddCompletionTokens(resp.Usage.TotalTokens)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		b.WriteString(delta)
		if onToken != nil {
			onToken(delta)
		}
	}
	c.observe("stream", "success", start)
	return b.String(), nil
}

func (c *Completer) observe(mode, status string, start time.Time) {
	metrics.CompletionRequestsTotal.WithLabelValues(c.provider, c.model, mode, status).Inc()
	if status == "success" {
		metrics.CompletionRequestDuration.WithLabelValues(c.provider, c.model, mode).Observe(time.Since(start).Seconds())
	}
}
