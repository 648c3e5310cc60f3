// Package llm calls an OpenAI compatible chat completion endpoint on behalf
// of the assistant.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ashureev/pickleai/internal/domain"
)

var (
	// ErrTimeout is returned when the model does not answer in time.
	ErrTimeout = errors.New("language model timed out")
	// ErrEmptyResponse is returned when the model answers with no content.
	ErrEmptyResponse = errors.New("language model returned no content")
)

// Request outcome labels passed to the Observer.
const (
	StatusOK      = "ok"
	StatusTimeout = "timeout"
	StatusError   = "error"
	StatusEmpty   = "empty"
)

// Observer receives the duration of every completion request.
type Observer interface {
	ObserveLLMRequest(status string, d time.Duration)
}

// Config configures the client.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxRetries   int
	HistoryLimit int
}

// Client sends the system prompt and recent history to the model.
type Client struct {
	client       *openai.Client
	model        string
	timeout      time.Duration
	historyLimit int
	observer     Observer
}

// Option configures a Client.
type Option func(*Client)

// WithObserver reports request durations to o.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a client. An empty APIKey sends unauthenticated requests,
// which is what local OpenAI compatible servers expect.
func New(cfg Config, opts ...Option) *Client {
	options := []option.RequestOption{option.WithMaxRetries(cfg.MaxRetries)}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		options = append(options, option.WithBaseURL(base))
	}
	if cfg.APIKey == "" {
		slog.Info("OPENAI_API_KEY is not set, will try unauthenticated access")
	} else {
		options = append(options, option.WithAPIKey(cfg.APIKey))
	}

	client := openai.NewClient(options...)
	c := &Client{
		client:       &client,
		model:        cfg.Model,
		timeout:      cfg.Timeout,
		historyLimit: cfg.HistoryLimit,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Complete returns the model's reply to the conversation so far.
func (c *Client) Complete(ctx context.Context, systemPrompt string, history []domain.ChatMessage, uc domain.UserContext) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msgs := c.messages(systemPrompt, history)
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    c.model,
	})
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.observe(StatusTimeout, elapsed)
			return "", fmt.Errorf("%w after %s", ErrTimeout, elapsed.Round(time.Millisecond))
		}
		c.observe(StatusError, elapsed)
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("language model request failed with status %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("language model request failed: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		c.observe(StatusEmpty, elapsed)
		return "", ErrEmptyResponse
	}

	c.observe(StatusOK, elapsed)
	slog.Debug("Language model replied",
		"model", c.model,
		"messages", len(msgs),
		"known_fields", len(uc.Known()),
		"duration_ms", elapsed.Milliseconds())
	return resp.Choices[0].Message.Content, nil
}

// messages builds the request payload from the newest historyLimit entries.
func (c *Client) messages(systemPrompt string, history []domain.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	if c.historyLimit > 0 && len(history) > c.historyLimit {
		history = history[len(history)-c.historyLimit:]
	}
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	out = append(out, openai.SystemMessage(systemPrompt))
	for _, m := range history {
		switch m.Role {
		case domain.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case domain.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		}
	}
	return out
}

func (c *Client) observe(status string, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveLLMRequest(status, d)
	}
}
