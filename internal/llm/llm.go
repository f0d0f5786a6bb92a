// Package llm provides text generation through a chat model backend.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// ErrGenerationFailed indicates the model backend could not produce a
// response. Callers may retry; no retries happen here.
var ErrGenerationFailed = errors.New("text generation failed")

// Generator produces text from a prompt in a single synchronous call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds configuration for the Ollama chat client.
type Config struct {
	// ServerURL is the Ollama HTTP endpoint.
	ServerURL string

	// Model is the chat model name.
	Model string
}

// Client generates text through an Ollama chat model.
type Client struct {
	llm    *ollama.LLM
	config Config
}

// NewClient creates an Ollama-backed generator.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server URL required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model required")
	}

	llmClient, err := ollama.New(
		ollama.WithServerURL(cfg.ServerURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}

	return &Client{llm: llmClient, config: cfg}, nil
}

// Generate invokes the model once with the given prompt. No streaming, no
// retries.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return out, nil
}

var _ Generator = (*Client)(nil)
