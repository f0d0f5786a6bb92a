// Package embeddings provides embedding generation for chunks and queries.
//
// The concrete provider talks to an Ollama server through langchaingo. A
// fixed model identifier makes embeddings deterministic for identical
// input, which the relevance scoring in the query pipeline relies on.
package embeddings

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnavailable indicates the embedding backend cannot be reached.
	// Callers may retry; the index is left unchanged.
	ErrUnavailable = errors.New("embedding backend unavailable")

	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")
)

// Provider generates vector embeddings from text.
type Provider interface {
	// EmbedDocuments generates embeddings for multiple texts, one vector
	// per input, all of the same dimension.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Config holds configuration for the Ollama embedding provider.
type Config struct {
	// ServerURL is the Ollama HTTP endpoint.
	ServerURL string

	// Model is the embedding model name.
	Model string
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server URL required")
	}
	if c.Model == "" {
		return fmt.Errorf("model required")
	}
	return nil
}
