// Package chunker splits extracted text into overlapping segments sized
// for embedding.
package chunker

import (
	"fmt"

	"github.com/heyjiacheng/Backend-Red-Panda/internal/extraction"
)

const (
	// DefaultChunkSize is the target chunk size in characters.
	DefaultChunkSize = 7500

	// DefaultChunkOverlap is the overlap between consecutive chunks.
	DefaultChunkOverlap = 100
)

// Chunk is an immutable text fragment traceable to its page of origin.
type Chunk struct {
	// Text is the chunk content.
	Text string

	// Page is the 1-based page the chunk starts on.
	Page int

	// Index is the position of the chunk within its document, starting
	// at zero and increasing across pages.
	Index int
}

// Chunker splits text into fixed-size chunks with fixed overlap.
//
// Boundaries are a pure function of text length and the configured size
// and overlap, so identical input always produces identical chunks:
// chunk i covers runes [i*(size-overlap), i*(size-overlap)+size). The
// concatenation of all chunks with the overlaps removed reconstructs the
// input exactly.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. Size must be positive and overlap must be
// smaller than size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be non-negative and smaller than size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split chunks every extraction unit in order, carrying each unit's page
// number onto the chunks derived from it. Whitespace-only units yield no
// chunks.
func (c *Chunker) Split(units []extraction.Unit) []Chunk {
	var chunks []Chunk
	index := 0
	for _, u := range units {
		for _, text := range c.splitText(u.Text) {
			chunks = append(chunks, Chunk{Text: text, Page: u.Page, Index: index})
			index++
		}
	}
	return chunks
}

// splitText splits a single text into overlapping windows over runes, so
// multi-byte characters are never cut mid-sequence.
func (c *Chunker) splitText(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.size {
		return []string{text}
	}

	step := c.size - c.overlap
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end >= len(runes) {
			out = append(out, string(runes[start:]))
			break
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
