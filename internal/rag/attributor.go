package rag

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrNoEmbedder reports that relevance scoring was requested without an
// embedding backend configured.
var ErrNoEmbedder = errors.New("rag: no query embedder configured")

// previewLength is the default number of runes exposed in a source
// preview.
const previewLength = 100

// DocumentResolver maps a stored filename back to the name the user
// uploaded the document under.
type DocumentResolver interface {
	LookupOriginalFilename(ctx context.Context, storedFilename string) (string, bool)
}

// QueryEmbedder produces the question vector for relevance scoring.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Attributor turns the retained candidates into source attributions:
// display names, previews, and a relevance score derived from embedding
// similarity.
type Attributor struct {
	resolver DocumentResolver
	embedder QueryEmbedder
	preview  int
	logger   *zap.Logger
}

// NewAttributor creates an Attributor with the given preview length in
// runes; zero or negative selects the default.
func NewAttributor(resolver DocumentResolver, embedder QueryEmbedder, preview int, logger *zap.Logger) *Attributor {
	if preview <= 0 {
		preview = previewLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Attributor{resolver: resolver, embedder: embedder, preview: preview, logger: logger}
}

// Attribute builds one Source per candidate, in candidate order. When
// the question can be embedded, each source with a stored vector gets a
// relevance score in [0, 100] and the list is re-sorted by descending
// score; when embedding fails, the sources come back unscored rather
// than failing the query.
func (a *Attributor) Attribute(ctx context.Context, question string, candidates []Candidate) []Source {
	sources := make([]Source, 0, len(candidates))
	for _, c := range candidates {
		sources = append(sources, Source{
			Document: a.displayName(ctx, c.Metadata),
			Content:  c.Content,
			Preview:  truncateRunes(c.Content, a.preview),
			Metadata: scalarMetadata(c.Metadata),
		})
	}

	queryVec, err := a.embedQuestion(ctx, question)
	if err != nil {
		a.logger.Warn("relevance scoring unavailable, returning unscored sources", zap.Error(err))
		return sources
	}

	scored := false
	for i, c := range candidates {
		if len(c.Embedding) == 0 {
			continue
		}
		score := relevanceScore(queryVec, c.Embedding)
		sources[i].Relevance = &score
		scored = true
	}

	if scored {
		sort.SliceStable(sources, func(i, j int) bool {
			si, sj := sources[i].Relevance, sources[j].Relevance
			switch {
			case si == nil:
				return false
			case sj == nil:
				return true
			default:
				return *si > *sj
			}
		})
	}
	return sources
}

func (a *Attributor) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	if a.embedder == nil {
		return nil, ErrNoEmbedder
	}
	return a.embedder.EmbedQuery(ctx, question)
}

// displayName prefers the uploaded filename over the stored one; a
// chunk with no document metadata shows as unknown.
func (a *Attributor) displayName(ctx context.Context, metadata map[string]string) string {
	stored := metadata["document"]
	if stored == "" {
		return "unknown"
	}
	if a.resolver != nil {
		if original, ok := a.resolver.LookupOriginalFilename(ctx, stored); ok {
			return original
		}
	}
	return stored
}

// relevanceScore maps cosine similarity from [-1, 1] onto [0, 100].
// Identical vectors score 100, orthogonal 50, opposite 0. Float error
// can push the raw value slightly out of range, hence the clamp.
func relevanceScore(a, b []float32) float64 {
	cos := cosineSimilarity(a, b)
	score := (cos + 1) * 50
	return math.Min(100, math.Max(0, score))
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// scalarMetadata copies metadata without vector-valued fields, which are
// internal and too large for a response payload.
func scalarMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if strings.EqualFold(k, "embedding") || strings.EqualFold(k, "vector") {
			continue
		}
		out[k] = v
	}
	return out
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
