package rag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/heyjiacheng/Backend-Red-Panda/internal/vectorstore"
)

// Searcher is the slice of the vector store the retriever reads from.
type Searcher interface {
	Search(ctx context.Context, kbID int64, query string, k int) ([]vectorstore.Result, error)
}

// Retriever runs every expanded query against the knowledge base's
// collection and merges the results.
type Retriever struct {
	store  Searcher
	k      int
	logger *zap.Logger
}

// NewRetriever creates a Retriever fetching k candidates per query.
func NewRetriever(store Searcher, k int, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{store: store, k: k, logger: logger}
}

// Retrieve searches each query in order and unions the hits,
// deduplicating by chunk id with first-seen order preserved. An empty
// union is a normal outcome, not an error.
//
// Per-query failures are tolerated as long as at least one query
// succeeds; when every query fails the last error is returned, which is
// how an unreachable embedding backend surfaces.
func (r *Retriever) Retrieve(ctx context.Context, kbID int64, queries []string) ([]Candidate, error) {
	seen := make(map[string]bool)
	var merged []Candidate
	var lastErr error
	succeeded := 0

	for _, q := range queries {
		results, err := r.store.Search(ctx, kbID, q, r.k)
		if err != nil {
			r.logger.Warn("retrieval query failed",
				zap.Int64("kb_id", kbID),
				zap.String("query", q),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		succeeded++

		for _, res := range results {
			if seen[res.ID] {
				continue
			}
			seen[res.ID] = true
			merged = append(merged, Candidate{
				ID:         res.ID,
				Content:    res.Content,
				Similarity: res.Similarity,
				Metadata:   res.Metadata,
				Embedding:  res.Embedding,
			})
		}
	}

	if succeeded == 0 && lastErr != nil {
		return nil, fmt.Errorf("all %d retrieval queries failed: %w", len(queries), lastErr)
	}

	r.logger.Debug("retrieved candidates",
		zap.Int64("kb_id", kbID),
		zap.Int("queries", len(queries)),
		zap.Int("candidates", len(merged)),
	)
	return merged, nil
}
