// Package vectorstore provides knowledge-base-scoped vector storage.
//
// Storage is backed by chromem-go, an embeddable vector database with
// persistence to disk: additions are durable by the time Add returns, and
// no external database service is required. Every knowledge base owns
// exactly one collection, named deterministically from its id, so queries
// never cross knowledge-base boundaries.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/heyjiacheng/Backend-Red-Panda/internal/embeddings"
)

var tracer = otel.Tracer("redpanda.vectorstore")

var (
	// ErrEmptyRecords indicates an Add call with nothing to add.
	ErrEmptyRecords = errors.New("empty or nil records")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds configuration for the vector store.
type Config struct {
	// Path is the directory for persistent storage.
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool

	// CollectionPrefix prefixes knowledge-base collection names.
	CollectionPrefix string
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "./chroma"
	}
	if c.CollectionPrefix == "" {
		c.CollectionPrefix = "kb"
	}
}

// Record is one chunk to be stored: text, metadata, and a stable id.
type Record struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Result is a search hit ranked by vector similarity.
type Result struct {
	ID         string
	Content    string
	Similarity float32
	Metadata   map[string]string

	// Embedding is the stored vector for the chunk, used downstream for
	// relevance scoring without re-embedding.
	Embedding []float32
}

// Store holds per-knowledge-base collections of embedded chunks.
type Store struct {
	db       *chromem.DB
	provider embeddings.Provider
	config   Config
	logger   *zap.Logger
}

// New creates a Store persisting under cfg.Path.
func New(cfg Config, provider embeddings.Provider, logger *zap.Logger) (*Store, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: embedding provider is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()

	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", cfg.Path, err)
	}

	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	logger.Info("vector store initialized",
		zap.String("path", cfg.Path),
		zap.Bool("compress", cfg.Compress),
	)

	return &Store{db: db, provider: provider, config: cfg, logger: logger}, nil
}

// CollectionFor returns the collection name for a knowledge base. The
// mapping is deterministic so two knowledge bases never share vectors.
func (s *Store) CollectionFor(kbID int64) string {
	return fmt.Sprintf("%s_%d", s.config.CollectionPrefix, kbID)
}

// embeddingFunc adapts the provider for chromem's lazy query embedding.
func (s *Store) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.provider.EmbedQuery(ctx, text)
	}
}

// Add embeds the records and stores them in the knowledge base's
// collection. Embedding happens up front for the whole batch: if the
// backend is unreachable the call fails with embeddings.ErrUnavailable
// and the collection is left unchanged.
func (s *Store) Add(ctx context.Context, kbID int64, records []Record) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Store.Add")
	defer span.End()

	if len(records) == 0 {
		return nil, ErrEmptyRecords
	}

	name := s.CollectionFor(kbID)
	span.SetAttributes(
		attribute.String("collection", name),
		attribute.Int("record_count", len(records)),
	)

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Content
	}

	vectors, err := s.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("embedding %d chunks: %w", len(records), err)
	}

	collection, err := s.db.GetOrCreateCollection(name, nil, s.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", name, err)
	}

	docs := make([]chromem.Document, len(records))
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
		docs[i] = chromem.Document{
			ID:        rec.ID,
			Content:   rec.Content,
			Metadata:  rec.Metadata,
			Embedding: vectors[i],
		}
	}

	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("adding documents to %s: %w", name, err)
	}

	s.logger.Debug("added chunks to vector store",
		zap.String("collection", name),
		zap.Int("count", len(records)),
	)
	return ids, nil
}

// Search embeds the query and returns up to k nearest records from the
// knowledge base's collection, highest similarity first. A knowledge base
// with no collection yet, or an empty collection, yields empty results
// rather than an error.
func (s *Store) Search(ctx context.Context, kbID int64, query string, k int) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "Store.Search")
	defer span.End()

	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	name := s.CollectionFor(kbID)
	span.SetAttributes(attribute.String("collection", name), attribute.Int("k", k))

	collection := s.db.GetCollection(name, s.embeddingFunc())
	if collection == nil {
		return []Result{}, nil
	}

	count := collection.Count()
	if count == 0 {
		return []Result{}, nil
	}
	if k > count {
		k = count
	}

	queryVec, err := s.provider.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := collection.QueryEmbedding(ctx, queryVec, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("querying collection %s: %w", name, err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			ID:         h.ID,
			Content:    h.Content,
			Similarity: h.Similarity,
			Metadata:   h.Metadata,
			Embedding:  h.Embedding,
		}
	}

	span.SetAttributes(attribute.Int("results", len(results)))
	return results, nil
}

// Count returns the number of stored chunks for a knowledge base.
func (s *Store) Count(ctx context.Context, kbID int64) int {
	collection := s.db.GetCollection(s.CollectionFor(kbID), s.embeddingFunc())
	if collection == nil {
		return 0
	}
	return collection.Count()
}

// DeleteDocuments removes the chunks with the given ids from a knowledge
// base's collection. Missing collections and ids are ignored.
func (s *Store) DeleteDocuments(ctx context.Context, kbID int64, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	name := s.CollectionFor(kbID)
	collection := s.db.GetCollection(name, s.embeddingFunc())
	if collection == nil {
		return nil
	}
	if err := collection.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("deleting %d documents from %s: %w", len(ids), name, err)
	}
	return nil
}

// DeleteByMetadata removes every chunk whose metadata matches all the
// given key-value pairs, such as all chunks of one document. Missing
// collections are ignored.
func (s *Store) DeleteByMetadata(ctx context.Context, kbID int64, where map[string]string) error {
	if len(where) == 0 {
		return fmt.Errorf("where filter cannot be empty")
	}
	name := s.CollectionFor(kbID)
	collection := s.db.GetCollection(name, s.embeddingFunc())
	if collection == nil {
		return nil
	}
	if err := collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("deleting documents from %s: %w", name, err)
	}
	return nil
}

// DeleteCollection removes a knowledge base's entire collection. Deleting
// a knowledge base must drop its vectors too, or they would be orphaned
// on disk with no owner.
func (s *Store) DeleteCollection(ctx context.Context, kbID int64) error {
	name := s.CollectionFor(kbID)
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("deleting collection %s: %w", name, err)
	}
	s.logger.Info("deleted vector collection", zap.String("collection", name))
	return nil
}
