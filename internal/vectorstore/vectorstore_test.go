package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder produces deterministic vectors without a model backend.
// Texts sharing a leading byte land close together, which is enough to
// exercise nearest-neighbor ordering.
type hashEmbedder struct {
	fail bool
}

func (h *hashEmbedder) embed(text string) []float32 {
	v := make([]float32, 8)
	for i, r := range text {
		v[i%8] += float32(r)
	}
	// Normalize so cosine similarity behaves.
	var norm float32
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	inv := 1 / sqrt32(norm)
	for i := range v {
		v[i] *= inv
	}
	return v
}

func sqrt32(x float32) float32 {
	// Newton iterations are plenty for test vectors.
	z := x
	for i := 0; i < 20; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

func (h *hashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if h.fail {
		return nil, errors.New("backend down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *hashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if h.fail {
		return nil, errors.New("backend down")
	}
	return h.embed(text), nil
}

func newTestStore(t *testing.T) (*Store, *hashEmbedder) {
	t.Helper()
	emb := &hashEmbedder{}
	store, err := New(Config{Path: t.TempDir()}, emb, nil)
	require.NoError(t, err)
	return store, emb
}

func TestCollectionForIsDeterministic(t *testing.T) {
	store, _ := newTestStore(t)
	assert.Equal(t, "kb_1", store.CollectionFor(1))
	assert.Equal(t, "kb_42", store.CollectionFor(42))
	assert.NotEqual(t, store.CollectionFor(1), store.CollectionFor(2))
}

func TestAddAndSearchRoundtrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, 1, []Record{
		{ID: "c1", Content: "the invoice total is $100", Metadata: map[string]string{"page": "1"}},
		{ID: "c2", Content: "shipping address and terms", Metadata: map[string]string{"page": "2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, store.Count(ctx, 1))

	results, err := store.Search(ctx, 1, "the invoice total is $100", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].ID)
	assert.NotEmpty(t, results[0].Embedding)
	assert.Equal(t, "1", results[0].Metadata["page"])
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestKnowledgeBasesDoNotShareVectors(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, 1, []Record{{ID: "a", Content: "alpha content"}})
	require.NoError(t, err)

	results, err := store.Search(ctx, 2, "alpha content", 4)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, store.Count(ctx, 2))
}

func TestSearchEmptyKnowledgeBase(t *testing.T) {
	store, _ := newTestStore(t)

	results, err := store.Search(context.Background(), 99, "anything", 8)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAddEmbeddingFailureLeavesIndexUnchanged(t *testing.T) {
	store, emb := newTestStore(t)
	ctx := context.Background()

	emb.fail = true
	_, err := store.Add(ctx, 1, []Record{{ID: "x", Content: "some text"}})
	require.Error(t, err)

	emb.fail = false
	assert.Equal(t, 0, store.Count(ctx, 1))
}

func TestAddEmptyRecords(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Add(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrEmptyRecords)
}

func TestDeleteByMetadata(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, 1, []Record{
		{ID: "a", Content: "first", Metadata: map[string]string{"document": "doc1.pdf"}},
		{ID: "b", Content: "second", Metadata: map[string]string{"document": "doc1.pdf"}},
		{ID: "c", Content: "third", Metadata: map[string]string{"document": "doc2.pdf"}},
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteByMetadata(ctx, 1, map[string]string{"document": "doc1.pdf"}))
	assert.Equal(t, 1, store.Count(ctx, 1))

	// Unknown collection is a no-op.
	require.NoError(t, store.DeleteByMetadata(ctx, 7, map[string]string{"document": "doc1.pdf"}))
}

func TestDeleteDocumentsAndCollection(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Add(ctx, 1, []Record{
		{ID: "a", Content: "first chunk"},
		{ID: "b", Content: "second chunk"},
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteDocuments(ctx, 1, []string{"a"}))
	assert.Equal(t, 1, store.Count(ctx, 1))

	require.NoError(t, store.DeleteCollection(ctx, 1))
	assert.Equal(t, 0, store.Count(ctx, 1))
}
