package metastore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	return store
}

func TestOpenCreatesDefaultKnowledgeBase(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	kb, err := store.GetKnowledgeBase(ctx, DefaultKnowledgeBaseID)
	require.NoError(t, err)
	assert.Equal(t, DefaultKnowledgeBaseID, kb.ID)
	assert.NotEmpty(t, kb.Name)
	assert.True(t, store.KnowledgeBaseExists(ctx, DefaultKnowledgeBaseID))
}

func TestKnowledgeBaseLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	kb, err := store.CreateKnowledgeBase(ctx, "contracts", "legal documents")
	require.NoError(t, err)
	assert.NotZero(t, kb.ID)

	kbs, err := store.ListKnowledgeBases(ctx)
	require.NoError(t, err)
	assert.Len(t, kbs, 2) // default + created

	require.NoError(t, store.DeleteKnowledgeBase(ctx, kb.ID))
	assert.False(t, store.KnowledgeBaseExists(ctx, kb.ID))

	err = store.DeleteKnowledgeBase(ctx, kb.ID)
	assert.ErrorIs(t, err, ErrKnowledgeBaseNotFound)
}

func TestGetKnowledgeBaseNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetKnowledgeBase(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrKnowledgeBaseNotFound)
}

func TestDocumentLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.SaveDocument(ctx, &Document{
		OriginalFilename: "report.pdf",
		StoredFilename:   "1700000000_report.pdf",
		FilePath:         "/data/docs/1700000000_report.pdf",
		FileSize:         2048,
		KnowledgeBaseID:  DefaultKnowledgeBaseID,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	doc, err := store.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", doc.OriginalFilename)
	assert.False(t, doc.ExtractionFailed)

	docs, err := store.ListDocuments(ctx, DefaultKnowledgeBaseID)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	docs, err = store.ListDocuments(ctx, 555)
	require.NoError(t, err)
	assert.Empty(t, docs)

	require.NoError(t, store.DeleteDocument(ctx, id))
	_, err = store.GetDocument(ctx, id)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestExtractionFailedFlagPersists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.SaveDocument(ctx, &Document{
		OriginalFilename: "scan.pdf",
		StoredFilename:   "1700000001_scan.pdf",
		FilePath:         "/data/docs/1700000001_scan.pdf",
		KnowledgeBaseID:  DefaultKnowledgeBaseID,
		ExtractionFailed: true,
	})
	require.NoError(t, err)

	doc, err := store.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.True(t, doc.ExtractionFailed)
}

func TestLookupOriginalFilename(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.SaveDocument(ctx, &Document{
		OriginalFilename: "invoice.pdf",
		StoredFilename:   "1700000002_invoice.pdf",
		FilePath:         "/data/docs/1700000002_invoice.pdf",
		KnowledgeBaseID:  DefaultKnowledgeBaseID,
	})
	require.NoError(t, err)

	name, ok := store.LookupOriginalFilename(ctx, "1700000002_invoice.pdf")
	assert.True(t, ok)
	assert.Equal(t, "invoice.pdf", name)

	_, ok = store.LookupOriginalFilename(ctx, "missing.pdf")
	assert.False(t, ok)
}
