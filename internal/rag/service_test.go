package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heyjiacheng/Backend-Red-Panda/internal/metastore"
	"github.com/heyjiacheng/Backend-Red-Panda/internal/vectorstore"
)

type fakeKBChecker struct {
	existing map[int64]bool
	checked  []int64
}

func (f *fakeKBChecker) KnowledgeBaseExists(_ context.Context, id int64) bool {
	f.checked = append(f.checked, id)
	return f.existing[id]
}

// allQueriesSearcher returns the same results for every query.
type allQueriesSearcher struct {
	results []vectorstore.Result
}

func (f *allQueriesSearcher) Search(context.Context, int64, string, int) ([]vectorstore.Result, error) {
	return f.results, nil
}

func newTestService(kbs *fakeKBChecker, searcher Searcher, answerGen *fakeGenerator) *Service {
	return NewService(
		kbs,
		NewExpander(nil, 0, nil),
		NewRetriever(searcher, 8, nil),
		NewReranker(),
		NewAssembler(4),
		NewGenerator(answerGen),
		NewAttributor(nil, &fakeQueryEmbedder{vector: []float32{1, 0}}, 100, nil),
		nil,
	)
}

func TestServiceAnswersFromRetrievedContext(t *testing.T) {
	kbs := &fakeKBChecker{existing: map[int64]bool{2: true}}
	searcher := &allQueriesSearcher{results: []vectorstore.Result{
		{
			ID:        "c1",
			Content:   "Cats sleep around 15 hours a day.",
			Metadata:  map[string]string{"document": "cats.pdf", "page": "1"},
			Embedding: []float32{1, 0},
		},
	}}
	gen := &fakeGenerator{response: "<think>check the context</think>About 15 hours a day."}

	svc := newTestService(kbs, searcher, gen)
	answer, err := svc.Query(context.Background(), QueryRequest{Query: "how much do cats sleep", KnowledgeBaseID: 2})

	require.NoError(t, err)
	assert.Equal(t, "About 15 hours a day.", answer.Answer)
	assert.Equal(t, "how much do cats sleep", answer.Query)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "cats.pdf", answer.Sources[0].Document)
	require.NotNil(t, answer.Sources[0].Relevance)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Cats sleep around 15 hours a day.")
	assert.Contains(t, gen.prompts[0], "how much do cats sleep")
}

func TestServiceZeroKBSelectsDefault(t *testing.T) {
	kbs := &fakeKBChecker{existing: map[int64]bool{metastore.DefaultKnowledgeBaseID: true}}
	svc := newTestService(kbs, &allQueriesSearcher{}, &fakeGenerator{response: "unused"})

	_, err := svc.Query(context.Background(), QueryRequest{Query: "q"})

	require.NoError(t, err)
	require.Len(t, kbs.checked, 1)
	assert.Equal(t, int64(metastore.DefaultKnowledgeBaseID), kbs.checked[0])
}

func TestServiceUnknownKnowledgeBase(t *testing.T) {
	kbs := &fakeKBChecker{}
	gen := &fakeGenerator{response: "unused"}
	svc := newTestService(kbs, &allQueriesSearcher{}, gen)

	answer, err := svc.Query(context.Background(), QueryRequest{Query: "q", KnowledgeBaseID: 99})

	require.Error(t, err)
	assert.ErrorIs(t, err, metastore.ErrKnowledgeBaseNotFound)
	assert.Nil(t, answer)
	assert.Empty(t, gen.prompts)
}

func TestServiceEmptyRetrievalShortCircuits(t *testing.T) {
	kbs := &fakeKBChecker{existing: map[int64]bool{1: true}}
	gen := &fakeGenerator{response: "should not be used"}
	svc := newTestService(kbs, &allQueriesSearcher{}, gen)

	answer, err := svc.Query(context.Background(), QueryRequest{Query: "q", KnowledgeBaseID: 1})

	require.NoError(t, err)
	assert.Equal(t, NoInformationAnswer, answer.Answer)
	assert.Empty(t, answer.Sources)
	assert.NotNil(t, answer.Sources)
	assert.Empty(t, gen.prompts)
}

func TestServiceGenerationFailure(t *testing.T) {
	kbs := &fakeKBChecker{existing: map[int64]bool{1: true}}
	searcher := &allQueriesSearcher{results: []vectorstore.Result{{ID: "c1", Content: "text"}}}
	gen := &fakeGenerator{err: errors.New("model offline")}
	svc := newTestService(kbs, searcher, gen)

	answer, err := svc.Query(context.Background(), QueryRequest{Query: "q", KnowledgeBaseID: 1})

	require.Error(t, err)
	assert.Nil(t, answer)
}

func TestServiceRetrievalFailure(t *testing.T) {
	kbs := &fakeKBChecker{existing: map[int64]bool{1: true}}
	failing := &fakeSearcher{errs: map[string]error{"q": errors.New("embed backend down")}}
	svc := newTestService(kbs, failing, &fakeGenerator{response: "unused"})

	answer, err := svc.Query(context.Background(), QueryRequest{Query: "q", KnowledgeBaseID: 1})

	require.Error(t, err)
	assert.Nil(t, answer)
}

func TestServiceEmptyModelAnswerBecomesApology(t *testing.T) {
	kbs := &fakeKBChecker{existing: map[int64]bool{1: true}}
	searcher := &allQueriesSearcher{results: []vectorstore.Result{{ID: "c1", Content: "text"}}}
	gen := &fakeGenerator{response: "<think>nothing useful to say</think>"}
	svc := newTestService(kbs, searcher, gen)

	answer, err := svc.Query(context.Background(), QueryRequest{Query: "q", KnowledgeBaseID: 1})

	require.NoError(t, err)
	assert.Equal(t, EmptyAnswerApology, answer.Answer)
}
