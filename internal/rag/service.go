package rag

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/heyjiacheng/Backend-Red-Panda/internal/metastore"
)

var tracer = otel.Tracer("redpanda.rag")

// KnowledgeBaseChecker validates that a query targets a real knowledge
// base before any model call is made.
type KnowledgeBaseChecker interface {
	KnowledgeBaseExists(ctx context.Context, id int64) bool
}

// Service runs the full query pipeline.
type Service struct {
	kbs        KnowledgeBaseChecker
	expander   *Expander
	retriever  *Retriever
	reranker   *Reranker
	assembler  *Assembler
	generator  *Generator
	attributor *Attributor
	logger     *zap.Logger
}

// NewService wires the pipeline stages together.
func NewService(
	kbs KnowledgeBaseChecker,
	expander *Expander,
	retriever *Retriever,
	reranker *Reranker,
	assembler *Assembler,
	generator *Generator,
	attributor *Attributor,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		kbs:        kbs,
		expander:   expander,
		retriever:  retriever,
		reranker:   reranker,
		assembler:  assembler,
		generator:  generator,
		attributor: attributor,
		logger:     logger,
	}
}

// Query answers a question from one knowledge base.
//
// The knowledge-base id is resolved first (zero selects the default) and
// an unknown id fails fast with metastore.ErrKnowledgeBaseNotFound. An
// empty retrieval short-circuits to a fixed no-information answer with
// no sources; only a model failure during answer generation is an error.
func (s *Service) Query(ctx context.Context, req QueryRequest) (*Answer, error) {
	ctx, span := tracer.Start(ctx, "rag.Query", trace.WithAttributes(
		attribute.Int64("kb.id", req.KnowledgeBaseID),
	))
	defer span.End()

	kbID := req.KnowledgeBaseID
	if kbID == 0 {
		kbID = metastore.DefaultKnowledgeBaseID
	}
	if !s.kbs.KnowledgeBaseExists(ctx, kbID) {
		return nil, fmt.Errorf("%w: id %d", metastore.ErrKnowledgeBaseNotFound, kbID)
	}

	queriesTotal.Inc()

	queries := s.expander.Expand(ctx, req.Query)

	candidates, err := s.retriever.Retrieve(ctx, kbID, queries)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("retrieving candidates: %w", err)
	}
	if len(candidates) == 0 {
		emptyRetrievals.Inc()
		s.logger.Info("no candidates retrieved",
			zap.Int64("kb_id", kbID),
			zap.String("query", req.Query),
		)
		return &Answer{
			Answer:  NoInformationAnswer,
			Sources: []Source{},
			Query:   req.Query,
		}, nil
	}

	reranked := s.reranker.Rerank(req.Query, candidates)
	if orderChanged(candidates, reranked) {
		rerankReorders.Inc()
	}

	contextText, retained := s.assembler.Assemble(reranked)

	raw, err := s.generator.Answer(ctx, contextText, req.Query)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	answer := Sanitize(raw)
	sources := s.attributor.Attribute(ctx, req.Query, retained)

	s.logger.Info("answered query",
		zap.Int64("kb_id", kbID),
		zap.Int("queries", len(queries)),
		zap.Int("candidates", len(candidates)),
		zap.Int("sources", len(sources)),
	)
	return &Answer{Answer: answer, Sources: sources, Query: req.Query}, nil
}

func orderChanged(before, after []Candidate) bool {
	if len(before) != len(after) {
		return true
	}
	for i := range before {
		if before[i].ID != after[i].ID {
			return true
		}
	}
	return false
}
