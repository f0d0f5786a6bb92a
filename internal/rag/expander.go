package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/heyjiacheng/Backend-Red-Panda/internal/llm"
)

// expansionPrompt asks the model for alternative phrasings that widen
// recall under nearest-neighbor search.
const expansionPrompt = `You are an AI language model assistant. Your task is to generate %d different versions of the given user question to retrieve relevant documents from a vector database. By generating multiple perspectives on the user question, your goal is to help the user overcome some of the limitations of distance-based similarity search. Provide these alternative questions, each on its own line, with no numbering or commentary.

Original question: %s`

// Expander widens one question into several retrieval queries.
type Expander struct {
	generator llm.Generator
	count     int
	logger    *zap.Logger
}

// NewExpander creates an Expander producing count alternative phrasings
// per question.
func NewExpander(generator llm.Generator, count int, logger *zap.Logger) *Expander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{generator: generator, count: count, logger: logger}
}

// Expand returns the original question followed by up to count
// alternative phrasings. Expansion is best effort: any failure degrades
// to the original question alone, never to an error.
func (e *Expander) Expand(ctx context.Context, question string) []string {
	queries := []string{question}
	if e.count <= 0 || e.generator == nil {
		return queries
	}

	raw, err := e.generator.Generate(ctx, fmt.Sprintf(expansionPrompt, e.count, question))
	if err != nil {
		e.logger.Warn("query expansion failed, using original question only", zap.Error(err))
		return queries
	}

	for _, line := range strings.Split(raw, "\n") {
		variant := cleanExpansionLine(line)
		if variant == "" || strings.EqualFold(variant, question) {
			continue
		}
		if containsFold(queries, variant) {
			continue
		}
		queries = append(queries, variant)
		if len(queries) == e.count+1 {
			break
		}
	}

	e.logger.Debug("expanded query",
		zap.String("question", question),
		zap.Int("variants", len(queries)-1),
	)
	return queries
}

// cleanExpansionLine strips list markers the model tends to add despite
// instructions: "1. ", "2) ", "- ", "* ".
func cleanExpansionLine(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "-*")
	s = strings.TrimSpace(s)

	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		s = strings.TrimSpace(s[i+1:])
	}
	return s
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
