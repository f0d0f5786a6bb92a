package rag

import (
	"context"
	"fmt"

	"github.com/heyjiacheng/Backend-Red-Panda/internal/llm"
)

// answerPrompt grounds the model in the retrieved context and keeps its
// reasoning out of the reply.
const answerPrompt = `Answer the question based only on the following context. If the context does not contain the answer, say so. Reply with the answer only, without explaining your reasoning.

Context:
%s

Question: %s`

// Generator produces the raw answer text from assembled context.
type Generator struct {
	client llm.Generator
}

// NewGenerator creates a Generator over the given model client.
func NewGenerator(client llm.Generator) *Generator {
	return &Generator{client: client}
}

// Answer invokes the model once. A backend failure surfaces as
// llm.ErrGenerationFailed; there are no retries here.
func (g *Generator) Answer(ctx context.Context, contextText, question string) (string, error) {
	return g.client.Generate(ctx, fmt.Sprintf(answerPrompt, contextText, question))
}
