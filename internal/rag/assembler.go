package rag

import "strings"

// Assembler selects the top reranked candidates and builds the context
// window. The bound trades context completeness for prompt size and
// latency.
type Assembler struct {
	topN int
}

// NewAssembler creates an Assembler retaining topN candidates.
func NewAssembler(topN int) *Assembler {
	return &Assembler{topN: topN}
}

// Assemble returns the context string for the model and the retained
// candidates, which are also the attribution set.
func (a *Assembler) Assemble(candidates []Candidate) (string, []Candidate) {
	retained := candidates
	if len(retained) > a.topN {
		retained = retained[:a.topN]
	}

	parts := make([]string, len(retained))
	for i, c := range retained {
		parts[i] = c.Content
	}
	return strings.Join(parts, "\n\n"), retained
}
