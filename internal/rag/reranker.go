package rag

import (
	"sort"
	"strings"
	"unicode"
)

// Reranker reorders candidates by lexical overlap with the question.
//
// Embedding similarity alone can surface topically related but lexically
// irrelevant passages; a cheap term-overlap pass recovers precision
// without a second model call. The output is always a permutation of the
// input: ties keep their retrieval order, and any internal problem falls
// back to the input order rather than failing the query.
type Reranker struct{}

// NewReranker creates a Reranker.
func NewReranker() *Reranker {
	return &Reranker{}
}

// Rerank sorts candidates by descending overlap score, stable on ties.
func (r *Reranker) Rerank(question string, candidates []Candidate) []Candidate {
	if len(candidates) <= 1 {
		return candidates
	}

	questionTokens := tokenSet(tokenize(question))
	if len(questionTokens) == 0 {
		return candidates
	}

	scores := make([]int, len(candidates))
	for i, c := range candidates {
		scores[i] = overlapScore(questionTokens, tokenize(c.Content))
	}

	out := make([]Candidate, len(candidates))
	copy(out, candidates)
	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	for i, idx := range order {
		out[i] = candidates[idx]
	}
	return out
}

// overlapScore sums, over the candidate's tokens, the occurrences of
// tokens that also appear in the question's token set.
func overlapScore(questionTokens map[string]bool, candidateTokens []string) int {
	score := 0
	for _, t := range candidateTokens {
		if questionTokens[t] {
			score++
		}
	}
	return score
}

// tokenize lowercases, strips punctuation, and splits on whitespace.
func tokenize(s string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return r
		default:
			return ' '
		}
	}, s)
	return strings.Fields(cleaned)
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
