package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestExpanderReturnsOriginalPlusVariants(t *testing.T) {
	gen := &fakeGenerator{response: "How do cats sleep?\nWhat are feline sleep habits?\nWhen do cats rest?"}
	e := NewExpander(gen, 5, nil)

	queries := e.Expand(context.Background(), "how much do cats sleep")

	require.Len(t, queries, 4)
	assert.Equal(t, "how much do cats sleep", queries[0])
	assert.Equal(t, "How do cats sleep?", queries[1])
	assert.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "how much do cats sleep")
}

func TestExpanderStripsListMarkers(t *testing.T) {
	gen := &fakeGenerator{response: "1. First variant\n2) Second variant\n- Third variant\n* Fourth variant"}
	e := NewExpander(gen, 5, nil)

	queries := e.Expand(context.Background(), "question")

	require.Len(t, queries, 5)
	assert.Equal(t, []string{
		"question",
		"First variant",
		"Second variant",
		"Third variant",
		"Fourth variant",
	}, queries)
}

func TestExpanderCapsVariantCount(t *testing.T) {
	gen := &fakeGenerator{response: "a\nb\nc\nd\ne\nf\ng"}
	e := NewExpander(gen, 3, nil)

	queries := e.Expand(context.Background(), "q")

	assert.Len(t, queries, 4)
}

func TestExpanderSkipsDuplicatesAndEmptyLines(t *testing.T) {
	gen := &fakeGenerator{response: "Variant one\n\nvariant ONE\nOriginal question\nVariant two"}
	e := NewExpander(gen, 5, nil)

	queries := e.Expand(context.Background(), "Original question")

	assert.Equal(t, []string{"Original question", "Variant one", "Variant two"}, queries)
}

func TestExpanderDegradesOnGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("backend down")}
	e := NewExpander(gen, 5, nil)

	queries := e.Expand(context.Background(), "the question")

	assert.Equal(t, []string{"the question"}, queries)
}

func TestExpanderZeroCountSkipsModelCall(t *testing.T) {
	gen := &fakeGenerator{response: "unused"}
	e := NewExpander(gen, 0, nil)

	queries := e.Expand(context.Background(), "q")

	assert.Equal(t, []string{"q"}, queries)
	assert.Empty(t, gen.prompts)
}

func TestCleanExpansionLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1. numbered", "numbered"},
		{"12) numbered", "numbered"},
		{"- dashed", "dashed"},
		{"* starred", "starred"},
		{"  plain  ", "plain"},
		{"", ""},
		{"2024 revenue figures", "2024 revenue figures"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanExpansionLine(tt.in), "input %q", tt.in)
	}
}
