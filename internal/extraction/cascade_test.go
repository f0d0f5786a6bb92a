package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	name  string
	units []Unit
	err   error
	panic bool
	calls int
}

func (f *fakeExtractor) Name() string { return f.name }

func (f *fakeExtractor) Extract(ctx context.Context, path string) ([]Unit, error) {
	f.calls++
	if f.panic {
		panic("boom")
	}
	return f.units, f.err
}

func TestNewCascadeStrategyOrder(t *testing.T) {
	c := NewCascade(Config{}, nil)

	require.Len(t, c.extractors, 5)
	names := make([]string, len(c.extractors))
	for i, ex := range c.extractors {
		names[i] = ex.Name()
	}
	assert.Equal(t, []string{"plaintext", "layout", "stream", "pages", "rawbytes"}, names)
}

func TestCascadeStopsAtFirstSuccess(t *testing.T) {
	first := &fakeExtractor{name: "first", units: []Unit{{Text: "hello", Page: 1}}}
	second := &fakeExtractor{name: "second", units: []Unit{{Text: "unreached", Page: 1}}}

	c := NewCascadeWith(nil, first, second)
	units, err := c.Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "hello", units[0].Text)
	assert.Equal(t, 0, second.calls)
}

func TestCascadeFallsThroughOnError(t *testing.T) {
	first := &fakeExtractor{name: "first", err: errors.New("corrupt xref")}
	second := &fakeExtractor{name: "second", units: []Unit{{Text: "recovered", Page: 2}}}

	c := NewCascadeWith(nil, first, second)
	units, err := c.Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "recovered", units[0].Text)
	assert.Equal(t, 2, units[0].Page)
}

func TestCascadeFallsThroughOnWhitespaceOnly(t *testing.T) {
	first := &fakeExtractor{name: "first", units: []Unit{{Text: "  \n\t ", Page: 1}, {Text: "", Page: 2}}}
	second := &fakeExtractor{name: "second", units: []Unit{{Text: "real content", Page: 1}}}

	c := NewCascadeWith(nil, first, second)
	units, err := c.Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "real content", units[0].Text)
}

func TestCascadeRecoversFromPanic(t *testing.T) {
	first := &fakeExtractor{name: "first", panic: true}
	second := &fakeExtractor{name: "second", units: []Unit{{Text: "survived", Page: 1}}}

	c := NewCascadeWith(nil, first, second)
	units, err := c.Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "survived", units[0].Text)
}

func TestCascadeAllExhausted(t *testing.T) {
	c := NewCascadeWith(nil,
		&fakeExtractor{name: "a", err: errors.New("bad")},
		&fakeExtractor{name: "b", units: []Unit{{Text: "   ", Page: 1}}},
	)

	_, err := c.Extract(context.Background(), "doc.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
}

func TestCascadeContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	first := &fakeExtractor{name: "first", units: []Unit{{Text: "hello", Page: 1}}}
	c := NewCascadeWith(nil, first)

	_, err := c.Extract(ctx, "doc.pdf")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, first.calls)
}

func TestHasContent(t *testing.T) {
	tests := []struct {
		name  string
		units []Unit
		want  bool
	}{
		{"nil", nil, false},
		{"empty unit", []Unit{{Text: ""}}, false},
		{"whitespace only", []Unit{{Text: " \n\t"}}, false},
		{"one real unit", []Unit{{Text: "  "}, {Text: "x"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasContent(tt.units))
		})
	}
}
