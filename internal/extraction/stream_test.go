package extraction

import (
	"bytes"
	"compress/zlib"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildStreamPDF assembles a minimal file containing one flate-compressed
// content stream around the given operators.
func buildStreamPDF(t *testing.T, content string) string {
	t.Helper()

	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	_, err := w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	var file bytes.Buffer
	file.WriteString("%PDF-1.4\n1 0 obj\n<< /Length 9999 /Filter /FlateDecode >>\nstream\n")
	file.Write(compressed.Bytes())
	file.WriteString("\nendstream\nendobj\n%%EOF\n")

	path := filepath.Join(t.TempDir(), "stream.pdf")
	require.NoError(t, os.WriteFile(path, file.Bytes(), 0o644))
	return path
}

func TestStreamExtractorMinesTjOperators(t *testing.T) {
	path := buildStreamPDF(t, "BT /F1 12 Tf (Invoice #42,) Tj (total $100) Tj ET")

	units, err := (&streamExtractor{}).Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Contains(t, units[0].Text, "Invoice #42,")
	assert.Contains(t, units[0].Text, "total $100")
	assert.Equal(t, 1, units[0].Page)
}

func TestStreamExtractorHandlesTJArrays(t *testing.T) {
	path := buildStreamPDF(t, "BT [(Hel) -20 (lo)] TJ ET")

	units, err := (&streamExtractor{}).Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Contains(t, units[0].Text, "Hel")
	assert.Contains(t, units[0].Text, "lo")
}

func TestStreamExtractorIgnoresNonTextStreams(t *testing.T) {
	path := buildStreamPDF(t, "q 1 0 0 1 0 0 cm /Im0 Do Q")

	units, err := (&streamExtractor{}).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, hasContent(units))
}

func TestParseLiteralString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "(hello)", "hello"},
		{"escaped parens", `(a\(b\)c)`, "a(b)c"},
		{"nested parens", "(a(b)c)", "a(b)c"},
		{"newline escape", `(a\nb)`, "a\nb"},
		{"backslash", `(a\\b)`, `a\b`},
		{"octal escape", `(\101\102)`, "AB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := parseLiteralString([]byte(tt.input), 0)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRawTextExtractorKeepsLongRuns(t *testing.T) {
	data := append([]byte{0x00, 0x01}, []byte("Invoice #42")...)
	data = append(data, 0xff, 0xfe)
	data = append(data, []byte("ab")...) // below minimum run length
	data = append(data, 0x00)
	path := filepath.Join(t.TempDir(), "raw.pdf")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	units, err := (&rawTextExtractor{}).Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Contains(t, units[0].Text, "Invoice #42")
	assert.NotContains(t, units[0].Text, "ab\n")
}

func TestRawTextExtractorEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01, 0x02}, 0o644))

	units, err := (&rawTextExtractor{}).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, hasContent(units))
}
