package extraction

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// streamExtractor mines text-showing operators straight out of PDF content
// streams, bypassing the document model entirely. It recovers text from
// files whose cross-reference tables or page trees are damaged, as long as
// the content streams themselves still inflate.
//
// Only literal-string arguments to Tj, TJ, ' and " are collected; hex
// strings and CID-keyed fonts are beyond what this layer can decode.
type streamExtractor struct{}

func (e *streamExtractor) Name() string { return "stream" }

var (
	streamStart = []byte("stream")
	streamEnd   = []byte("endstream")
)

func (e *streamExtractor) Extract(ctx context.Context, path string) ([]Unit, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	var units []Unit
	page := 0
	for off := 0; off < len(raw); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		i := bytes.Index(raw[off:], streamStart)
		if i < 0 {
			break
		}
		start := off + i + len(streamStart)
		// The keyword is followed by CRLF or LF before the stream data.
		if start < len(raw) && raw[start] == '\r' {
			start++
		}
		if start < len(raw) && raw[start] == '\n' {
			start++
		}

		j := bytes.Index(raw[start:], streamEnd)
		if j < 0 {
			break
		}
		end := start + j
		off = end + len(streamEnd)

		data := inflateStream(raw[start:end])
		if data == nil {
			continue
		}

		text := minedText(data)
		if strings.TrimSpace(text) == "" {
			continue
		}
		// Content streams appear in page order in most writers; the
		// stream index is the closest available page approximation.
		page++
		units = append(units, Unit{Text: text, Page: page})
	}

	return units, nil
}

// inflateStream decompresses a FlateDecode stream, or returns the data
// unchanged when it is not zlib-compressed. Returns nil when the stream is
// compressed with an unsupported filter.
func inflateStream(data []byte) []byte {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		// Uncompressed streams contain the operators directly.
		if bytes.Contains(data, []byte("Tj")) || bytes.Contains(data, []byte("TJ")) {
			return data
		}
		return nil
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil && len(out) == 0 {
		return nil
	}
	// A truncated tail still yields usable text.
	return out
}

// minedText collects literal strings that are consumed by text-showing
// operators, in stream order. Strings inside TJ arrays are joined without
// separators; separate show operations are separated by spaces, and TD/Td/
// T* line moves by newlines.
func minedText(data []byte) string {
	var sb strings.Builder
	inText := false

	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '(':
			s, next := parseLiteralString(data, i)
			i = next
			if s != "" {
				sb.WriteString(s)
				if !inText {
					sb.WriteByte(' ')
				}
			}
			inText = true
		case 'T':
			if i+1 < len(data) {
				switch data[i+1] {
				case 'j', 'J':
					sb.WriteByte(' ')
					i++
				case 'd', 'D', '*':
					sb.WriteByte('\n')
					i++
				}
			}
		case 'E':
			if bytes.HasPrefix(data[i:], []byte("ET")) {
				sb.WriteByte('\n')
				inText = false
				i++
			}
		}
	}
	return sb.String()
}

// parseLiteralString parses a PDF literal string starting at the opening
// parenthesis, returning the decoded text and the index of the closing
// parenthesis. PDF literal strings allow balanced nested parentheses and
// backslash escapes.
func parseLiteralString(data []byte, start int) (string, int) {
	var sb strings.Builder
	depth := 0
	i := start
	for ; i < len(data); i++ {
		c := data[i]
		switch c {
		case '\\':
			if i+1 >= len(data) {
				return sb.String(), i
			}
			i++
			switch data[i] {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case 'b', 'f':
				// Ignored control characters.
			case '(', ')', '\\':
				sb.WriteByte(data[i])
			default:
				if data[i] >= '0' && data[i] <= '7' {
					// Octal escape, up to three digits.
					v := int(data[i] - '0')
					for n := 0; n < 2 && i+1 < len(data) && data[i+1] >= '0' && data[i+1] <= '7'; n++ {
						i++
						v = v*8 + int(data[i]-'0')
					}
					if v >= 32 && v < 127 {
						sb.WriteByte(byte(v))
					}
				}
			}
		case '(':
			depth++
			if depth > 1 {
				sb.WriteByte('(')
			}
		case ')':
			depth--
			if depth == 0 {
				return sb.String(), i
			}
			sb.WriteByte(')')
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), i
}
