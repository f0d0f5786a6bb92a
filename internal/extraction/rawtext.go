package extraction

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// minRunLength is the shortest printable run worth keeping. Shorter runs
// are overwhelmingly structural noise (operator names, object numbers).
const minRunLength = 4

// rawTextExtractor is the last resort: it scans the raw file bytes for
// runs of printable ASCII. The output is noisy but an invoice number or a
// heading recovered this way still beats rejecting the file.
type rawTextExtractor struct{}

func (e *rawTextExtractor) Name() string { return "rawbytes" }

func (e *rawTextExtractor) Extract(ctx context.Context, path string) ([]Unit, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	runStart := -1
	flush := func(end int) {
		if runStart >= 0 && end-runStart >= minRunLength {
			sb.Write(raw[runStart:end])
			sb.WriteByte('\n')
		}
		runStart = -1
	}

	for i, b := range raw {
		if b >= 0x20 && b <= 0x7e {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		flush(i)
	}
	flush(len(raw))

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return []Unit{{Text: text, Page: 1}}, nil
}
