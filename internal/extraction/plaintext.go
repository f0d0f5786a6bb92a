package extraction

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dslipak/pdf"
)

// plainTextExtractor reads the whole document's text layer in one pass.
// This is the fastest path and succeeds for most well-formed PDFs.
type plainTextExtractor struct{}

func (e *plainTextExtractor) Name() string { return "plaintext" }

func (e *plainTextExtractor) Extract(ctx context.Context, path string) ([]Unit, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}

	var units []Unit
	pages := r.NumPage()
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// A single bad page does not invalidate the rest.
			continue
		}
		units = append(units, Unit{Text: text, Page: i})
	}

	if len(units) == 0 {
		// Page structure unreadable; fall back to the reader's linear view.
		rd, err := r.GetPlainText()
		if err != nil {
			return nil, fmt.Errorf("reading plain text: %w", err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rd); err != nil {
			return nil, fmt.Errorf("reading plain text: %w", err)
		}
		units = append(units, Unit{Text: buf.String(), Page: 1})
	}

	return units, nil
}
