package extraction

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// pageExtractor walks the page tree with a second, independent reader.
// Its parser recovers from some cross-reference damage the primary reader
// does not, at the cost of cruder text positioning.
type pageExtractor struct{}

func (e *pageExtractor) Name() string { return "pages" }

func (e *pageExtractor) Extract(ctx context.Context, path string) ([]Unit, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

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
			continue
		}
		units = append(units, Unit{Text: text, Page: i})
	}
	return units, nil
}
